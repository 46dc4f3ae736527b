package dedupe

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Memory is an in-process LRU with per-key expiry.
type Memory struct {
	cache *expirable.LRU[string, struct{}]
}

// NewMemory keeps at most size keys, each for at most ttl.
func NewMemory(size int, ttl time.Duration) *Memory {
	if size <= 0 {
		size = 10000
	}
	return &Memory{cache: expirable.NewLRU[string, struct{}](size, nil, ttl)}
}

func (m *Memory) Seen(_ context.Context, key string) (bool, error) {
	// Peek honors expiry without touching recency.
	_, ok := m.cache.Peek(key)
	return ok, nil
}

func (m *Memory) Mark(_ context.Context, key string) error {
	m.cache.Add(key, struct{}{})
	return nil
}

// Len reports the number of remembered keys.
func (m *Memory) Len() int {
	return m.cache.Len()
}
