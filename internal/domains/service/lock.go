package service

import (
	"context"
	"sync"
	"time"

	dErrors "ons/pkg/domain-errors"
)

// Mutations are distributed across shards by a hash of the domain name, so
// unrelated domains rarely contend while one domain is always serialized.
const numDomainShards = 128

// defaultLockTimeout is applied when the caller's context has no deadline.
const defaultLockTimeout = 5 * time.Second

type domainLocker struct {
	shards  [numDomainShards]sync.Mutex
	timeout time.Duration
}

func newDomainLocker(timeout time.Duration) *domainLocker {
	return &domainLocker{timeout: timeout}
}

// run executes fn while holding domain's shard.
func (l *domainLocker) run(ctx context.Context, domain string, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "operation aborted: context cancelled")
	}

	timeout := l.timeout
	if timeout == 0 {
		timeout = defaultLockTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := &l.shards[shardFor(domain)]
	if !lockWithContext(ctx, shard) {
		return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "timed out waiting for domain lock")
	}
	defer shard.Unlock()

	return fn(ctx)
}

// lockWithContext polls TryLock so a waiter can give up when ctx ends.
func lockWithContext(ctx context.Context, mu *sync.Mutex) bool {
	if mu.TryLock() {
		return true
	}
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if mu.TryLock() {
				return true
			}
		}
	}
}

func shardFor(domain string) uint32 {
	return hashDomain(domain) % numDomainShards
}

// hashDomain is FNV-1a.
func hashDomain(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

func (s *Service) withDomainLock(ctx context.Context, domain string, fn func(ctx context.Context) error) error {
	err := s.locks.run(ctx, domain, fn)
	if dErrors.HasCode(err, dErrors.CodeTimeout) && s.metrics != nil {
		s.metrics.IncrementLockTimeout()
	}
	return err
}
