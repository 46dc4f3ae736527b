package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// SubscriberQueueSize is the per-subscriber buffer. A full buffer drops the
// event for that subscriber rather than blocking the publisher.
const SubscriberQueueSize = 64

// SubscriberID identifies a subscription for Unsubscribe.
type SubscriberID int

type subscriber struct {
	ch    chan Event
	types map[Type]bool
}

func (s *subscriber) wants(t Type) bool {
	return len(s.types) == 0 || s.types[t]
}

// Bus is an in-process typed notification channel.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[SubscriberID]*subscriber
	lastID      SubscriberID
	closed      bool
	logger      *slog.Logger
	metrics     *busMetrics
}

type busMetrics struct {
	published *prometheus.CounterVec
	dropped   *prometheus.CounterVec
}

// NewBus creates a Bus. registry may be nil to skip metrics.
func NewBus(registry prometheus.Registerer, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bus{
		subscribers: make(map[SubscriberID]*subscriber),
		logger:      logger,
	}
	if registry != nil {
		b.metrics = &busMetrics{
			published: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ons_events_published_total",
				Help: "Notifications published on the in-process bus",
			}, []string{"type"}),
			dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ons_events_dropped_total",
				Help: "Notifications dropped because a subscriber was full",
			}, []string{"type"}),
		}
		registry.MustRegister(b.metrics.published, b.metrics.dropped)
	}
	return b
}

// Subscribe returns a channel receiving the given types, or every type if none are given.
func (b *Bus) Subscribe(types ...Type) (SubscriberID, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{ch: make(chan Event, SubscriberQueueSize), types: make(map[Type]bool, len(types))}
	for _, t := range types {
		sub.types[t] = true
	}
	b.lastID++
	id := b.lastID
	if b.closed {
		close(sub.ch)
		return id, sub.ch
	}
	b.subscribers[id] = sub
	return id, sub.ch
}

// SubscribeFunc runs fn for each matching event on its own goroutine until
// Unsubscribe or Close.
func (b *Bus) SubscribeFunc(fn func(Event), types ...Type) SubscriberID {
	id, ch := b.Subscribe(types...)
	go func() {
		for evt := range ch {
			fn(evt)
		}
	}()
	return id
}

// Unsubscribe stops delivery and closes the subscriber's channel.
func (b *Bus) Unsubscribe(id SubscriberID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(sub.ch)
	}
}

// Publish delivers evt to every interested subscriber without blocking.
func (b *Bus) Publish(ctx context.Context, evt Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	if b.metrics != nil {
		b.metrics.published.WithLabelValues(string(evt.Type)).Inc()
	}
	for id, sub := range b.subscribers {
		if !sub.wants(evt.Type) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			if b.metrics != nil {
				b.metrics.dropped.WithLabelValues(string(evt.Type)).Inc()
			}
			b.logger.WarnContext(ctx, "notification dropped, subscriber full",
				"subscriber", id,
				"type", evt.Type,
				"domain", evt.Domain,
			)
		}
	}
	return nil
}

// Close closes every subscriber channel. Later publishes are ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subscribers {
		close(sub.ch)
		delete(b.subscribers, id)
	}
}
