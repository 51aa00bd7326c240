// Package events fans call changes out to live dashboard sessions.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"call-desk/internal/calls"
	"call-desk/internal/metrics"
	"call-desk/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "call-desk:calls"

// Subscriber streams changes until ctx ends, then closes the channel.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan calls.Change, error)
}

// RedisBus publishes changes on a Redis channel so every API replica sees
// every write.
type RedisBus struct {
	rdb     *redis.Client
	channel string
	metrics *metrics.Metrics
}

func NewRedisBus(rdb *redis.Client, channel string, m *metrics.Metrics) *RedisBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBus{rdb: rdb, channel: channel, metrics: m}
}

func (b *RedisBus) Publish(ctx context.Context, ch calls.Change) error {
	payload, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish call event: %w", err)
	}
	b.metrics.CallEvent(string(ch.Kind))
	return nil
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan calls.Change, error) {
	ps := b.rdb.Subscribe(ctx, b.channel)
	// wait for the subscription confirmation so no event is missed after return
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	out := make(chan calls.Change, 16)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var ch calls.Change
				if err := json.Unmarshal([]byte(m.Payload), &ch); err != nil {
					logger.From(ctx).Warn("drop malformed call event", "err", err)
					continue
				}
				select {
				case out <- ch:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// MemoryBus is the single-process bus used in tests and local runs.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[chan calls.Change]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: map[chan calls.Change]struct{}{}}
}

// Publish never blocks; a subscriber with a full buffer misses the event
// and picks the change up on its next poll.
func (b *MemoryBus) Publish(ctx context.Context, ch calls.Change) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		select {
		case s <- ch:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context) (<-chan calls.Change, error) {
	s := make(chan calls.Change, 16)
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, s)
		close(s)
		b.mu.Unlock()
	}()
	return s, nil
}

// Subscribers reports the live subscription count.
func (b *MemoryBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
