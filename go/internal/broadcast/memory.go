package broadcast

import (
	"bytes"
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// MemoryBus delivers messages between view contexts of the same process.
type MemoryBus struct {
	mu         sync.Mutex
	subs       map[string]map[*Subscription]struct{}
	bufferSize int
	closed     bool
}

// NewMemoryBus creates an empty bus. bufferSize bounds each subscriber's
// backlog; zero selects the default.
func NewMemoryBus(bufferSize int) *MemoryBus {
	return &MemoryBus{
		subs:       make(map[string]map[*Subscription]struct{}),
		bufferSize: bufferSize,
	}
}

// Subscribe registers endpoint on channel.
func (b *MemoryBus) Subscribe(channel, endpoint string) (*Subscription, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	var sub *Subscription
	sub = newSubscription(channel, endpoint, b.bufferSize, func() {
		b.remove(channel, sub)
	})
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*Subscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}

	log.Debug().
		Str("channel", channel).
		Str("endpoint", endpoint).
		Int("subscribers", len(b.subs[channel])).
		Msg("subscriber registered")

	return sub, nil
}

func (b *MemoryBus) remove(channel string, sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[channel]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.subs, channel)
		}
	}
}

// Publish delivers data to every subscriber of channel except sender.
func (b *MemoryBus) Publish(ctx context.Context, channel, sender string, data []byte) error {
	if channel == "" {
		return ErrEmptyChannel
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBusClosed
	}

	msg := Message{Channel: channel, Sender: sender, Data: bytes.Clone(data)}
	delivered := 0
	for sub := range b.subs[channel] {
		if sub.endpoint == sender {
			continue
		}
		if sub.deliver(msg) {
			delivered++
		}
	}

	log.Debug().
		Str("channel", channel).
		Str("sender", sender).
		Int("delivered", delivered).
		Msg("message published")

	return nil
}

// Subscribers returns the number of live subscriptions on channel.
func (b *MemoryBus) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}

// Close cancels every subscription. Further calls fail with ErrBusClosed.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*Subscription
	for _, subs := range b.subs {
		for sub := range subs {
			all = append(all, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.Cancel()
	}
	return nil
}
