package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Channel is a typed view of one named bus channel, bound to the endpoint
// of the view context that uses it.
type Channel[T any] struct {
	bus      Bus
	name     string
	endpoint string
}

// NewChannel binds name on bus to endpoint.
func NewChannel[T any](bus Bus, name, endpoint string) *Channel[T] {
	return &Channel[T]{bus: bus, name: name, endpoint: endpoint}
}

// Name returns the logical channel name.
func (c *Channel[T]) Name() string { return c.name }

// Endpoint returns the bound endpoint id.
func (c *Channel[T]) Endpoint() string { return c.endpoint }

// Publish encodes v and broadcasts it to every other endpoint.
func (c *Channel[T]) Publish(ctx context.Context, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", c.name, err)
	}
	if err := c.bus.Publish(ctx, c.name, c.endpoint, data); err != nil {
		return fmt.Errorf("publish %s: %w", c.name, err)
	}
	return nil
}

// Subscribe starts decoding the channel's messages into a Feed.
func (c *Channel[T]) Subscribe() (*Feed[T], error) {
	sub, err := c.bus.Subscribe(c.name, c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", c.name, err)
	}

	f := &Feed[T]{
		sub:  sub,
		out:  make(chan T),
		done: make(chan struct{}),
	}
	go f.pump()
	return f, nil
}

// Feed yields decoded values in arrival order.
type Feed[T any] struct {
	sub  *Subscription
	out  chan T
	done chan struct{}
	once sync.Once
}

// C returns the decoded value channel. It is closed after Close or once the
// underlying bus goes away.
func (f *Feed[T]) C() <-chan T {
	return f.out
}

// Close cancels the subscription. Safe to call more than once.
func (f *Feed[T]) Close() {
	f.once.Do(func() {
		close(f.done)
		f.sub.Cancel()
	})
}

func (f *Feed[T]) pump() {
	defer close(f.out)

	for msg := range f.sub.C() {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			log.Warn().
				Err(err).
				Str("channel", msg.Channel).
				Str("sender", msg.Sender).
				Msg("skipping malformed message")
			continue
		}
		select {
		case f.out <- v:
		case <-f.done:
			return
		}
	}
}
