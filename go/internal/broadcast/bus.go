package broadcast

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Logical channel names shared by every view context.
const (
	SnapshotChannel = "roulette-sync"
	OutcomeChannel  = "roulette-win"
)

const defaultBufferSize = 64

var (
	ErrBusClosed    = errors.New("bus closed")
	ErrEmptyChannel = errors.New("channel name is required")
)

// Message is one published payload as seen by a subscriber.
type Message struct {
	Channel string
	Sender  string
	Data    []byte
}

// Bus is a fire-and-forget broadcast primitive. A message is delivered to
// every subscriber of its channel except the one registered under the
// sender's endpoint id. There is no acknowledgment and no replay.
type Bus interface {
	Publish(ctx context.Context, channel, sender string, data []byte) error
	Subscribe(channel, subscriber string) (*Subscription, error)
	Close() error
}

// NewEndpointID returns a fresh identity for a view context.
func NewEndpointID() string {
	return uuid.NewString()
}

// Subscription receives the messages of one channel for one endpoint.
type Subscription struct {
	channel  string
	endpoint string

	mu     sync.Mutex
	ch     chan Message
	closed bool

	once     sync.Once
	onCancel func()
}

func newSubscription(channel, endpoint string, size int, onCancel func()) *Subscription {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Subscription{
		channel:  channel,
		endpoint: endpoint,
		ch:       make(chan Message, size),
		onCancel: onCancel,
	}
}

// C returns the delivery channel. It is closed by Cancel.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Endpoint returns the subscriber's endpoint id.
func (s *Subscription) Endpoint() string {
	return s.endpoint
}

// Cancel stops delivery and closes C. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()

		if s.onCancel != nil {
			s.onCancel()
		}
	})
}

// deliver hands msg to the subscriber without blocking the publisher.
func (s *Subscription) deliver(msg Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	select {
	case s.ch <- msg:
		return true
	default:
		// Lagging subscriber; the next snapshot will catch it up.
		log.Warn().
			Str("channel", s.channel).
			Str("endpoint", s.endpoint).
			Msg("subscriber buffer full, dropping message")
		return false
	}
}
