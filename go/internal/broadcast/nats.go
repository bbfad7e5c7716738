package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const senderHeader = "Sender-ID"

// NATSConfig holds configuration for the NATS-backed bus
type NATSConfig struct {
	URL           string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	BufferSize    int
}

// DefaultNATSConfig returns default NATS bus configuration
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "roulette",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
		BufferSize:    defaultBufferSize,
	}
}

// NATSBus carries channels over core NATS subjects so view contexts can live
// in separate processes. Core NATS keeps the no-ack, no-replay contract.
type NATSBus struct {
	nc     *nats.Conn
	config NATSConfig
}

// NewNATSBus connects to NATS
func NewNATSBus(cfg NATSConfig) (*NATSBus, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSBus{nc: nc, config: cfg}, nil
}

func (b *NATSBus) subject(channel string) string {
	return fmt.Sprintf("%s.%s", b.config.SubjectPrefix, channel)
}

// Publish sends data on the channel's subject, tagged with the sender id
func (b *NATSBus) Publish(ctx context.Context, channel, sender string, data []byte) error {
	if channel == "" {
		return ErrEmptyChannel
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if b.nc.IsClosed() {
		return ErrBusClosed
	}

	msg := &nats.Msg{
		Subject: b.subject(channel),
		Data:    data,
		Header:  nats.Header{senderHeader: []string{sender}},
	}
	if err := b.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to NATS: %w", err)
	}

	log.Debug().
		Str("subject", msg.Subject).
		Str("sender", sender).
		Msg("published to NATS")

	return nil
}

// Subscribe registers endpoint on the channel's subject
func (b *NATSBus) Subscribe(channel, endpoint string) (*Subscription, error) {
	if channel == "" {
		return nil, ErrEmptyChannel
	}
	if b.nc.IsClosed() {
		return nil, ErrBusClosed
	}

	var natsSub *nats.Subscription
	sub := newSubscription(channel, endpoint, b.config.BufferSize, func() {
		if natsSub == nil {
			return
		}
		if err := natsSub.Unsubscribe(); err != nil {
			log.Debug().Err(err).Str("channel", channel).Msg("NATS unsubscribe failed")
		}
	})

	natsSub, err := b.nc.Subscribe(b.subject(channel), func(m *nats.Msg) {
		sender := m.Header.Get(senderHeader)
		if sender == endpoint {
			return
		}
		sub.deliver(Message{Channel: channel, Sender: sender, Data: m.Data})
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to NATS: %w", err)
	}

	return sub, nil
}

// Close gracefully closes the NATS connection
func (b *NATSBus) Close() error {
	if b.nc != nil {
		b.nc.Close()
	}
	return nil
}
