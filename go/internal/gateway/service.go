package gateway

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/roulette/go/internal/audio"
	"github.com/mcdev12/roulette/go/internal/broadcast"
	"github.com/mcdev12/roulette/go/internal/control"
	"github.com/mcdev12/roulette/go/internal/display"
	"github.com/mcdev12/roulette/go/internal/engine"
	"github.com/mcdev12/roulette/go/internal/models"
	"github.com/mcdev12/roulette/go/internal/scheduler"
	"github.com/rs/zerolog/log"
)

// Config holds configuration for the view gateway
type Config struct {
	ConnectionConfig ConnectionConfig
	Roulette         models.RouletteConfig
	FPS              int

	// RandomSnap lands on a seeded uniform draw among unplayed items instead
	// of wherever deceleration leaves the list.
	RandomSnap bool
	Seed       uint64
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		Roulette:         models.DefaultRouletteConfig(),
		FPS:              scheduler.DefaultFPS,
	}
}

// Service hosts one view context per browser connection. Each context has
// its own bus endpoint and shares nothing with the others.
type Service struct {
	config            Config
	bus               broadcast.Bus
	orchestrator      *control.Orchestrator
	clock             clockwork.Clock
	connectionManager *ConnectionManager

	ctx      context.Context
	cancel   context.CancelFunc
	sessions atomic.Uint64
}

// NewService creates a new gateway service
func NewService(config Config, bus broadcast.Bus, orchestrator *control.Orchestrator) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		config:            config,
		bus:               bus,
		orchestrator:      orchestrator,
		clock:             clockwork.NewRealClock(),
		connectionManager: NewConnectionManager(config.ConnectionConfig),
		ctx:               ctx,
		cancel:            cancel,
	}
}

// Start runs the connection manager and mirrors snapshots to control pages
// until ctx ends.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting view gateway")

	go s.connectionManager.Start(ctx)

	mirror := broadcast.NewChannel[models.SyncSnapshot](s.bus, broadcast.SnapshotChannel, broadcast.NewEndpointID())
	feed, err := mirror.Subscribe()
	if err != nil {
		return fmt.Errorf("subscribe control mirror: %w", err)
	}
	defer feed.Close()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("view gateway shutting down")
			s.Stop()
			return nil
		case snap, ok := <-feed.C():
			if !ok {
				return broadcast.ErrBusClosed
			}
			s.connectionManager.BroadcastToView(ViewControl, Envelope{Type: MessageSnapshot, Data: snap})
		}
	}
}

// Stop ends every view context.
func (s *Service) Stop() {
	s.cancel()
}

// Stats returns statistics about the open connections
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}

func (s *Service) newEngine(conn *Connection) *engine.Engine {
	opts := []engine.Option{
		engine.WithClock(s.clock),
		engine.WithPlayer(audio.Func(func(cue audio.Cue) {
			conn.Send(Envelope{Type: MessageCue, Data: cue})
		})),
	}
	if s.config.RandomSnap {
		n := s.sessions.Add(1)
		opts = append(opts, engine.WithRandomSnap(rand.New(rand.NewPCG(s.config.Seed, n))))
	}
	return engine.New(s.config.Roulette, opts...)
}

// runSession runs fn in a context that ends with the connection or the
// service.
func (s *Service) runSession(conn *Connection, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithCancel(s.ctx)
	go func() {
		select {
		case <-conn.Done():
		case <-ctx.Done():
		}
		cancel()
	}()

	go func() {
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Error().
				Err(err).
				Str("connection_id", conn.ID).
				Str("view", string(conn.View)).
				Msg("view session ended")
		}
	}()
}

// startDisplay attaches an overlay renderer to conn.
func (s *Service) startDisplay(conn *Connection) {
	endpoint := broadcast.NewEndpointID()
	renderer := display.NewRenderer(
		s.newEngine(conn),
		scheduler.NewFrameLoop(s.clock, s.config.FPS),
		broadcast.NewChannel[models.SyncSnapshot](s.bus, broadcast.SnapshotChannel, endpoint),
		broadcast.NewChannel[models.Outcome](s.bus, broadcast.OutcomeChannel, endpoint),
	)

	s.runSession(conn, func(ctx context.Context) error {
		return renderer.Run(ctx, func(frame display.DisplayFrame) {
			conn.Send(Envelope{Type: MessageFrame, Data: frame})
		})
	})
}

// startTopic attaches a topic view to conn.
func (s *Service) startTopic(conn *Connection) {
	topic := display.NewTopic(
		broadcast.NewChannel[models.SyncSnapshot](s.bus, broadcast.SnapshotChannel, broadcast.NewEndpointID()),
	)

	s.runSession(conn, func(ctx context.Context) error {
		return topic.Run(ctx, func(frame display.TopicFrame) {
			conn.Send(Envelope{Type: MessageTopic, Data: frame})
		})
	})
}

// startControl sends the authoritative state to a control page; later
// snapshots arrive through the mirror.
func (s *Service) startControl(conn *Connection) {
	conn.Send(Envelope{Type: MessageSnapshot, Data: s.orchestrator.Snapshot()})
}
