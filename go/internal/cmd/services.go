package main

import (
	"fmt"

	"github.com/mcdev12/roulette/go/internal/broadcast"
	"github.com/mcdev12/roulette/go/internal/control"
	"github.com/mcdev12/roulette/go/internal/gateway"
	"github.com/mcdev12/roulette/go/internal/models"
	"github.com/mcdev12/roulette/go/internal/registry"
	"github.com/rs/zerolog/log"
)

type Services struct {
	Bus          broadcast.Bus
	Orchestrator *control.Orchestrator
	Control      *control.Handler
	Gateway      *gateway.Service
}

func setupBus(config *Config) (broadcast.Bus, error) {
	if config.Sync.Backend != SyncBackendNATS {
		return broadcast.NewMemoryBus(config.Sync.BufferSize), nil
	}

	natsConfig := broadcast.DefaultNATSConfig()
	natsConfig.URL = config.Sync.NATSURL
	if config.Sync.SubjectPrefix != "" {
		natsConfig.SubjectPrefix = config.Sync.SubjectPrefix
	}
	if config.Sync.BufferSize > 0 {
		natsConfig.BufferSize = config.Sync.BufferSize
	}

	bus, err := broadcast.NewNATSBus(natsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS bus: %w", err)
	}
	return bus, nil
}

func setupServices(config *Config) (*Services, error) {
	// Bus → Registry → Orchestrator → Handlers
	bus, err := setupBus(config)
	if err != nil {
		return nil, err
	}

	reg := registry.New(registry.WithPalette(config.Palette))
	reg.Seed(config.seedItems())

	endpoint := broadcast.NewEndpointID()
	orchestrator := control.NewOrchestrator(
		reg,
		broadcast.NewChannel[models.SyncSnapshot](bus, broadcast.SnapshotChannel, endpoint),
		broadcast.NewChannel[models.Outcome](bus, broadcast.OutcomeChannel, endpoint),
	)

	gatewayConfig := gateway.DefaultConfig()
	gatewayConfig.Roulette = config.Roulette
	gatewayConfig.FPS = config.FPS
	gatewayConfig.RandomSnap = config.RandomSnap
	gatewayConfig.Seed = config.Seed

	log.Info().
		Str("sync_backend", config.Sync.Backend).
		Int("matches", reg.Len()).
		Bool("random_snap", config.RandomSnap).
		Msg("services configured")

	return &Services{
		Bus:          bus,
		Orchestrator: orchestrator,
		Control:      control.NewHandler(orchestrator),
		Gateway:      gateway.NewService(gatewayConfig, bus, orchestrator),
	}, nil
}
