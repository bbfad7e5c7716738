package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/mcdev12/roulette/go/internal/models"
	"github.com/mcdev12/roulette/go/internal/scheduler"
	"gopkg.in/yaml.v3"
)

const (
	SyncBackendMemory = "memory"
	SyncBackendNATS   = "nats"
)

type Config struct {
	Port       string                `yaml:"port"`
	Roulette   models.RouletteConfig `yaml:"roulette"`
	FPS        int                   `yaml:"fps"`
	RandomSnap bool                  `yaml:"random_snap"`
	Seed       uint64                `yaml:"seed"`
	Palette    []string              `yaml:"palette"`
	Matches    []MatchConfig         `yaml:"matches"`
	Sync       SyncConfig            `yaml:"sync"`
}

type MatchConfig struct {
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

type SyncConfig struct {
	Backend       string `yaml:"backend"`
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
	BufferSize    int    `yaml:"buffer_size"`
}

func defaultConfig() *Config {
	return &Config{
		Port:     "8080",
		Roulette: models.DefaultRouletteConfig(),
		FPS:      scheduler.DefaultFPS,
		Matches: []MatchConfig{
			{Left: "Mint chocolate", Right: "Plain chocolate"},
			{Left: "Cats", Right: "Dogs"},
			{Left: "Summer", Right: "Winter"},
			{Left: "Coffee", Right: "Tea"},
			{Left: "Morning person", Right: "Night owl"},
		},
		Sync: SyncConfig{
			Backend:       SyncBackendMemory,
			NATSURL:       "nats://localhost:4222",
			SubjectPrefix: "roulette",
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.Port = getEnv("PORT", config.Port)
	config.FPS = getEnvAsInt("FPS", config.FPS)
	config.RandomSnap = getEnvAsBool("RANDOM_SNAP", config.RandomSnap)
	config.Sync.Backend = strings.ToLower(getEnv("SYNC_BACKEND", config.Sync.Backend))
	config.Sync.NATSURL = getEnv("NATS_URL", config.Sync.NATSURL)

	if err := config.Roulette.Validate(); err != nil {
		return nil, err
	}
	switch config.Sync.Backend {
	case SyncBackendMemory, SyncBackendNATS:
	default:
		return nil, fmt.Errorf("unknown sync backend %q", config.Sync.Backend)
	}

	return config, nil
}

func (c *Config) seedItems() []models.MatchItem {
	items := make([]models.MatchItem, 0, len(c.Matches))
	for _, m := range c.Matches {
		left, right := strings.TrimSpace(m.Left), strings.TrimSpace(m.Right)
		if left == "" || right == "" {
			continue
		}
		items = append(items, models.MatchItem{Text: models.JoinSides(left, right)})
	}
	return items
}
