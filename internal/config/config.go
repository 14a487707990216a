package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Scoring  ScoringConfig  `toml:"scoring"`
	Instance InstanceConfig `toml:"instance"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type AuthConfig struct {
	JWTSecret      string `toml:"jwt_secret"`
	TokenExpiryMin int    `toml:"token_expiry_min"`
}

// ScoringConfig tunes the non-formula scoring knobs. The formula weights
// themselves are fixed constants, not configuration.
type ScoringConfig struct {
	// TemporalHalfLifeDays is the decay half-life for time-sensitive
	// evidence. Zero disables temporal decay.
	TemporalHalfLifeDays int `toml:"temporal_half_life_days"`
	// ReputationCacheTTLMin bounds the staleness of cached vote-weight
	// snapshots.
	ReputationCacheTTLMin int `toml:"reputation_cache_ttl_min"`
	// TraceRecalcs enables async persistence of recalculation traces.
	TraceRecalcs bool `toml:"trace_recalcs"`
}

type InstanceConfig struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Database: DatabaseConfig{
			Path: "data/graphs.db",
		},
		Auth: AuthConfig{
			JWTSecret:      "change-me-in-production",
			TokenExpiryMin: 1440, // 24h
		},
		Scoring: ScoringConfig{
			TemporalHalfLifeDays:  90,
			ReputationCacheTTLMin: 5,
		},
		Instance: InstanceConfig{
			ID:   "local",
			Name: "veragraph-local",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}
