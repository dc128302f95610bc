package main

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	modeEmbedded = "embedded"
	modeShared   = "shared"

	envDatabaseURL = "ROUTED_DATABASE_URL"
	envListenAddr  = "ROUTED_LISTEN_ADDR"
)

// Config drives the routed server. It is loaded from a YAML file, with a few
// deployment-specific values overridable through the environment.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Dataset  DatasetConfig  `yaml:"dataset"`
	Registry RegistryConfig `yaml:"registry"`
	Limits   LimitsConfig   `yaml:"limits"`
}

type ServerConfig struct {
	ListenAddr               string `yaml:"listen_addr"`
	ReadHeaderTimeoutSeconds int    `yaml:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int    `yaml:"shutdown_timeout_seconds"`
}

// DatasetConfig selects embedded mode (a fixed snapshot file loaded at startup)
// or shared mode (snapshots published through the registry and hot-swapped).
type DatasetConfig struct {
	Mode   string `yaml:"mode"`
	Path   string `yaml:"path"`
	Region string `yaml:"region"`
}

type RegistryConfig struct {
	DatabaseURL         string `yaml:"database_url"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

// LimitsConfig caps the request sizes per capability. 0 means unlimited.
type LimitsConfig struct {
	MaxLocationsRoute   int `yaml:"max_locations_route"`
	MaxLocationsTable   int `yaml:"max_locations_table"`
	MaxResultsNearest   int `yaml:"max_results_nearest"`
	MaxLocationsTrip    int `yaml:"max_locations_trip"`
	MaxTracePointsMatch int `yaml:"max_trace_points_match"`
}

// LoadConfig reads the YAML config file and applies environment overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			ListenAddr:               ":5000",
			ReadHeaderTimeoutSeconds: 10,
			ShutdownTimeoutSeconds:   15,
		},
		Dataset: DatasetConfig{
			Mode: modeEmbedded,
		},
		Registry: RegistryConfig{
			PollIntervalSeconds: 5,
		},
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	if dsn := os.Getenv(envDatabaseURL); dsn != "" {
		cfg.Registry.DatabaseURL = dsn
	}
	if addr := os.Getenv(envListenAddr); addr != "" {
		cfg.Server.ListenAddr = addr
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Dataset.Mode {
	case modeEmbedded:
		if c.Dataset.Path == "" {
			return fmt.Errorf("dataset.path is required in embedded mode")
		}
	case modeShared:
		if c.Dataset.Region == "" {
			return fmt.Errorf("dataset.region is required in shared mode")
		}
		if c.Registry.DatabaseURL == "" {
			return fmt.Errorf("registry.database_url (or %s) is required in shared mode", envDatabaseURL)
		}
	default:
		return fmt.Errorf("dataset.mode must be %q or %q, got %q", modeEmbedded, modeShared, c.Dataset.Mode)
	}

	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Registry.PollIntervalSeconds <= 0 {
		return fmt.Errorf("registry.poll_interval_seconds must be positive")
	}

	return nil
}

func (c ServerConfig) ReadHeaderTimeout() time.Duration {
	return time.Duration(c.ReadHeaderTimeoutSeconds) * time.Second
}

func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

func (c RegistryConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}
