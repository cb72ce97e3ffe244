package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jimmy058910/realmrivalry-live/internal/match/engine"
	"github.com/jimmy058910/realmrivalry-live/internal/match/outbox"
	"gopkg.in/yaml.v3"
)

// AppConfig is the YAML-configurable part of the server. Connection settings
// (database, NATS, port) come from the environment instead.
type AppConfig struct {
	Engine engine.Config `yaml:"engine"`
	Outbox struct {
		PollInterval time.Duration `yaml:"poll_interval"`
		BatchSize    int32         `yaml:"batch_size"`
	} `yaml:"outbox"`
}

func defaultAppConfig() *AppConfig {
	cfg := &AppConfig{
		Engine: engine.DefaultConfig(),
	}
	outboxDefaults := outbox.DefaultConfig()
	cfg.Outbox.PollInterval = outboxDefaults.PollInterval
	cfg.Outbox.BatchSize = outboxDefaults.BatchSize
	return cfg
}

// loadConfig reads the YAML config at path. A missing file is not an error;
// defaults apply.
func loadConfig(path string) (*AppConfig, error) {
	config := defaultAppConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, nil
}

func (c *AppConfig) outboxConfig() outbox.Config {
	cfg := outbox.DefaultConfig()
	if c.Outbox.PollInterval > 0 {
		cfg.PollInterval = c.Outbox.PollInterval
	}
	if c.Outbox.BatchSize > 0 {
		cfg.BatchSize = c.Outbox.BatchSize
	}
	return cfg
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
