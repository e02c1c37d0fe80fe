// internal/workers/queue/queue-cancel/config.go
package queuecancel

import (
	"fmt"
	"time"

	"notification-queue/internal/common/config"
)

// ConfigKey is the entry under workers: in the config file.
const ConfigKey = "queue-cancel"

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
	}
}

func LoadConfig(app *config.Config) *Config {
	cfg := DefaultConfig()
	if app == nil {
		return cfg
	}
	wc := config.GetWorkerConfig(app, ConfigKey)
	cfg.Enabled = wc.Enabled
	if wc.MaxJobsActive > 0 {
		cfg.MaxJobsActive = wc.MaxJobsActive
	}
	if wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}
