package checksupplydemand

import (
	"fmt"
	"time"

	"signalx/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// DryRun forces every evaluation to skip the admin alert.
	DryRun bool
}

func DefaultConfig() *Config {
	return &Config{Timeout: 60 * time.Second}
}

func FromWorkerConfig(w config.WorkerConfig) *Config {
	cfg := DefaultConfig()
	if w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
