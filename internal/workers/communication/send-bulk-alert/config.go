package sendbulkalert

import (
	"fmt"
	"time"

	"signalx/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// MaxReports bounds one digest.
	MaxReports int
}

func DefaultConfig() *Config {
	return &Config{Timeout: 60 * time.Second, MaxReports: 500}
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
	if c.MaxReports <= 0 {
		return fmt.Errorf("max_reports must be positive")
	}
	return nil
}
