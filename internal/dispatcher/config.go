// Package dispatcher implements the Worker Dispatcher: a pool of concurrent
// workers draining the Queue Manager, executing crawl jobs, and driving the
// Lifecycle Controller through each job's outcome.
package dispatcher

import (
	"errors"
	"time"
)

const (
	DefaultPoolSize            = 4
	DefaultDrainTimeout        = 30 * time.Second
	DefaultJobTimeout          = 1 * time.Hour
	DefaultHealthCheckInterval = 30 * time.Second
	DefaultDequeueInterval     = 1 * time.Second

	MinPoolSize = 1
	MaxPoolSize = 100
)

// Config holds configuration for the worker pool.
type Config struct {
	PoolSize            int
	DrainTimeout        time.Duration
	JobTimeout          time.Duration
	HealthCheckInterval time.Duration
	DequeueInterval     time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PoolSize:            DefaultPoolSize,
		DrainTimeout:        DefaultDrainTimeout,
		JobTimeout:          DefaultJobTimeout,
		HealthCheckInterval: DefaultHealthCheckInterval,
		DequeueInterval:     DefaultDequeueInterval,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.PoolSize < MinPoolSize {
		return errors.New("pool size must be at least 1")
	}
	if c.PoolSize > MaxPoolSize {
		return errors.New("pool size cannot exceed 100")
	}
	if c.DrainTimeout <= 0 {
		return errors.New("drain timeout must be positive")
	}
	if c.JobTimeout <= 0 {
		return errors.New("job timeout must be positive")
	}
	if c.HealthCheckInterval <= 0 {
		return errors.New("health check interval must be positive")
	}
	if c.DequeueInterval <= 0 {
		return errors.New("dequeue interval must be positive")
	}
	return nil
}
