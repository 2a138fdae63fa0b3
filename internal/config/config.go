// Package config provides configuration management for crawljobs. It loads
// and validates configuration values from both YAML files and environment
// variables using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/jonesrussell/crawljobs/internal/config/app"
	"github.com/jonesrussell/crawljobs/internal/config/commands"
	"github.com/jonesrussell/crawljobs/internal/config/server"
	"github.com/jonesrussell/crawljobs/internal/dispatcher"
	"github.com/jonesrussell/crawljobs/internal/logger"
	platredis "github.com/jonesrussell/crawljobs/internal/platform/redis"
	"github.com/jonesrussell/crawljobs/internal/store"
	"github.com/spf13/viper"
)

// Interface defines the interface for configuration management.
type Interface interface {
	GetAppConfig() *app.Config
	GetLogConfig() *logger.Config
	GetServerConfig() *server.Config
	GetPostgresConfig() store.Config
	GetRedisConfig() platredis.Config
	GetDispatcherConfig() dispatcher.Config
	GetSchedulerTickInterval() time.Duration
	GetCommand() string
	GetConfigFile() string
	Validate() error
}

// Default configuration values
const (
	DefaultServerAddress      = ":8080"
	DefaultServerReadTimeout  = 15 * time.Second
	DefaultServerWriteTimeout = 15 * time.Second
	DefaultServerIdleTimeout  = 60 * time.Second

	DefaultSchedulerTickInterval = 30 * time.Second
)

// Ensure Config implements Interface
var _ Interface = (*Config)(nil)

// Config represents the application configuration.
type Config struct {
	// App holds application-specific configuration
	App *app.Config `yaml:"app"`
	// Logger holds logging-specific configuration
	Logger *logger.Config `yaml:"logger"`
	// Server holds the HTTP API server's configuration
	Server *server.Config `yaml:"server"`
	// Postgres holds the State Store's Postgres connection configuration
	Postgres store.Config `yaml:"postgres"`
	// Redis holds the Ephemeral Store's Redis connection configuration
	Redis platredis.Config `yaml:"redis"`
	// Dispatcher holds the Worker Dispatcher's pool configuration
	Dispatcher dispatcher.Config `yaml:"dispatcher"`
	// SchedulerTickInterval is how often the Scheduler checks for due schedules
	SchedulerTickInterval time.Duration `yaml:"scheduler_tick_interval"`
	// Command is the current command being executed (serve/worker/scheduler/jobs)
	Command string `yaml:"command"`

	logger logger.Interface
}

// NewConfig creates a new config instance.
func NewConfig(log logger.Interface) *Config {
	return &Config{logger: log}
}

// Validate validates the configuration based on the current command.
func (c *Config) Validate() error {
	switch c.Command {
	case commands.Serve:
		if err := c.Server.Validate(); err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return c.validateStoreConfig()
	case commands.Worker, commands.Scheduler:
		return c.validateStoreConfig()
	case commands.Jobs:
		return c.validateStoreConfig()
	}
	return nil
}

func (c *Config) validateStoreConfig() error {
	if c.Postgres.Host == "" {
		return &ValidationError{Field: "postgres.host", Value: "", Reason: "required"}
	}
	if c.Redis.Address == "" {
		return &ValidationError{Field: "redis.address", Value: "", Reason: "required"}
	}
	return c.Dispatcher.Validate()
}

// LoadConfig loads the configuration from Viper.
func LoadConfig() (*Config, error) {
	logLevel := logger.InfoLevel
	if viper.IsSet("logger.level") {
		logLevel = logger.Level(viper.GetString("logger.level"))
	} else if viper.GetBool("app.debug") {
		logLevel = logger.DebugLevel
	}

	tempLogger, err := logger.New(&logger.Config{
		Level:       logLevel,
		Development: viper.GetBool("logger.development") || viper.GetBool("app.debug"),
		Encoding:    "console",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create temporary logger: %w", err)
	}

	dispatcherCfg := dispatcher.DefaultConfig()
	if viper.IsSet("dispatcher.pool_size") {
		dispatcherCfg.PoolSize = viper.GetInt("dispatcher.pool_size")
	}
	if viper.IsSet("dispatcher.drain_timeout") {
		dispatcherCfg.DrainTimeout = viper.GetDuration("dispatcher.drain_timeout")
	}
	if viper.IsSet("dispatcher.job_timeout") {
		dispatcherCfg.JobTimeout = viper.GetDuration("dispatcher.job_timeout")
	}
	if viper.IsSet("dispatcher.health_check_interval") {
		dispatcherCfg.HealthCheckInterval = viper.GetDuration("dispatcher.health_check_interval")
	}
	if viper.IsSet("dispatcher.dequeue_interval") {
		dispatcherCfg.DequeueInterval = viper.GetDuration("dispatcher.dequeue_interval")
	}

	cfg := &Config{
		App: &app.Config{
			Name:        viper.GetString("app.name"),
			Version:     viper.GetString("app.version"),
			Environment: viper.GetString("app.environment"),
			Debug:       viper.GetBool("app.debug"),
		},
		Logger: &logger.Config{
			Level:       logLevel,
			Development: viper.GetBool("logger.development"),
			Encoding:    viper.GetString("logger.encoding"),
			OutputPaths: viper.GetStringSlice("logger.output_paths"),
			EnableColor: viper.GetBool("logger.enable_color"),
		},
		Server: &server.Config{
			Address:         viper.GetString("server.address"),
			ReadTimeout:     viper.GetDuration("server.read_timeout"),
			WriteTimeout:    viper.GetDuration("server.write_timeout"),
			IdleTimeout:     viper.GetDuration("server.idle_timeout"),
			SecurityEnabled: viper.GetBool("server.security_enabled"),
			APIKey:          viper.GetString("server.api_key"),
		},
		Postgres: store.Config{
			Host:     viper.GetString("postgres.host"),
			Port:     viper.GetString("postgres.port"),
			User:     viper.GetString("postgres.user"),
			Password: viper.GetString("postgres.password"),
			DBName:   viper.GetString("postgres.dbname"),
			SSLMode:  viper.GetString("postgres.sslmode"),
		},
		Redis: platredis.Config{
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Dispatcher:            dispatcherCfg,
		SchedulerTickInterval: viper.GetDuration("scheduler.tick_interval"),
		Command:               viper.GetString("command"),
		logger:                tempLogger,
	}

	if cfg.App.Name == "" {
		cfg.App.Name = "crawljobs"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "1.0.0"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = DefaultServerAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultServerWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultServerIdleTimeout
	}
	if cfg.SchedulerTickInterval == 0 {
		cfg.SchedulerTickInterval = DefaultSchedulerTickInterval
	}

	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, fmt.Errorf("invalid config: %w", validateErr)
	}

	return cfg, nil
}

// GetAppConfig returns the application configuration.
func (c *Config) GetAppConfig() *app.Config { return c.App }

// GetLogConfig returns the logging configuration.
func (c *Config) GetLogConfig() *logger.Config { return c.Logger }

// GetServerConfig returns the HTTP API server configuration.
func (c *Config) GetServerConfig() *server.Config { return c.Server }

// GetPostgresConfig returns the State Store's Postgres configuration.
func (c *Config) GetPostgresConfig() store.Config { return c.Postgres }

// GetRedisConfig returns the Ephemeral Store's Redis configuration.
func (c *Config) GetRedisConfig() platredis.Config { return c.Redis }

// GetDispatcherConfig returns the Worker Dispatcher's pool configuration.
func (c *Config) GetDispatcherConfig() dispatcher.Config { return c.Dispatcher }

// GetSchedulerTickInterval returns how often the Scheduler checks for due schedules.
func (c *Config) GetSchedulerTickInterval() time.Duration { return c.SchedulerTickInterval }

// GetCommand returns the current command.
func (c *Config) GetCommand() string { return c.Command }

// GetConfigFile returns the path to the configuration file.
func (c *Config) GetConfigFile() string { return viper.ConfigFileUsed() }
