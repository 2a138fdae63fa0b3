// Package bootstrap wires the composition root: it loads configuration,
// connects the State Store and Ephemeral Store, and assembles every
// component (Lifecycle Controller, Worker Dispatcher, Scheduler,
// Notification Router, Monitoring View, HTTP API) into the process
// requested by the current command.
package bootstrap

import (
	"errors"
	"fmt"

	"github.com/jonesrussell/crawljobs/internal/config"
	"github.com/jonesrussell/crawljobs/internal/logger"
	"github.com/spf13/viper"
)

var (
	errLoggerRequired = errors.New("logger is required")
	errConfigRequired = errors.New("config is required")
)

// CommandDeps holds the dependencies shared by every subcommand.
type CommandDeps struct {
	Logger logger.Interface
	Config config.Interface
}

// NewCommandDeps loads config and builds the logger every subcommand needs.
// command selects which per-command validation config.LoadConfig applies
// (see config.Config.Validate).
func NewCommandDeps(command string) (*CommandDeps, error) {
	viper.Set("command", command)
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.GetLogConfig())
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	log = log.With("service", cfg.GetAppConfig().Name)

	deps := &CommandDeps{Logger: log, Config: cfg}
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("validate deps: %w", err)
	}
	return deps, nil
}

// Validate ensures every required dependency is present.
func (d *CommandDeps) Validate() error {
	if d.Logger == nil {
		return errLoggerRequired
	}
	if d.Config == nil {
		return errConfigRequired
	}
	return nil
}
