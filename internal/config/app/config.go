// Package app provides application identity configuration.
package app

import "errors"

var validEnvironments = map[string]bool{
	"development": true,
	"staging":     true,
	"production":  true,
}

// Config represents application-specific configuration settings.
type Config struct {
	// Name is the name of the application
	Name string `yaml:"name"`
	// Version is the version of the application
	Version string `yaml:"version"`
	// Environment is the application environment (development, staging, production)
	Environment string `yaml:"environment"`
	// Debug indicates whether debug mode is enabled
	Debug bool `yaml:"debug"`
}

// Validate checks that the required identity fields are present and that
// Environment is one of development/staging/production.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return errors.New("environment is required")
	}
	if !validEnvironments[c.Environment] {
		return errors.New("environment must be one of development, staging, production")
	}
	if c.Name == "" {
		return errors.New("name is required")
	}
	if c.Version == "" {
		return errors.New("version is required")
	}
	return nil
}

// Option configures a Config built via New.
type Option func(*Config)

// WithEnvironment sets the application environment.
func WithEnvironment(env string) Option {
	return func(c *Config) { c.Environment = env }
}

// WithName sets the application name.
func WithName(name string) Option {
	return func(c *Config) { c.Name = name }
}

// WithVersion sets the application version.
func WithVersion(version string) Option {
	return func(c *Config) { c.Version = version }
}

// WithDebug sets the application's debug flag.
func WithDebug(debug bool) Option {
	return func(c *Config) { c.Debug = debug }
}

// New creates a Config with crawljobs' default identity, applying opts on top.
func New(opts ...Option) *Config {
	cfg := &Config{
		Environment: "development",
		Name:        "crawljobs",
		Version:     "0.1.0",
		Debug:       false,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
