// Package server provides server configuration types and functions.
package server

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// APIKeyParts is the number of parts in an API key (id:key)
const APIKeyParts = 2

// Config represents the HTTP API server's configuration.
type Config struct {
	// Address is the address to listen on (e.g., ":8080")
	Address string `yaml:"address"`
	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration `yaml:"read_timeout"`
	// WriteTimeout is the maximum duration before timing out writes of the response
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	// SecurityEnabled determines if API key auth is enforced
	SecurityEnabled bool `yaml:"security_enabled"`
	// APIKey is the API key used for authentication, in "id:key" form
	APIKey string `yaml:"api_key"`
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !c.SecurityEnabled {
		return nil
	}
	if c.APIKey == "" {
		return errors.New("server security is enabled but no API key is provided")
	}

	parts := strings.Split(c.APIKey, ":")
	if len(parts) != APIKeyParts {
		return fmt.Errorf("invalid API key format: expected 'id:key' but got %q", c.APIKey)
	}
	if parts[0] == "" {
		return errors.New("API key ID cannot be empty")
	}
	if parts[1] == "" {
		return errors.New("API key value cannot be empty")
	}
	return nil
}

// NewConfig creates a new Config instance with default values.
func NewConfig() *Config {
	return &Config{}
}
