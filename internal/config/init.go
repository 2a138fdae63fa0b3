package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// InitializeViper initializes Viper configuration from environment variables and config files.
// This must be called before LoadConfig() to ensure Viper is properly configured.
func InitializeViper() error {
	loadEnvFile()
	setupViper()
	setDefaults()
	readConfigFile()

	if err := bindEnvironmentVariables(); err != nil {
		return fmt.Errorf("failed to bind environment variables: %w", err)
	}

	setupDevelopmentLogging()
	return nil
}

// loadEnvFile loads .env file (ignores error if file doesn't exist).
func loadEnvFile() {
	_ = godotenv.Load()
}

// setupViper configures Viper for environment variable and config file reading.
func setupViper() {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
}

// readConfigFile reads config file (ignores error if file doesn't exist).
func readConfigFile() {
	_ = viper.ReadInConfig()
}

// bindEnvironmentVariables binds all environment variables to config keys.
func bindEnvironmentVariables() error {
	if err := bindAppEnvVars(); err != nil {
		return fmt.Errorf("failed to bind app env vars: %w", err)
	}
	if err := bindPostgresEnvVars(); err != nil {
		return fmt.Errorf("failed to bind postgres env vars: %w", err)
	}
	if err := bindRedisEnvVars(); err != nil {
		return fmt.Errorf("failed to bind redis env vars: %w", err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app", map[string]any{
		"name":        "crawljobs",
		"version":     "1.0.0",
		"environment": "production",
		"debug":       false,
	})

	viper.SetDefault("logger", map[string]any{
		"level":        "info",
		"development":  false,
		"encoding":     "json",
		"output_paths": []string{"stdout"},
		"enable_color": false,
	})

	viper.SetDefault("server", map[string]any{
		"address":          DefaultServerAddress,
		"read_timeout":     "15s",
		"write_timeout":    "15s",
		"idle_timeout":     "60s",
		"security_enabled": false,
	})

	viper.SetDefault("postgres", map[string]any{
		"host":    "localhost",
		"port":    "5432",
		"user":    "postgres",
		"dbname":  "crawljobs",
		"sslmode": "disable",
	})

	viper.SetDefault("redis", map[string]any{
		"address": "localhost:6379",
		"db":      0,
	})

	viper.SetDefault("dispatcher", map[string]any{
		"pool_size":             4,
		"drain_timeout":         "30s",
		"job_timeout":           "1h",
		"health_check_interval": "30s",
		"dequeue_interval":      "1s",
	})

	viper.SetDefault("scheduler", map[string]any{
		"tick_interval": "30s",
	})
}

// bindAppEnvVars binds application and logger environment variables to config keys.
func bindAppEnvVars() error {
	if err := viper.BindEnv("app.environment", "APP_ENV"); err != nil {
		return fmt.Errorf("failed to bind APP_ENV: %w", err)
	}
	if err := viper.BindEnv("app.debug", "APP_DEBUG"); err != nil {
		return fmt.Errorf("failed to bind APP_DEBUG: %w", err)
	}
	if err := viper.BindEnv("logger.level", "LOG_LEVEL"); err != nil {
		return fmt.Errorf("failed to bind LOG_LEVEL: %w", err)
	}
	if err := viper.BindEnv("logger.encoding", "LOG_FORMAT"); err != nil {
		return fmt.Errorf("failed to bind LOG_FORMAT: %w", err)
	}
	if err := viper.BindEnv("server.api_key", "CRAWLJOBS_API_KEY"); err != nil {
		return fmt.Errorf("failed to bind CRAWLJOBS_API_KEY: %w", err)
	}
	return nil
}

// bindPostgresEnvVars binds Postgres environment variables to config keys.
func bindPostgresEnvVars() error {
	if err := viper.BindEnv("postgres.host", "POSTGRES_HOST", "DB_HOST"); err != nil {
		return fmt.Errorf("failed to bind postgres host: %w", err)
	}
	if err := viper.BindEnv("postgres.port", "POSTGRES_PORT", "DB_PORT"); err != nil {
		return fmt.Errorf("failed to bind postgres port: %w", err)
	}
	if err := viper.BindEnv("postgres.user", "POSTGRES_USER", "DB_USER"); err != nil {
		return fmt.Errorf("failed to bind postgres user: %w", err)
	}
	if err := viper.BindEnv("postgres.password", "POSTGRES_PASSWORD", "DB_PASSWORD"); err != nil {
		return fmt.Errorf("failed to bind postgres password: %w", err)
	}
	if err := viper.BindEnv("postgres.dbname", "POSTGRES_DB", "DB_NAME"); err != nil {
		return fmt.Errorf("failed to bind postgres dbname: %w", err)
	}
	if err := viper.BindEnv("postgres.sslmode", "POSTGRES_SSLMODE", "DB_SSLMODE"); err != nil {
		return fmt.Errorf("failed to bind postgres sslmode: %w", err)
	}
	return nil
}

// bindRedisEnvVars binds Redis environment variables to config keys.
func bindRedisEnvVars() error {
	if err := viper.BindEnv("redis.address", "REDIS_ADDRESS", "REDIS_URL"); err != nil {
		return fmt.Errorf("failed to bind redis address: %w", err)
	}
	if err := viper.BindEnv("redis.password", "REDIS_PASSWORD"); err != nil {
		return fmt.Errorf("failed to bind redis password: %w", err)
	}
	if err := viper.BindEnv("redis.db", "REDIS_DB"); err != nil {
		return fmt.Errorf("failed to bind redis db: %w", err)
	}
	return nil
}

// setupDevelopmentLogging configures logging settings based on environment variables.
// It separates concerns: debug level (controlled by APP_DEBUG) vs development
// formatting (controlled by APP_ENV).
func setupDevelopmentLogging() {
	debugFlag := viper.GetBool("app.debug")
	isDev := viper.GetString("app.environment") == "development"

	if debugFlag {
		viper.Set("logger.level", "debug")
	}

	if isDev {
		viper.Set("logger.development", true)
		viper.Set("logger.enable_color", true)
		viper.Set("logger.encoding", "console")
	}
}
