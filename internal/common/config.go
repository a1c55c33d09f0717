// Package common provides shared utilities for the PhotoEvents server
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the PhotoEvents server
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Google      GoogleConfig  `toml:"google"`
	Auth        AuthConfig    `toml:"auth"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds SurrealDB connection configuration.
type StorageConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// GoogleConfig holds Google OAuth client credentials and Calendar settings.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	CalendarID   string `toml:"calendar_id"` // target calendar, default "primary"
	Timezone     string `toml:"timezone"`    // IANA name used for created events
	RateLimit    int    `toml:"rate_limit"`
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *GoogleConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// AuthConfig holds settings for the signed OAuth state parameter.
type AuthConfig struct {
	StateSecret string `toml:"state_secret"`
	StateExpiry string `toml:"state_expiry"` // duration string, default "10m"
}

// GetStateExpiry parses and returns the state token expiry duration.
func (c *AuthConfig) GetStateExpiry() time.Duration {
	d, err := time.ParseDuration(c.StateExpiry)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 3000,
		},
		Storage: StorageConfig{
			Address:   "ws://localhost:8000/rpc",
			Namespace: "photoevents",
			Database:  "photoevents",
			Username:  "root",
			Password:  "root",
		},
		Google: GoogleConfig{
			RedirectURI: "http://localhost:3000/oauth2callback",
			CalendarID:  "primary",
			Timezone:    "America/New_York",
			RateLimit:   10,
			Timeout:     "30s",
		},
		Auth: AuthConfig{
			StateSecret: "dev-state-secret-change-in-production",
			StateExpiry: "10m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PHOTOEVENTS_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("PHOTOEVENTS_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("PHOTOEVENTS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Storage overrides
	if v := os.Getenv("PHOTOEVENTS_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("PHOTOEVENTS_STORAGE_NAMESPACE"); v != "" {
		config.Storage.Namespace = v
	}
	if v := os.Getenv("PHOTOEVENTS_STORAGE_DATABASE"); v != "" {
		config.Storage.Database = v
	}
	if v := os.Getenv("PHOTOEVENTS_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("PHOTOEVENTS_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	// Google overrides use the conventional unprefixed names
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		config.Google.ClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		config.Google.ClientSecret = v
	}
	if v := os.Getenv("GOOGLE_REDIRECT_URI"); v != "" {
		config.Google.RedirectURI = v
	}
	if v := os.Getenv("PHOTOEVENTS_CALENDAR_ID"); v != "" {
		config.Google.CalendarID = v
	}
	if v := os.Getenv("PHOTOEVENTS_TIMEZONE"); v != "" {
		config.Google.Timezone = v
	}

	if v := os.Getenv("PHOTOEVENTS_STATE_SECRET"); v != "" {
		config.Auth.StateSecret = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
