// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (MAGPIE_* runtime override)
//  2. Config file (~/.magpie/config.yaml)
//  3. Default values
//
// Error Handling:
//   - Sentinel errors for Go-idiomatic checking with errors.Is()
//   - Load validates immediately (fail-fast)
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

var (
	// ErrInvalidBackendURL indicates the backend base URL is missing or malformed.
	ErrInvalidBackendURL = errors.New("invalid backend URL")

	// ErrInvalidAppName indicates the platform application name is empty.
	ErrInvalidAppName = errors.New("invalid app name")

	// ErrInvalidUserID indicates the platform user ID is empty.
	ErrInvalidUserID = errors.New("invalid user ID")

	// ErrInvalidTimeout indicates the request timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid request timeout")

	// ErrInvalidLogLevel indicates the configured log level is unknown.
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// Defaults applied when neither the config file nor the environment provides
// a value.
const (
	// DefaultBackendURL points at a locally running MAGPIE API server.
	DefaultBackendURL = "http://localhost:8000"

	// DefaultAppName is the agent application registered on the platform.
	// The master coordinator is the entry point for every exchange.
	DefaultAppName = "master_coordinator"

	// DefaultRequestTimeout bounds a single streaming exchange.
	DefaultRequestTimeout = 5 * time.Minute

	// MinRequestTimeout and MaxRequestTimeout bound user overrides.
	MinRequestTimeout = 5 * time.Second
	MaxRequestTimeout = 30 * time.Minute

	// configDirName is the per-user directory holding config and state.
	configDirName = ".magpie"

	// historyDBName is the SQLite file holding local conversation history.
	historyDBName = "history.db"
)

// Config holds all client configuration.
type Config struct {
	// BackendURL is the base URL of the MAGPIE API server.
	BackendURL string `mapstructure:"backend_url"`

	// AppName is the agent application to address (the coordinator).
	AppName string `mapstructure:"app_name"`

	// UserID identifies this user to the platform.
	UserID string `mapstructure:"user_id"`

	// RequestTimeout bounds a single streaming exchange end to end.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	// HistoryDBPath is the SQLite database for local conversation history.
	// Empty means <config dir>/history.db.
	HistoryDBPath string `mapstructure:"history_db_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`

	// LogJSON switches log output to JSON format.
	LogJSON bool `mapstructure:"log_json"`
}

// Dir returns the per-user magpie directory (~/.magpie), creating it if
// needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}

	dir := filepath.Join(home, configDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	return dir, nil
}

// Load reads configuration from all sources and validates it.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{dir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if cfg.HistoryDBPath == "" {
		cfg.HistoryDBPath = filepath.Join(dir, historyDBName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers default values for every key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend_url", DefaultBackendURL)
	v.SetDefault("app_name", DefaultAppName)
	v.SetDefault("user_id", defaultUserID())
	v.SetDefault("request_timeout", DefaultRequestTimeout)
	v.SetDefault("history_db_path", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables maps MAGPIE_* environment variables to config keys.
func bindEnvVariables(v *viper.Viper) {
	v.SetEnvPrefix("MAGPIE")
	// Explicit bindings keep the variable names discoverable.
	for _, key := range []string{
		"backend_url",
		"app_name",
		"user_id",
		"request_timeout",
		"history_db_path",
		"log_level",
		"log_json",
	} {
		_ = v.BindEnv(key)
	}
}

// defaultUserID derives a stable user identity from the OS user, falling back
// to a fixed value where unavailable.
func defaultUserID() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u := os.Getenv("USERNAME"); u != "" { // Windows
		return u
	}
	return "magpie-user"
}

// Validate checks all configuration values, returning the first violation.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BackendURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBackendURL, c.BackendURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBackendURL, u.Scheme)
	}

	if c.AppName == "" {
		return ErrInvalidAppName
	}
	if c.UserID == "" {
		return ErrInvalidUserID
	}

	if c.RequestTimeout < MinRequestTimeout || c.RequestTimeout > MaxRequestTimeout {
		return fmt.Errorf("%w: %s (must be between %s and %s)",
			ErrInvalidTimeout, c.RequestTimeout, MinRequestTimeout, MaxRequestTimeout)
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}
