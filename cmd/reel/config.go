// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigFileName is the name of the config file
	DefaultConfigFileName = "reel"
)

// Config holds all configuration for reel.
// Priority: CLI flags > config file > env vars > defaults
type Config struct {
	// DataDir is the reel data directory (computed from REEL_DATA_DIR env
	// var or ~/.reel). This field is set during config initialization and
	// is read-only. It is not loaded from the config file - use the
	// REEL_DATA_DIR environment variable to override.
	DataDir string `mapstructure:"-" yaml:"-"`

	// Store configuration
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Cache configuration
	Cache CacheConfig `mapstructure:"cache" yaml:"cache"`

	// Server configuration
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// StoreConfig holds durable store configuration.
type StoreConfig struct {
	// Dir is the store directory (default: $REEL_DATA_DIR/media)
	Dir string `mapstructure:"dir" yaml:"dir"`

	// InMemory swaps the filesystem store for a volatile in-memory one.
	// Serve-only convenience; nothing survives a restart.
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`

	// Watch enables the blob directory watcher so out-of-band removals
	// invalidate cached handles (default: true)
	Watch bool `mapstructure:"watch" yaml:"watch"`

	// WatchDebounceMs is the debounce window for watcher events (default: 500)
	WatchDebounceMs int `mapstructure:"watch_debounce_ms" yaml:"watch_debounce_ms"`
}

// CacheConfig holds handle cache configuration.
type CacheConfig struct {
	// Capacity is the soft upper bound on cached handles (default: 50).
	// Leased handles are never evicted, so the cache can exceed it.
	Capacity int `mapstructure:"capacity" yaml:"capacity"`

	// MaxAttempts is the total materialization attempts per miss (default: 3)
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`

	// BaseDelayMs is the backoff before the first retry; doubles per
	// attempt (default: 500)
	BaseDelayMs int `mapstructure:"base_delay_ms" yaml:"base_delay_ms"`

	// MaxDelayMs caps the backoff between attempts (default: 2000)
	MaxDelayMs int `mapstructure:"max_delay_ms" yaml:"max_delay_ms"`

	// ScratchDir is where handle scratch files are written (default: OS
	// temp dir)
	ScratchDir string `mapstructure:"scratch_dir" yaml:"scratch_dir"`

	// RetainReleased keeps zero-reference handles cached until capacity
	// pressure reclaims them (default: true)
	RetainReleased bool `mapstructure:"retain_released" yaml:"retain_released"`
}

// ServerConfig holds daemon configuration.
type ServerConfig struct {
	// Addr is the listen address (default: 127.0.0.1:7450)
	Addr string `mapstructure:"addr" yaml:"addr"`

	// LeaseTTLSeconds is the lifetime of leases granted over HTTP (default: 300)
	LeaseTTLSeconds int `mapstructure:"lease_ttl_seconds" yaml:"lease_ttl_seconds"`

	// ReapIntervalSeconds is how often expired grants are released (default: 30)
	ReapIntervalSeconds int `mapstructure:"reap_interval_seconds" yaml:"reap_interval_seconds"`

	// MaxUploadMB bounds a single ingest request body (default: 512)
	MaxUploadMB int64 `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	// CORS configuration for browser consumers
	CORS CORSConfig `mapstructure:"cors" yaml:"cors"`
}

// CORSConfig holds cross-origin configuration for the daemon.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level"`

	// Format selects the encoder (text, json)
	Format string `mapstructure:"format" yaml:"format"`

	// File redirects log output to a file instead of stderr
	File string `mapstructure:"file" yaml:"file"`
}

// dataDir returns the reel data directory.
func dataDir() string {
	if dir := os.Getenv("REEL_DATA_DIR"); dir != "" {
		return expandPath(dir)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir cannot be determined
		return ".reel"
	}
	return filepath.Join(homeDir, ".reel")
}

// expandPath expands a leading ~/ and makes the path absolute.
func expandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

// LoadConfig loads configuration from multiple sources with proper priority:
// 1. Command line flags (highest priority)
// 2. Config file
// 3. Environment variables
// 4. Defaults (lowest priority)
func LoadConfig(cfgFile string) (*Config, error) {
	// Set defaults
	setDefaults()

	// Setup config file
	if cfgFile != "" {
		// Use config file from flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in standard locations
		viper.AddConfigPath(dataDir()) // Reel data directory (respects REEL_DATA_DIR)
		viper.AddConfigPath(".")       // Current directory
		viper.AddConfigPath("/etc/reel/")
		viper.SetConfigName(DefaultConfigFileName) // reel.yaml
		viper.SetConfigType("yaml")
	}

	// Read config file (if it exists)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error occurred
			return nil, fmt.Errorf("error reading config file %s: %w", viper.ConfigFileUsed(), err)
		}
		// Config file not found; using defaults + env vars + flags
	}

	// Bind environment variables
	viper.SetEnvPrefix("REEL")
	viper.AutomaticEnv()

	// Unmarshal config
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Set DataDir from environment or default
	// This must be done after unmarshal since it's not loaded from config file
	config.DataDir = dataDir()

	return &config, nil
}

// setDefaults sets default configuration values.
func setDefaults() {
	// Store defaults (use reel data directory)
	viper.SetDefault("store.dir", filepath.Join(dataDir(), "media"))
	viper.SetDefault("store.in_memory", false)
	viper.SetDefault("store.watch", true)
	viper.SetDefault("store.watch_debounce_ms", 500)

	// Cache defaults
	viper.SetDefault("cache.capacity", 50)
	viper.SetDefault("cache.max_attempts", 3)
	viper.SetDefault("cache.base_delay_ms", 500)
	viper.SetDefault("cache.max_delay_ms", 2000)
	viper.SetDefault("cache.scratch_dir", "")
	viper.SetDefault("cache.retain_released", true)

	// Server defaults
	viper.SetDefault("server.addr", "127.0.0.1:7450")
	viper.SetDefault("server.lease_ttl_seconds", 300)
	viper.SetDefault("server.reap_interval_seconds", 30)
	viper.SetDefault("server.max_upload_mb", 512)

	// CORS defaults (permissive for development, MUST be configured for production)
	viper.SetDefault("server.cors.enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{"*"})
	viper.SetDefault("server.cors.allowed_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	viper.SetDefault("server.cors.allowed_headers", []string{"*"})
	viper.SetDefault("server.cors.exposed_headers", []string{"Content-Length", "Content-Type"})
	viper.SetDefault("server.cors.allow_credentials", false)
	viper.SetDefault("server.cors.max_age", 86400) // 24 hours

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.file", "")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Store.Dir == "" && !c.Store.InMemory {
		return fmt.Errorf("store.dir is required (set --store-dir, REEL_STORE_DIR, or store.dir in config)")
	}

	if c.Cache.Capacity < 1 {
		return fmt.Errorf("invalid cache.capacity: %d (must be at least 1)", c.Cache.Capacity)
	}
	if c.Cache.MaxAttempts < 1 {
		return fmt.Errorf("invalid cache.max_attempts: %d (must be at least 1)", c.Cache.MaxAttempts)
	}
	if c.Cache.BaseDelayMs < 0 || c.Cache.MaxDelayMs < 0 {
		return fmt.Errorf("cache backoff delays must not be negative")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.LeaseTTLSeconds < 1 {
		return fmt.Errorf("invalid server.lease_ttl_seconds: %d (must be at least 1)", c.Server.LeaseTTLSeconds)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("invalid server.max_upload_mb: %d (must be at least 1)", c.Server.MaxUploadMB)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %q (must be debug, info, warn, or error)", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format: %q (must be text or json)", c.Logging.Format)
	}

	return nil
}
