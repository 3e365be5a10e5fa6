// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigDir is the default configuration directory
	DefaultConfigDir = ".engram/configs"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.json"
)

// Load reads configuration from ~/.engram/configs/config.json. The config
// directory is created on first run so users have a place to drop a config
// file.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	if err := EnsureConfigDir(); err != nil {
		return nil, err
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(configPath)

	// Set defaults
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, use defaults
			return loadFromDefaults(v)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadFromPath loads configuration from a specific path
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()

	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.tls.enabled", false)

	// Database defaults
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite_path", filepath.Join(homeDir, ".engram/db/engram.db"))

	// Cognitive engine defaults
	v.SetDefault("cognitive.recent_window_minutes", 30)
	v.SetDefault("cognitive.context_scan_limit", 50)
	v.SetDefault("cognitive.focus_repeat_threshold", 3)
	v.SetDefault("cognitive.entity_filter_limit", 5)
	v.SetDefault("cognitive.active_entity_limit", 10)
	v.SetDefault("cognitive.candidate_multiplier", 2)
	v.SetDefault("cognitive.forgotten_days_threshold", 14)

	// Embedding defaults
	v.SetDefault("embeddings.enabled", false)
	v.SetDefault("embeddings.provider", "openai")
	v.SetDefault("embeddings.base_url", "https://api.openai.com/v1")
	v.SetDefault("embeddings.model", "text-embedding-3-small")
	v.SetDefault("embeddings.api_key_env", "OPENAI_API_KEY")
	v.SetDefault("embeddings.dimensions", 1536)
	v.SetDefault("embeddings.batch_size", 32)

	// Backup defaults
	v.SetDefault("backup.enabled", false)
	v.SetDefault("backup.path", filepath.Join(homeDir, ".engram/backup"))
	v.SetDefault("backup.interval_minutes", 60)
	v.SetDefault("backup.author", "Engram")
	v.SetDefault("backup.email", "memory@engram.local")
}

// loadFromDefaults creates a config from default values
func loadFromDefaults(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal default config: %w", err)
	}
	return &cfg, nil
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	// Validate database type
	if cfg.Database.Type != "sqlite" && cfg.Database.Type != "postgres" {
		return fmt.Errorf("database.type must be 'sqlite' or 'postgres', got '%s'", cfg.Database.Type)
	}

	// Validate database connection info
	if cfg.Database.Type == "sqlite" && cfg.Database.SQLitePath == "" {
		return fmt.Errorf("database.sqlite_path is required when type is 'sqlite'")
	}
	if cfg.Database.Type == "postgres" && cfg.Database.PostgresDSN == "" {
		return fmt.Errorf("database.postgres_dsn is required when type is 'postgres'")
	}

	// Validate server port
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	// Validate cognitive thresholds
	if cfg.Cognitive.RecentWindowMinutes < 1 {
		return fmt.Errorf("cognitive.recent_window_minutes must be at least 1, got %d", cfg.Cognitive.RecentWindowMinutes)
	}
	if cfg.Cognitive.ContextScanLimit < 1 {
		return fmt.Errorf("cognitive.context_scan_limit must be at least 1, got %d", cfg.Cognitive.ContextScanLimit)
	}
	if cfg.Cognitive.FocusRepeatThreshold < 1 {
		return fmt.Errorf("cognitive.focus_repeat_threshold must be at least 1, got %d", cfg.Cognitive.FocusRepeatThreshold)
	}
	if cfg.Cognitive.CandidateMultiplier < 1 {
		return fmt.Errorf("cognitive.candidate_multiplier must be at least 1, got %d", cfg.Cognitive.CandidateMultiplier)
	}

	// Validate embedding provider only if embeddings are enabled
	if cfg.Embeddings.Enabled {
		if !IsValidEmbeddingProvider(cfg.Embeddings.Provider) {
			return fmt.Errorf("embeddings.provider must be one of %v, got '%s'", ValidEmbeddingProviders(), cfg.Embeddings.Provider)
		}
		if cfg.Embeddings.Dimensions < 1 {
			return fmt.Errorf("embeddings.dimensions must be at least 1, got %d", cfg.Embeddings.Dimensions)
		}
	}

	// Validate backup settings only if backup is enabled
	if cfg.Backup.Enabled {
		if cfg.Backup.Path == "" {
			return fmt.Errorf("backup.path is required when backup is enabled")
		}
		if cfg.Backup.SnapshotInterval < 1 {
			return fmt.Errorf("backup.interval_minutes must be at least 1, got %d", cfg.Backup.SnapshotInterval)
		}
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, DefaultConfigDir)
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Database: DatabaseConfig{
			Type:       "sqlite",
			SQLitePath: filepath.Join(homeDir, ".engram/db/engram.db"),
		},
		Cognitive: CognitiveConfig{
			RecentWindowMinutes:    30,
			ContextScanLimit:       50,
			FocusRepeatThreshold:   3,
			EntityFilterLimit:      5,
			ActiveEntityLimit:      10,
			CandidateMultiplier:    2,
			ForgottenDaysThreshold: 14,
		},
		Embeddings: EmbeddingConfig{
			Enabled:    false,
			Provider:   EmbeddingProviderOpenAI,
			BaseURL:    "https://api.openai.com/v1",
			Model:      "text-embedding-3-small",
			APIKeyEnv:  "OPENAI_API_KEY",
			Dimensions: 1536,
			BatchSize:  32,
		},
		Backup: BackupConfig{
			Enabled:          false,
			Path:             filepath.Join(homeDir, ".engram/backup"),
			SnapshotInterval: 60,
			Author:           "Engram",
			Email:            "memory@engram.local",
		},
	}
}
