// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

// Config represents the complete application configuration
type Config struct {
	Server     ServerConfig    `mapstructure:"server"`
	Database   DatabaseConfig  `mapstructure:"database"`
	Cognitive  CognitiveConfig `mapstructure:"cognitive"`
	Embeddings EmbeddingConfig `mapstructure:"embeddings"`
	Backup     BackupConfig    `mapstructure:"backup"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	TLS  struct {
		Enabled  bool   `mapstructure:"enabled"`
		CertFile string `mapstructure:"cert_file"`
		KeyFile  string `mapstructure:"key_file"`
	} `mapstructure:"tls"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Type        string `mapstructure:"type"` // "sqlite" or "postgres"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// CognitiveConfig holds tuning constants for the context and recall engines.
// The thresholds are empirically tuned; they stay configurable rather than
// hard-coded so they can be revisited without a rebuild.
type CognitiveConfig struct {
	RecentWindowMinutes    int `mapstructure:"recent_window_minutes"`    // Default context window
	ContextScanLimit       int `mapstructure:"context_scan_limit"`       // Max records the analyzer reads per call
	FocusRepeatThreshold   int `mapstructure:"focus_repeat_threshold"`   // Repetitions before an entity/file counts as focus
	EntityFilterLimit      int `mapstructure:"entity_filter_limit"`      // Top-N entities in the recall candidate filter
	ActiveEntityLimit      int `mapstructure:"active_entity_limit"`      // Top-N entities carried on a snapshot
	CandidateMultiplier    int `mapstructure:"candidate_multiplier"`     // Candidates fetched = multiplier * limit
	ForgottenDaysThreshold int `mapstructure:"forgotten_days_threshold"` // Days unaccessed before knowledge counts as forgotten
}

// EmbeddingConfig holds configuration for semantic search embeddings
type EmbeddingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`     // Feature flag for embeddings
	Provider   string `mapstructure:"provider"`    // "openai", "azure", "local"
	BaseURL    string `mapstructure:"base_url"`    // API base URL
	Model      string `mapstructure:"model"`       // Model name (e.g., "text-embedding-3-small")
	APIKeyEnv  string `mapstructure:"api_key_env"` // Environment variable name for API key
	Dimensions int    `mapstructure:"dimensions"`  // Vector dimensions (e.g., 1536)
	BatchSize  int    `mapstructure:"batch_size"`  // Batch size for bulk embedding operations
}

// BackupConfig holds configuration for markdown/git backup snapshots
type BackupConfig struct {
	Enabled          bool   `mapstructure:"enabled"`
	Path             string `mapstructure:"path"`             // Backup repository path
	SnapshotInterval int    `mapstructure:"interval_minutes"` // Snapshot interval in HTTP mode
	Author           string `mapstructure:"author"`           // Commit author name
	Email            string `mapstructure:"email"`            // Commit author email
}

// EmbeddingProviders defines valid embedding providers
const (
	EmbeddingProviderOpenAI = "openai"
	EmbeddingProviderAzure  = "azure"
	EmbeddingProviderLocal  = "local"
)

// ValidEmbeddingProviders returns all valid embedding provider values
func ValidEmbeddingProviders() []string {
	return []string{
		EmbeddingProviderOpenAI,
		EmbeddingProviderAzure,
		EmbeddingProviderLocal,
	}
}

// isValidType is a generic helper to check if a type is in a list of valid types
func isValidType(aType string, validTypes []string) bool {
	for _, valid := range validTypes {
		if aType == valid {
			return true
		}
	}
	return false
}

// IsValidEmbeddingProvider checks if a provider is valid
func IsValidEmbeddingProvider(provider string) bool {
	return isValidType(provider, ValidEmbeddingProviders())
}
