// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_CreatesConfigDirOnFirstRun(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(home, DefaultConfigDir))
	// No config file present, so defaults apply
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestEnsureConfigDir_Idempotent(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, EnsureConfigDir())
	require.NoError(t, EnsureConfigDir())
	assert.DirExists(t, filepath.Join(home, DefaultConfigDir))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.NotEmpty(t, cfg.Database.SQLitePath)
	assert.Equal(t, 30, cfg.Cognitive.RecentWindowMinutes)
	assert.Equal(t, 3, cfg.Cognitive.FocusRepeatThreshold)
	assert.False(t, cfg.Embeddings.Enabled)
	assert.False(t, cfg.Backup.Enabled)
}

func TestLoadFromPath_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{}`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Cognitive.RecentWindowMinutes)
	assert.Equal(t, 2, cfg.Cognitive.CandidateMultiplier)
	assert.Equal(t, 14, cfg.Cognitive.ForgottenDaysThreshold)
}

func TestLoadFromPath_Overrides(t *testing.T) {
	path := writeConfig(t, `{
		"server": {"port": 9090},
		"database": {"type": "postgres", "postgres_dsn": "host=localhost user=engram dbname=engram"},
		"cognitive": {"recent_window_minutes": 60}
	}`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, 60, cfg.Cognitive.RecentWindowMinutes)
}

func TestLoadFromPath_RejectsUnknownDatabaseType(t *testing.T) {
	path := writeConfig(t, `{"database": {"type": "mysql"}}`)

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.type")
}

func TestLoadFromPath_RequiresPostgresDSN(t *testing.T) {
	path := writeConfig(t, `{"database": {"type": "postgres"}}`)

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres_dsn")
}

func TestLoadFromPath_RejectsInvalidPort(t *testing.T) {
	path := writeConfig(t, `{"server": {"port": 70000}}`)

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoadFromPath_RejectsBadEmbeddingProvider(t *testing.T) {
	path := writeConfig(t, `{"embeddings": {"enabled": true, "provider": "anthropic"}}`)

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embeddings.provider")
}

func TestLoadFromPath_EmbeddingProviderIgnoredWhenDisabled(t *testing.T) {
	path := writeConfig(t, `{"embeddings": {"enabled": false, "provider": "anthropic"}}`)

	_, err := LoadFromPath(path)
	assert.NoError(t, err)
}

func TestLoadFromPath_BackupValidation(t *testing.T) {
	path := writeConfig(t, `{"backup": {"enabled": true, "path": "", "interval_minutes": 30}}`)

	_, err := LoadFromPath(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backup.path")
}

func TestLoadFromPath_MissingFile(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestIsValidEmbeddingProvider(t *testing.T) {
	for _, provider := range ValidEmbeddingProviders() {
		assert.True(t, IsValidEmbeddingProvider(provider))
	}
	assert.False(t, IsValidEmbeddingProvider("anthropic"))
	assert.False(t, IsValidEmbeddingProvider(""))
}
