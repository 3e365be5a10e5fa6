// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestConnect_SQLiteCreatesDirAndAppliesPragmas(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "engram.db")

	db, err := Connect(&Config{
		Type:       "sqlite",
		SQLitePath: dbPath,
		LogLevel:   logger.Silent,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	assert.FileExists(t, dbPath)

	var mode string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, db.Raw("PRAGMA busy_timeout").Scan(&timeout).Error)
	assert.Equal(t, 5000, timeout)
}

func TestConnect_RejectsUnknownBackend(t *testing.T) {
	_, err := Connect(&Config{Type: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestPing_ReportsClosedConnection(t *testing.T) {
	db, err := Connect(&Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "engram.db"),
		LogLevel:   logger.Silent,
	})
	require.NoError(t, err)

	require.NoError(t, Ping(db))
	require.NoError(t, Close(db))
	assert.Error(t, Ping(db))
}
