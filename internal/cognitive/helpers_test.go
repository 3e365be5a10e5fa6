// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cognitive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/engramhq/engram-mcp/internal/database"
)

func setupStore(t *testing.T) *database.Store {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return database.NewStore(db)
}

type memOpt func(*database.Memory)

func withProject(project string) memOpt {
	return func(m *database.Memory) { m.Project = project }
}

func withFile(path string) memOpt {
	return func(m *database.Memory) { m.FilePath = path }
}

func withEntities(entities ...string) memOpt {
	return func(m *database.Memory) { m.SetEntities(entities) }
}

func withImportance(score float64) memOpt {
	return func(m *database.Memory) { m.ImportanceScore = score }
}

func withAccess(count int, lastMs int64) memOpt {
	return func(m *database.Memory) {
		m.AccessCount = count
		m.LastAccessed = &lastMs
	}
}

func seed(t *testing.T, store *database.Store, at time.Time, memType, content string, opts ...memOpt) *database.Memory {
	t.Helper()
	mem := &database.Memory{
		ID:              database.NewID(at),
		Type:            memType,
		Content:         content,
		Timestamp:       at.UnixMilli(),
		ImportanceScore: 0.5,
		ContentHash:     database.HashContent(content),
	}
	mem.SetEntities([]string{})
	mem.SetTags([]string{})
	for _, opt := range opts {
		opt(mem)
	}
	require.NoError(t, store.Insert(mem))
	return mem
}
