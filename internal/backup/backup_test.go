// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/engramhq/engram-mcp/internal/database"
)

func setupStore(t *testing.T) *database.Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return database.NewStore(db)
}

func storeMemory(t *testing.T, store *database.Store, id, memType, project, content string) *database.Memory {
	t.Helper()
	mem := &database.Memory{
		ID:              id,
		Type:            memType,
		Content:         content,
		Project:         project,
		Timestamp:       time.Now().UnixMilli(),
		ImportanceScore: 0.5,
		ContentHash:     database.HashContent(content),
	}
	mem.SetEntities([]string{"redis"})
	mem.SetTags([]string{"infra"})
	require.NoError(t, store.Insert(mem))
	return mem
}

func TestSnapshot_WritesMarkdownTree(t *testing.T) {
	store := setupStore(t)
	backupDir := t.TempDir()

	storeMemory(t, store, "01AAAAAAAAAAAAAAAAAAAAAAAA", database.TypeNote, "api", "first note")
	storeMemory(t, store, "01BBBBBBBBBBBBBBBBBBBBBBBB", database.TypeCode, "", "unfiled snippet")

	manager, err := NewManager(store, backupDir, "Engram", "memory@engram.local")
	require.NoError(t, err)

	manifest, err := manager.Snapshot()
	require.NoError(t, err)
	require.NotNil(t, manifest)
	assert.Equal(t, 2, manifest.MemoryCount)
	assert.NotEmpty(t, manifest.SnapshotID)

	assert.FileExists(t, filepath.Join(backupDir, "api", "01AAAAAAAAAAAAAAAAAAAAAAAA.md"))
	assert.FileExists(t, filepath.Join(backupDir, unfiledDirName, "01BBBBBBBBBBBBBBBBBBBBBBBB.md"))
	assert.FileExists(t, filepath.Join(backupDir, manifestName))

	content, err := os.ReadFile(filepath.Join(backupDir, "api", "01AAAAAAAAAAAAAAAAAAAAAAAA.md"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "id: 01AAAAAAAAAAAAAAAAAAAAAAAA")
	assert.Contains(t, string(content), "first note")
}

func TestSnapshot_NoChangesSkipsCommit(t *testing.T) {
	store := setupStore(t)
	backupDir := t.TempDir()

	storeMemory(t, store, "01AAAAAAAAAAAAAAAAAAAAAAAA", database.TypeNote, "api", "first note")

	manager, err := NewManager(store, backupDir, "Engram", "memory@engram.local")
	require.NoError(t, err)

	first, err := manager.Snapshot()
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := manager.Snapshot()
	require.NoError(t, err)
	assert.Nil(t, second)

	commits, err := manager.repo.History(10)
	require.NoError(t, err)
	assert.Len(t, commits, 1)
}

func TestSnapshot_PrunesDeletedMemories(t *testing.T) {
	store := setupStore(t)
	backupDir := t.TempDir()

	kept := storeMemory(t, store, "01AAAAAAAAAAAAAAAAAAAAAAAA", database.TypeNote, "api", "kept")
	gone := storeMemory(t, store, "01BBBBBBBBBBBBBBBBBBBBBBBB", database.TypeNote, "api", "going away")

	manager, err := NewManager(store, backupDir, "Engram", "memory@engram.local")
	require.NoError(t, err)

	_, err = manager.Snapshot()
	require.NoError(t, err)

	require.NoError(t, store.Archive(gone.ID))

	_, err = manager.Snapshot()
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(backupDir, "api", kept.ID+".md"))
	assert.NoFileExists(t, filepath.Join(backupDir, "api", gone.ID+".md"))
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	source := setupStore(t)
	backupDir := t.TempDir()

	original := storeMemory(t, source, "01AAAAAAAAAAAAAAAAAAAAAAAA", database.TypeDecision, "api", "kept the monolith for now")

	manager, err := NewManager(source, backupDir, "Engram", "memory@engram.local")
	require.NoError(t, err)
	_, err = manager.Snapshot()
	require.NoError(t, err)

	// Restore into a fresh store
	target := setupStore(t)
	restorer, err := NewManager(target, backupDir, "Engram", "memory@engram.local")
	require.NoError(t, err)

	count, err := restorer.Restore()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	restored, err := target.GetByID(original.ID)
	require.NoError(t, err)
	assert.Equal(t, original.Type, restored.Type)
	assert.Equal(t, original.Content, restored.Content)
	assert.Equal(t, original.Project, restored.Project)
	assert.Equal(t, original.Timestamp, restored.Timestamp)
	assert.Equal(t, original.ImportanceScore, restored.ImportanceScore)
	assert.Equal(t, []string{"redis"}, restored.EntityList())
	assert.Equal(t, []string{"infra"}, restored.TagList())
}

func TestLastManifest(t *testing.T) {
	store := setupStore(t)
	backupDir := t.TempDir()

	storeMemory(t, store, "01AAAAAAAAAAAAAAAAAAAAAAAA", database.TypeNote, "api", "note")

	manager, err := NewManager(store, backupDir, "Engram", "memory@engram.local")
	require.NoError(t, err)

	snapshot, err := manager.Snapshot()
	require.NoError(t, err)

	manifest, err := manager.LastManifest()
	require.NoError(t, err)
	assert.Equal(t, snapshot.SnapshotID, manifest.SnapshotID)
	assert.Equal(t, 1, manifest.MemoryCount)
}

func TestMarkdownRoundTrip(t *testing.T) {
	mem := &database.Memory{
		ID:              "01AAAAAAAAAAAAAAAAAAAAAAAA",
		Type:            database.TypeEvent,
		Content:         "stack overflow in the retry loop",
		Project:         "api",
		FilePath:        "internal/retry/loop.go",
		Language:        "go",
		Timestamp:       1756700000000,
		ImportanceScore: 0.7,
		AccessCount:     3,
		ContentHash:     database.HashContent("stack overflow in the retry loop"),
	}
	mem.SetEntities([]string{"retry", "backoff"})
	mem.SetTags([]string{"bug"})

	doc, err := ToMarkdown(mem)
	require.NoError(t, err)

	parsed, err := ParseMarkdown(doc)
	require.NoError(t, err)

	assert.Equal(t, mem.ID, parsed.ID)
	assert.Equal(t, mem.Type, parsed.Type)
	assert.Equal(t, mem.Content, parsed.Content)
	assert.Equal(t, mem.FilePath, parsed.FilePath)
	assert.Equal(t, mem.Language, parsed.Language)
	assert.Equal(t, mem.Timestamp, parsed.Timestamp)
	assert.Equal(t, mem.ImportanceScore, parsed.ImportanceScore)
	assert.Equal(t, mem.AccessCount, parsed.AccessCount)
	assert.Equal(t, []string{"retry", "backoff"}, parsed.EntityList())
	assert.Equal(t, []string{"bug"}, parsed.TagList())
}

func TestParseMarkdown_RejectsMissingFrontmatter(t *testing.T) {
	_, err := ParseMarkdown("just some text without frontmatter")
	assert.Error(t, err)
}

func TestParseMarkdown_RejectsMissingID(t *testing.T) {
	_, err := ParseMarkdown("---\ntype: note\n---\n\ncontent here\n")
	assert.Error(t, err)
}

func TestSanitizeProjectDir(t *testing.T) {
	assert.Equal(t, "api", sanitizeProjectDir("api"))
	assert.Equal(t, "my-project_v2", sanitizeProjectDir("my-project_v2"))
	assert.Equal(t, "a_b", sanitizeProjectDir("a/b"))
	assert.Equal(t, unfiledDirName, sanitizeProjectDir(""))
	assert.Equal(t, unfiledDirName, sanitizeProjectDir(".."))
}
