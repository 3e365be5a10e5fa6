// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package analytics

import (
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

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	return NewService(db), db
}

func insertMemory(t *testing.T, db *gorm.DB, at time.Time, memType, project, content string, importance float64, accessCount int, lastAccessed *int64, archived bool) *database.Memory {
	t.Helper()
	mem := &database.Memory{
		ID:              database.NewID(at),
		Type:            memType,
		Content:         content,
		Project:         project,
		Timestamp:       at.UnixMilli(),
		ImportanceScore: importance,
		AccessCount:     accessCount,
		LastAccessed:    lastAccessed,
		ContentHash:     database.HashContent(content),
		Archived:        archived,
	}
	mem.SetEntities([]string{})
	mem.SetTags([]string{})
	require.NoError(t, db.Create(mem).Error)
	return mem
}

func msPtr(at time.Time) *int64 {
	ms := at.UnixMilli()
	return &ms
}

func TestOverview(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now()

	insertMemory(t, db, now, database.TypeCode, "api", "alpha", 0.4, 0, nil, false)
	insertMemory(t, db, now, database.TypeCode, "api", "beta", 0.6, 0, nil, false)
	insertMemory(t, db, now, database.TypeNote, "billing", "gamma", 0.8, 0, nil, false)
	insertMemory(t, db, now, database.TypeNote, "api", "archived one", 0.5, 0, nil, true)

	overview, err := svc.GetOverview("")
	require.NoError(t, err)

	assert.Equal(t, int64(3), overview.TotalMemories)
	assert.Equal(t, int64(1), overview.ArchivedMemories)
	assert.Equal(t, 2, overview.ByType[database.TypeCode])
	assert.Equal(t, 1, overview.ByType[database.TypeNote])
	assert.Equal(t, 0.6, overview.AvgImportance)
	assert.Equal(t, "api", overview.MostActiveProject)
	assert.Greater(t, overview.StorageMB, 0.0)
}

func TestOverview_ProjectScoped(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now()

	insertMemory(t, db, now, database.TypeCode, "api", "alpha", 0.4, 0, nil, false)
	insertMemory(t, db, now, database.TypeNote, "billing", "gamma", 0.8, 0, nil, false)

	overview, err := svc.GetOverview("api")
	require.NoError(t, err)

	assert.Equal(t, int64(1), overview.TotalMemories)
	assert.Empty(t, overview.MostActiveProject)
}

func TestOverview_EmptyCorpus(t *testing.T) {
	svc, _ := setupService(t)

	overview, err := svc.GetOverview("")
	require.NoError(t, err)

	assert.Equal(t, int64(0), overview.TotalMemories)
	assert.Equal(t, 0.0, overview.AvgImportance)
	assert.Equal(t, 0.0, overview.StorageMB)
}

func TestTimeline(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now()

	insertMemory(t, db, now, database.TypeCode, "api", "today one", 0.5, 0, nil, false)
	insertMemory(t, db, now, database.TypeCode, "api", "today two", 0.5, 0, nil, false)
	insertMemory(t, db, now.AddDate(0, 0, -2), database.TypeCode, "api", "two days back", 0.5, 0, nil, false)
	insertMemory(t, db, now.AddDate(0, 0, -40), database.TypeCode, "api", "outside range", 0.5, 0, nil, false)

	timeline, err := svc.GetTimeline(7, "")
	require.NoError(t, err)

	require.Len(t, timeline, 7)
	today := now.UTC().Format("2006-01-02")
	assert.Equal(t, today, timeline[6].Date)
	assert.Equal(t, 2, timeline[6].Count)

	total := 0
	for _, bucket := range timeline {
		total += bucket.Count
	}
	assert.Equal(t, 3, total)
}

func TestProjectBreakdown(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now()

	insertMemory(t, db, now, database.TypeCode, "api", "a", 0.4, 0, nil, false)
	insertMemory(t, db, now, database.TypeCode, "api", "b", 0.6, 0, nil, false)
	insertMemory(t, db, now, database.TypeCode, "billing", "c", 0.8, 0, nil, false)
	insertMemory(t, db, now, database.TypeCode, "", "unfiled", 0.5, 0, nil, false)

	stats, err := svc.GetProjectBreakdown(10)
	require.NoError(t, err)

	require.Len(t, stats, 2)
	assert.Equal(t, "api", stats[0].Project)
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, 0.5, stats[0].AvgImportance)
	assert.Equal(t, "billing", stats[1].Project)
}

func TestUsageStats(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now()

	heavy := insertMemory(t, db, now, database.TypeCode, "api", "hot path notes", 0.5, 7, msPtr(now), false)
	insertMemory(t, db, now, database.TypeCode, "api", "read once", 0.5, 1, msPtr(now), false)
	insertMemory(t, db, now, database.TypeCode, "api", "never read", 0.5, 0, nil, false)

	usage, err := svc.GetUsageStats(10)
	require.NoError(t, err)

	assert.Equal(t, int64(8), usage.TotalAccesses)
	assert.Equal(t, int64(1), usage.NeverAccessed)
	require.Len(t, usage.MostAccessed, 2)
	assert.Equal(t, heavy.ID, usage.MostAccessed[0].ID)
}

func TestEntityUsage(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now()

	low := insertMemory(t, db, now, database.TypeCode, "api", "caching layer", 0.4, 0, nil, false)
	low.SetEntities([]string{"redis"})
	require.NoError(t, db.Save(low).Error)

	high := insertMemory(t, db, now, database.TypeDecision, "api", "eviction policy", 0.9, 0, nil, false)
	high.SetEntities([]string{"redis", "postgres"})
	require.NoError(t, db.Save(high).Error)

	insertMemory(t, db, now, database.TypeNote, "api", "unrelated", 0.5, 0, nil, false)

	usage, err := svc.GetEntityUsage("redis", 10)
	require.NoError(t, err)

	assert.Equal(t, "redis", usage.Entity)
	assert.Equal(t, 2, usage.Count)
	assert.Equal(t, high.ID, usage.Memories[0].ID)
}

func TestHealthMetrics(t *testing.T) {
	svc, db := setupService(t)
	now := time.Now()

	withEntities := insertMemory(t, db, now, database.TypeCode, "api", "tagged", 0.5, 0, nil, false)
	withEntities.SetEntities([]string{"redis"})
	require.NoError(t, db.Save(withEntities).Error)

	insertMemory(t, db, now, database.TypeCode, "api", "untagged", 0.5, 0, nil, false)
	insertMemory(t, db, now, database.TypeCode, "api", "archived", 0.5, 0, nil, true)
	// Important and unread for over a month
	insertMemory(t, db, now.AddDate(0, 0, -60), database.TypeDecision, "api", "stale important", 0.9, 0, nil, false)

	health, err := svc.GetHealthMetrics()
	require.NoError(t, err)

	assert.Equal(t, int64(3), health.ActiveMemories)
	assert.Equal(t, int64(1), health.ArchivedMemories)
	assert.Equal(t, int64(1), health.WithEntities)
	assert.Equal(t, int64(1), health.StaleImportant)
}

func TestRun_Dispatch(t *testing.T) {
	svc, db := setupService(t)
	insertMemory(t, db, time.Now(), database.TypeCode, "api", "alpha", 0.5, 0, nil, false)

	for _, queryType := range []string{QueryOverview, QueryTimeline, QueryProjects, QueryUsage, QueryHealth} {
		result, err := svc.Run(queryType, "", "", 0, 0)
		require.NoError(t, err, queryType)
		assert.NotNil(t, result, queryType)
	}

	result, err := svc.Run(QueryEntity, "", "redis", 0, 0)
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestRun_EntityRequiresName(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Run(QueryEntity, "", "", 0, 0)
	assert.Error(t, err)
}

func TestRun_UnknownType(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.Run("bogus", "", "", 0, 0)
	assert.Error(t, err)
}
