// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package analytics provides rollup statistics over the memory corpus.
// Simple aggregation queries; none of the cognitive scoring lives here.
package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/engramhq/engram-mcp/internal/database"
	"gorm.io/gorm"
)

// Supported query types
const (
	QueryOverview = "overview"
	QueryTimeline = "timeline"
	QueryProjects = "projects"
	QueryUsage    = "usage"
	QueryEntity   = "entity"
	QueryHealth   = "health"
)

// timelineScanCap bounds the timeline bucket scan
const timelineScanCap = 5000

// Service runs analytics rollups over the memories table
type Service struct {
	db *gorm.DB
}

// NewService creates an analytics service over the given connection
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Overview summarizes the corpus
type Overview struct {
	TotalMemories     int64          `json:"total_memories"`
	ArchivedMemories  int64          `json:"archived_memories"`
	ByType            map[string]int `json:"by_type"`
	AvgImportance     float64        `json:"avg_importance"`
	StorageMB         float64        `json:"storage_mb"`
	MostActiveProject string         `json:"most_active_project,omitempty"`
}

// TimelineBucket is one day of activity
type TimelineBucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ProjectStats summarizes one project
type ProjectStats struct {
	Project       string  `json:"project"`
	Count         int     `json:"count"`
	AvgImportance float64 `json:"avg_importance"`
}

// UsageStats summarizes access patterns
type UsageStats struct {
	TotalAccesses int64             `json:"total_accesses"`
	NeverAccessed int64             `json:"never_accessed"`
	MostAccessed  []database.Memory `json:"most_accessed"`
}

// HealthMetrics reports corpus hygiene signals
type HealthMetrics struct {
	ActiveMemories   int64   `json:"active_memories"`
	ArchivedMemories int64   `json:"archived_memories"`
	WithEntities     int64   `json:"with_entities"`
	AvgImportance    float64 `json:"avg_importance"`
	StaleImportant   int64   `json:"stale_important"`
}

// EntityUsage reports the memories mentioning a specific entity
type EntityUsage struct {
	Entity   string            `json:"entity"`
	Count    int               `json:"count"`
	Memories []database.Memory `json:"memories"`
}

// Run dispatches an analytics query by type
func (s *Service) Run(queryType, project, entity string, days, limit int) (interface{}, error) {
	if days <= 0 {
		days = 30
	}
	if limit <= 0 {
		limit = 10
	}

	switch queryType {
	case QueryOverview:
		return s.GetOverview(project)
	case QueryTimeline:
		return s.GetTimeline(days, project)
	case QueryProjects:
		return s.GetProjectBreakdown(limit)
	case QueryUsage:
		return s.GetUsageStats(limit)
	case QueryEntity:
		if entity == "" {
			return nil, fmt.Errorf("query type 'entity' requires an entity name")
		}
		return s.GetEntityUsage(entity, limit)
	case QueryHealth:
		return s.GetHealthMetrics()
	default:
		return nil, fmt.Errorf("unknown analytics query type: %s", queryType)
	}
}

// GetOverview returns corpus-wide statistics
func (s *Service) GetOverview(project string) (*Overview, error) {
	base := s.db.Model(&database.Memory{}).Where("archived = ?", false)
	if project != "" {
		base = base.Where("project = ?", project)
	}

	var overview Overview
	if err := base.Session(&gorm.Session{}).Count(&overview.TotalMemories).Error; err != nil {
		return nil, fmt.Errorf("overview count failed: %w", err)
	}

	archived := s.db.Model(&database.Memory{}).Where("archived = ?", true)
	if project != "" {
		archived = archived.Where("project = ?", project)
	}
	if err := archived.Count(&overview.ArchivedMemories).Error; err != nil {
		return nil, fmt.Errorf("archived count failed: %w", err)
	}

	type typeCount struct {
		Type  string
		Count int
	}
	var byType []typeCount
	if err := base.Session(&gorm.Session{}).Select("type, COUNT(*) as count").Group("type").Scan(&byType).Error; err != nil {
		return nil, fmt.Errorf("type breakdown failed: %w", err)
	}
	overview.ByType = make(map[string]int, len(byType))
	for _, tc := range byType {
		overview.ByType[tc.Type] = tc.Count
	}

	var avg *float64
	if err := base.Session(&gorm.Session{}).Select("AVG(importance_score)").Scan(&avg).Error; err != nil {
		return nil, fmt.Errorf("importance average failed: %w", err)
	}
	if avg != nil {
		overview.AvgImportance = round3(*avg)
	}

	var totalChars *int64
	if err := base.Session(&gorm.Session{}).Select("SUM(LENGTH(content))").Scan(&totalChars).Error; err != nil {
		return nil, fmt.Errorf("storage estimate failed: %w", err)
	}
	if totalChars != nil {
		overview.StorageMB = round3(float64(*totalChars) / (1024 * 1024))
	}

	if project == "" {
		var top ProjectStats
		err := s.db.Model(&database.Memory{}).
			Select("project, COUNT(*) as count").
			Where("archived = ? AND project <> ''", false).
			Group("project").
			Order("count DESC").
			Limit(1).
			Scan(&top).Error
		if err != nil {
			return nil, fmt.Errorf("most active project failed: %w", err)
		}
		overview.MostActiveProject = top.Project
	}

	return &overview, nil
}

// GetTimeline buckets recent activity by day. The scan is capped; on very
// large corpora the timeline covers the newest records only.
func (s *Service) GetTimeline(days int, project string) ([]TimelineBucket, error) {
	since := time.Now().AddDate(0, 0, -days).UnixMilli()

	query := s.db.Model(&database.Memory{}).
		Where("archived = ? AND timestamp > ?", false, since)
	if project != "" {
		query = query.Where("project = ?", project)
	}

	var timestamps []int64
	if err := query.Order("timestamp DESC").Limit(timelineScanCap).Pluck("timestamp", &timestamps).Error; err != nil {
		return nil, fmt.Errorf("timeline query failed: %w", err)
	}

	buckets := make(map[string]int)
	for _, ts := range timestamps {
		day := time.UnixMilli(ts).UTC().Format("2006-01-02")
		buckets[day]++
	}

	// Emit contiguous days, oldest first
	var timeline []TimelineBucket
	start := time.Now().UTC().AddDate(0, 0, -days+1)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		timeline = append(timeline, TimelineBucket{Date: day, Count: buckets[day]})
	}
	return timeline, nil
}

// GetProjectBreakdown returns per-project counts and average importance
func (s *Service) GetProjectBreakdown(limit int) ([]ProjectStats, error) {
	var stats []ProjectStats
	err := s.db.Model(&database.Memory{}).
		Select("project, COUNT(*) as count, AVG(importance_score) as avg_importance").
		Where("archived = ? AND project <> ''", false).
		Group("project").
		Order("count DESC").
		Limit(limit).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("project breakdown failed: %w", err)
	}
	for i := range stats {
		stats[i].AvgImportance = round3(stats[i].AvgImportance)
	}
	return stats, nil
}

// GetUsageStats returns access-pattern statistics
func (s *Service) GetUsageStats(limit int) (*UsageStats, error) {
	var usage UsageStats

	var total *int64
	err := s.db.Model(&database.Memory{}).
		Where("archived = ?", false).
		Select("SUM(access_count)").
		Scan(&total).Error
	if err != nil {
		return nil, fmt.Errorf("access sum failed: %w", err)
	}
	if total != nil {
		usage.TotalAccesses = *total
	}

	err = s.db.Model(&database.Memory{}).
		Where("archived = ? AND last_accessed IS NULL", false).
		Count(&usage.NeverAccessed).Error
	if err != nil {
		return nil, fmt.Errorf("never-accessed count failed: %w", err)
	}

	err = s.db.Where("archived = ? AND access_count > 0", false).
		Order("access_count DESC").
		Limit(limit).
		Find(&usage.MostAccessed).Error
	if err != nil {
		return nil, fmt.Errorf("most-accessed query failed: %w", err)
	}

	return &usage, nil
}

// GetEntityUsage returns memories mentioning a specific entity, most
// important first
func (s *Service) GetEntityUsage(entity string, limit int) (*EntityUsage, error) {
	var memories []database.Memory
	err := s.db.Where("archived = ? AND entities LIKE ?", false, "%"+entity+"%").
		Order("importance_score DESC, timestamp DESC").
		Limit(limit).
		Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("entity query failed: %w", err)
	}

	return &EntityUsage{
		Entity:   entity,
		Count:    len(memories),
		Memories: memories,
	}, nil
}

// GetHealthMetrics returns corpus hygiene signals
func (s *Service) GetHealthMetrics() (*HealthMetrics, error) {
	var health HealthMetrics

	if err := s.db.Model(&database.Memory{}).Where("archived = ?", false).Count(&health.ActiveMemories).Error; err != nil {
		return nil, fmt.Errorf("active count failed: %w", err)
	}
	if err := s.db.Model(&database.Memory{}).Where("archived = ?", true).Count(&health.ArchivedMemories).Error; err != nil {
		return nil, fmt.Errorf("archived count failed: %w", err)
	}
	if err := s.db.Model(&database.Memory{}).
		Where("archived = ? AND entities <> '' AND entities <> '[]'", false).
		Count(&health.WithEntities).Error; err != nil {
		return nil, fmt.Errorf("entity count failed: %w", err)
	}

	var avg *float64
	if err := s.db.Model(&database.Memory{}).Where("archived = ?", false).
		Select("AVG(importance_score)").Scan(&avg).Error; err != nil {
		return nil, fmt.Errorf("importance average failed: %w", err)
	}
	if avg != nil {
		health.AvgImportance = round3(*avg)
	}

	monthAgo := time.Now().AddDate(0, 0, -30).UnixMilli()
	err := s.db.Model(&database.Memory{}).
		Where("archived = ? AND importance_score >= ?", false, 0.8).
		Where("last_accessed IS NULL OR last_accessed < ?", monthAgo).
		Count(&health.StaleImportant).Error
	if err != nil {
		return nil, fmt.Errorf("stale count failed: %w", err)
	}

	return &health, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
