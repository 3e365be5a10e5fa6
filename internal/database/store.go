// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Store is the query surface the cognitive engines depend on. All scans are
// bounded by explicit limits; nothing here walks the full table.
type Store struct {
	db *gorm.DB
}

// NewStore creates a store over an existing database connection
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for collaborators that run their own
// aggregate queries (analytics, embeddings).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ErrorGroup is a cluster of identical error-bearing records, grouped by
// content hash.
type ErrorGroup struct {
	ContentHash string `json:"content_hash"`
	Content     string `json:"content"`
	Count       int    `json:"count"`
}

// Insert stores a new memory record
func (s *Store) Insert(mem *Memory) error {
	if err := s.db.Create(mem).Error; err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	return nil
}

// Upsert stores a memory record, replacing an existing record with the
// same ID. Used by backup restore.
func (s *Store) Upsert(mem *Memory) error {
	if err := s.db.Save(mem).Error; err != nil {
		return fmt.Errorf("failed to upsert memory: %w", err)
	}
	return nil
}

// GetByID retrieves a single memory record by its ID
func (s *Store) GetByID(id string) (*Memory, error) {
	var mem Memory
	if err := s.db.Where("id = ?", id).First(&mem).Error; err != nil {
		return nil, err
	}
	return &mem, nil
}

// QueryTimeWindow returns non-archived records newer than sinceMs,
// newest-first, optionally narrowed to an exact project and a file-path
// substring. This is the analyzer's only read path.
func (s *Store) QueryTimeWindow(sinceMs int64, projectHint, fileHint string, limit int) ([]Memory, error) {
	query := s.db.Where("archived = ? AND timestamp > ?", false, sinceMs)

	if projectHint != "" {
		query = query.Where("project = ?", projectHint)
	}
	if fileHint != "" {
		query = query.Where("file_path LIKE ?", "%"+fileHint+"%")
	}

	var memories []Memory
	err := query.Order("timestamp DESC").Limit(limit).Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("time window query failed: %w", err)
	}
	return memories, nil
}

// QueryByProjectsOrEntities returns recall candidates: non-archived records
// strictly older than beforeMs that either belong to one of the given
// projects or textually mention one of the entity terms. With neither filter
// available it returns nothing; recall never falls back to an unfiltered
// table scan. Results are pre-ranked by stored signals so the relevance pass
// works on a plausible candidate set.
func (s *Store) QueryByProjectsOrEntities(projects, entityTerms []string, beforeMs int64, limit int) ([]Memory, error) {
	if len(projects) == 0 && len(entityTerms) == 0 {
		return nil, nil
	}

	query := s.db.Where("archived = ? AND timestamp < ?", false, beforeMs)

	match := s.db.Where("1 = 0")
	if len(projects) > 0 {
		match = match.Or("project IN ?", projects)
	}
	for _, entity := range entityTerms {
		match = match.Or("entities LIKE ?", "%"+entity+"%")
	}
	query = query.Where(match)

	var memories []Memory
	err := query.
		Order("importance_score DESC, access_count DESC, timestamp DESC").
		Limit(limit).
		Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("candidate query failed: %w", err)
	}
	return memories, nil
}

// QueryForgotten returns high-importance records not accessed since
// accessedBeforeMs (or never accessed), most important first.
func (s *Store) QueryForgotten(minImportance float64, accessedBeforeMs int64, project string, limit int) ([]Memory, error) {
	query := s.db.Where("archived = ? AND importance_score >= ?", false, minImportance).
		Where("last_accessed IS NULL OR last_accessed < ?", accessedBeforeMs)

	if project != "" {
		query = query.Where("project = ?", project)
	}

	var memories []Memory
	err := query.Order("importance_score DESC").Limit(limit).Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("forgotten query failed: %w", err)
	}
	return memories, nil
}

// QueryTodos returns the newest records whose content carries an unresolved
// marker (TODO, FIXME, HACK). Matching lowercases the content so the scan
// behaves the same on sqlite and postgres.
func (s *Store) QueryTodos(project string, limit int) ([]Memory, error) {
	query := s.db.Where("archived = ?", false).
		Where("LOWER(content) LIKE ? OR LOWER(content) LIKE ? OR LOWER(content) LIKE ?", "%todo%", "%fixme%", "%hack%")

	if project != "" {
		query = query.Where("project = ?", project)
	}

	var memories []Memory
	err := query.Order("timestamp DESC").Limit(limit).Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("todo query failed: %w", err)
	}
	return memories, nil
}

// QueryRepeatedErrors groups recent error-bearing records by content hash and
// returns the clusters that occurred more than once.
func (s *Store) QueryRepeatedErrors(sinceMs int64, project string, limit int) ([]ErrorGroup, error) {
	args := []interface{}{false, sinceMs, "%error%", "%exception%"}
	sql := `
		SELECT content_hash, MAX(content) AS content, COUNT(*) AS count
		FROM memories
		WHERE archived = ? AND timestamp > ?
		  AND (LOWER(content) LIKE ? OR LOWER(content) LIKE ?)
		  AND content_hash <> ''`

	if project != "" {
		sql += " AND project = ?"
		args = append(args, project)
	}

	sql += `
		GROUP BY content_hash
		HAVING COUNT(*) > 1
		ORDER BY count DESC
		LIMIT ?`
	args = append(args, limit)

	var groups []ErrorGroup
	if err := s.db.Raw(sql, args...).Scan(&groups).Error; err != nil {
		return nil, fmt.Errorf("repeated error query failed: %w", err)
	}
	return groups, nil
}

// QueryBestPractices returns the newest high-importance records of the
// reflective types (decision, insight, note).
func (s *Store) QueryBestPractices(minImportance float64, project string, limit int) ([]Memory, error) {
	query := s.db.Where("archived = ? AND importance_score >= ?", false, minImportance).
		Where("type IN ?", []string{TypeDecision, TypeInsight, TypeNote})

	if project != "" {
		query = query.Where("project = ?", project)
	}

	var memories []Memory
	err := query.Order("timestamp DESC").Limit(limit).Find(&memories).Error
	if err != nil {
		return nil, fmt.Errorf("best practice query failed: %w", err)
	}
	return memories, nil
}

// IncrementAccess bumps the access counter and stamps last_accessed in a
// single UPDATE. Concurrent recalls may race on last_accessed; last write
// wins, which is acceptable for advisory metadata.
func (s *Store) IncrementAccess(id string, nowMs int64) error {
	err := s.db.Model(&Memory{}).Where("id = ?", id).Updates(map[string]interface{}{
		"access_count":  gorm.Expr("access_count + 1"),
		"last_accessed": nowMs,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update access stats: %w", err)
	}
	return nil
}

// Archive marks a record as archived, removing it from every context, recall
// and suggestion path.
func (s *Store) Archive(id string) error {
	result := s.db.Model(&Memory{}).Where("id = ?", id).Update("archived", true)
	if result.Error != nil {
		return fmt.Errorf("failed to archive memory: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Unarchive restores an archived record
func (s *Store) Unarchive(id string) error {
	result := s.db.Model(&Memory{}).Where("id = ?", id).Update("archived", false)
	if result.Error != nil {
		return fmt.Errorf("failed to unarchive memory: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountActive returns the number of non-archived records
func (s *Store) CountActive() (int64, error) {
	var count int64
	err := s.db.Model(&Memory{}).Where("archived = ?", false).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return count, nil
}

// ListAll returns every non-archived record, newest first, capped at limit.
// Used by backup snapshots, not by the cognitive engines.
func (s *Store) ListAll(limit int) ([]Memory, error) {
	var memories []Memory
	query := s.db.Where("archived = ?", false).Order("timestamp DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&memories).Error; err != nil {
		return nil, fmt.Errorf("list query failed: %w", err)
	}
	return memories, nil
}
