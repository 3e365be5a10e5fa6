// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"strings"

	"gorm.io/gorm"
)

// Migrate runs all migrations for the memory database
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Memory{})
}

// CreateIndexes creates composite indexes the query paths depend on.
// AutoMigrate covers the single-column tags; these cover the recall
// pre-ranking and the suggestion scans.
func CreateIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		columns []string
		name    string
	}{
		{
			table:   "memories",
			columns: []string{"archived", "timestamp"},
			name:    "idx_memories_archived_timestamp",
		},
		{
			table:   "memories",
			columns: []string{"archived", "project"},
			name:    "idx_memories_archived_project",
		},
		{
			table:   "memories",
			columns: []string{"importance_score", "access_count", "timestamp"},
			name:    "idx_memories_recall_rank",
		},
		{
			table:   "memories",
			columns: []string{"last_accessed"},
			name:    "idx_memories_last_accessed",
		},
		{
			table:   "memories",
			columns: []string{"content_hash", "timestamp"},
			name:    "idx_memories_hash_timestamp",
		},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			continue
		}
		sql := "CREATE INDEX IF NOT EXISTS " + idx.name + " ON " + idx.table + " (" + joinColumns(idx.columns) + ")"
		if err := db.Exec(sql).Error; err != nil {
			return err
		}
	}

	return nil
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}
