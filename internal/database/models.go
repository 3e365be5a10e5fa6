// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package database

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// Memory represents a single stored memory record.
// Content and Timestamp are immutable after creation; superseding information
// is stored as a new record. Tags and Entities are serialized JSON arrays at
// the storage boundary and exposed as string slices in process.
type Memory struct {
	ID              string  `gorm:"primaryKey" json:"id"`
	Type            string  `gorm:"index;not null" json:"type"`
	Content         string  `gorm:"type:text;not null" json:"content"`
	Project         string  `gorm:"index" json:"project,omitempty"`
	FilePath        string  `json:"file_path,omitempty"`
	Language        string  `json:"language,omitempty"`
	Tags            string  `gorm:"type:text" json:"tags,omitempty"`     // JSON array of strings
	Entities        string  `gorm:"type:text" json:"entities,omitempty"` // JSON array of strings
	Timestamp       int64   `gorm:"index;not null" json:"timestamp"`     // Creation time, epoch millis
	ImportanceScore float64 `gorm:"index;default:0.5" json:"importance_score"`
	AccessCount     int     `gorm:"default:0" json:"access_count"`
	LastAccessed    *int64  `json:"last_accessed,omitempty"` // Epoch millis, nil until first access
	ContentHash     string  `gorm:"index" json:"content_hash,omitempty"`
	Archived        bool    `gorm:"index;default:false" json:"archived"`
}

// TableName specifies the table name for Memory
func (Memory) TableName() string {
	return "memories"
}

// Memory type constants
const (
	TypeCode         = "code"
	TypeCommand      = "command"
	TypeConversation = "conversation"
	TypeNote         = "note"
	TypeEvent        = "event"
	TypeDecision     = "decision"
	TypeInsight      = "insight"
)

// ValidMemoryTypes returns all valid memory types
func ValidMemoryTypes() []string {
	return []string{
		TypeCode,
		TypeCommand,
		TypeConversation,
		TypeNote,
		TypeEvent,
		TypeDecision,
		TypeInsight,
	}
}

// IsValidMemoryType checks if a memory type is valid
func IsValidMemoryType(mType string) bool {
	for _, valid := range ValidMemoryTypes() {
		if mType == valid {
			return true
		}
	}
	return false
}

// NewID generates a new ULID for a memory record. ULIDs sort
// lexicographically by creation time, which keeps primary-key order aligned
// with the timestamp column.
func NewID(at time.Time) string {
	return ulid.MustNew(ulid.Timestamp(at), rand.Reader).String()
}

// HashContent returns the content hash used to group identical records
// (e.g. repeated error reports).
func HashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:16])
}

// EntityList parses the serialized entity set. A malformed value yields an
// empty list, never an error; the storage format is not this core's problem.
func (m *Memory) EntityList() []string {
	return parseStringList(m.Entities)
}

// TagList parses the serialized tag set, with the same failure semantics as
// EntityList.
func (m *Memory) TagList() []string {
	return parseStringList(m.Tags)
}

// SetEntities serializes the given entity set onto the record
func (m *Memory) SetEntities(entities []string) {
	m.Entities = encodeStringList(entities)
}

// SetTags serializes the given tag set onto the record
func (m *Memory) SetTags(tags []string) {
	m.Tags = encodeStringList(tags)
}

func parseStringList(raw string) []string {
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}

func encodeStringList(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}
