// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package embeddings

import (
	"encoding/binary"
	"math"
	"time"

	"gorm.io/gorm"
)

// Default dimensions for text-embedding-3-small
const DefaultDimensions = 1536

// Embedding is the cached vector for one memory record. The cache survives
// restarts; the in-memory vector index is rebuilt from it on startup.
type Embedding struct {
	MemoryID     string    `gorm:"primaryKey" json:"memory_id"`
	ContentHash  string    `gorm:"not null" json:"content_hash"`
	ModelName    string    `gorm:"not null" json:"model_name"`
	ModelVersion string    `gorm:"not null" json:"model_version"`
	Dimensions   int       `gorm:"not null" json:"dimensions"`
	Vector       []byte    `gorm:"type:blob;not null" json:"-"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

// TableName specifies the table name for Embedding
func (Embedding) TableName() string {
	return "embeddings"
}

// MigrateEmbeddings runs migrations for the embeddings table
func MigrateEmbeddings(db *gorm.DB) error {
	return db.AutoMigrate(&Embedding{})
}

// CreateEmbeddingIndexes creates indexes for the embeddings table
func CreateEmbeddingIndexes(db *gorm.DB) error {
	indexes := []struct {
		name    string
		columns string
	}{
		{"idx_embeddings_content_hash", "memory_id, content_hash"},
		{"idx_embeddings_model", "model_name, model_version"},
	}

	for _, idx := range indexes {
		if !db.Migrator().HasIndex("embeddings", idx.name) {
			sql := "CREATE INDEX IF NOT EXISTS " + idx.name + " ON embeddings (" + idx.columns + ")"
			if err := db.Exec(sql).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// Float32SliceToBlob converts a float32 slice to little-endian bytes
func Float32SliceToBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		bits := math.Float32bits(f)
		binary.LittleEndian.PutUint32(buf[i*4:], bits)
	}
	return buf
}

// BlobToFloat32Slice converts little-endian bytes back to a float32 slice
func BlobToFloat32Slice(b []byte) []float32 {
	if len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		v[i] = math.Float32frombits(bits)
	}
	return v
}
