// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package embeddings

import (
	"fmt"
	"log"
	"time"

	"github.com/engramhq/engram-mcp/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles embedding generation and caching with lazy regeneration.
// Vectors are cached in the embeddings table keyed by memory ID; a cached
// vector is reused until the content hash or model version changes.
type Service struct {
	db           *gorm.DB
	client       Client
	index        *Index
	modelName    string
	modelVersion string
	enabled      bool
}

// NewService creates a new embedding service
func NewService(db *gorm.DB, client Client, index *Index) *Service {
	info := client.GetModelInfo()
	return &Service{
		db:           db,
		client:       client,
		index:        index,
		modelName:    info.Name,
		modelVersion: info.Version,
		enabled:      true,
	}
}

// SetEnabled enables or disables the embedding service
func (s *Service) SetEnabled(enabled bool) {
	s.enabled = enabled
}

// IsEnabled returns whether the service is enabled
func (s *Service) IsEnabled() bool {
	return s.enabled
}

// GetEmbedding retrieves or generates an embedding for the given memory
// content. Returns the cached vector when fresh, regenerates when stale.
func (s *Service) GetEmbedding(memoryID, content string) ([]float32, error) {
	if !s.enabled {
		return nil, nil
	}

	contentHash := database.HashContent(content)

	var cached Embedding
	err := s.db.Where("memory_id = ? AND content_hash = ? AND model_version = ?",
		memoryID, contentHash, s.modelVersion).First(&cached).Error
	if err == nil {
		return BlobToFloat32Slice(cached.Vector), nil
	}

	vector, err := s.client.Embed(content)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	embedding := Embedding{
		MemoryID:     memoryID,
		ContentHash:  contentHash,
		ModelName:    s.modelName,
		ModelVersion: s.modelVersion,
		Dimensions:   len(vector),
		Vector:       Float32SliceToBlob(vector),
		CreatedAt:    time.Now(),
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "memory_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_hash", "model_version", "vector", "created_at", "dimensions"}),
	}).Create(&embedding).Error
	if err != nil {
		return nil, fmt.Errorf("failed to cache embedding: %w", err)
	}

	return vector, nil
}

// IndexMemory embeds a memory and adds it to the vector index. Best effort;
// callers treat a failure as a degradation, not an error.
func (s *Service) IndexMemory(mem *database.Memory) error {
	if !s.enabled || s.index == nil {
		return nil
	}

	vector, err := s.GetEmbedding(mem.ID, mem.Content)
	if err != nil {
		return err
	}

	return s.index.Add(mem, vector)
}

// RemoveMemory drops a memory from the cache and the index
func (s *Service) RemoveMemory(memoryID string) error {
	if err := s.db.Where("memory_id = ?", memoryID).Delete(&Embedding{}).Error; err != nil {
		return err
	}
	if s.index != nil {
		s.index.Remove(memoryID)
	}
	return nil
}

// RebuildIndex loads all cached vectors for the given memories into the
// vector index. Memories without a fresh cached vector are skipped; they
// are picked up the next time they are stored or searched.
func (s *Service) RebuildIndex(memories []database.Memory) error {
	if !s.enabled || s.index == nil {
		return nil
	}

	byID := make(map[string]*database.Memory, len(memories))
	for i := range memories {
		byID[memories[i].ID] = &memories[i]
	}

	var cached []Embedding
	if err := s.db.Where("model_version = ?", s.modelVersion).Find(&cached).Error; err != nil {
		return fmt.Errorf("failed to load cached embeddings: %w", err)
	}

	loaded := 0
	for _, emb := range cached {
		mem, ok := byID[emb.MemoryID]
		if !ok {
			continue
		}
		if err := s.index.Add(mem, BlobToFloat32Slice(emb.Vector)); err != nil {
			log.Printf("Warning: failed to index memory %s: %v", emb.MemoryID, err)
			continue
		}
		loaded++
	}

	if loaded > 0 {
		log.Printf("Loaded %d cached embeddings into vector index", loaded)
	}
	return nil
}

// Search embeds the query and returns the closest memories from the index
func (s *Service) Search(query, project string, limit int) ([]SearchResult, error) {
	if !s.enabled || s.index == nil {
		return nil, fmt.Errorf("semantic search is not enabled")
	}

	vector, err := s.client.Embed(query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return s.index.Search(vector, project, limit)
}

// CountEmbeddings returns the total number of cached embeddings
func (s *Service) CountEmbeddings() (int64, error) {
	var count int64
	err := s.db.Model(&Embedding{}).Count(&count).Error
	return count, err
}
