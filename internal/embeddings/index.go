// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package embeddings

import (
	"context"
	"fmt"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/engramhq/engram-mcp/internal/database"
)

const collectionName = "memories"

// Index is an in-memory vector index over active memories, backed by
// chromem-go. Vectors are supplied by the embedding service; the index
// never calls the embedding provider itself.
type Index struct {
	db  *chromem.DB
	col *chromem.Collection
	mu  sync.RWMutex
}

// SearchResult is one hit from a vector search
type SearchResult struct {
	MemoryID   string  `json:"memory_id"`
	Content    string  `json:"content"`
	Project    string  `json:"project,omitempty"`
	Type       string  `json:"type"`
	Similarity float64 `json:"similarity"`
}

// NewIndex creates an empty vector index
func NewIndex() (*Index, error) {
	db := chromem.NewDB()
	col, err := db.CreateCollection(collectionName, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector collection: %w", err)
	}
	return &Index{db: db, col: col}, nil
}

// Add inserts or replaces a memory's vector in the index
func (x *Index) Add(mem *database.Memory, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty vector for memory %s", mem.ID)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	doc := chromem.Document{
		ID:        mem.ID,
		Content:   mem.Content,
		Embedding: vector,
		Metadata: map[string]string{
			"project": mem.Project,
			"type":    mem.Type,
		},
	}

	if err := x.col.AddDocument(context.Background(), doc); err != nil {
		return fmt.Errorf("failed to add document: %w", err)
	}
	return nil
}

// Remove drops a memory from the index. Missing IDs are ignored.
func (x *Index) Remove(memoryID string) {
	x.mu.Lock()
	defer x.mu.Unlock()
	_ = x.col.Delete(context.Background(), nil, nil, memoryID)
}

// Count returns the number of indexed memories
func (x *Index) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.col.Count()
}

// Search returns the closest memories to the query vector, optionally
// restricted to one project. Results are ordered by similarity descending.
func (x *Index) Search(vector []float32, project string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.col.Count() == 0 {
		return nil, nil
	}
	if limit > x.col.Count() {
		limit = x.col.Count()
	}

	var where map[string]string
	if project != "" {
		where = map[string]string{"project": project}
	}

	// chromem rejects nResults larger than the number of matching
	// documents, which a metadata filter can shrink below Count
	var results []chromem.Result
	for n := limit; n >= 1; n-- {
		var err error
		results, err = x.col.QueryEmbedding(context.Background(), vector, n, where, nil)
		if err == nil {
			break
		}
		if isInsufficientDocsError(err) {
			if n == 1 {
				return nil, nil
			}
			continue
		}
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	hits := make([]SearchResult, 0, len(results))
	for _, r := range results {
		hits = append(hits, SearchResult{
			MemoryID:   r.ID,
			Content:    r.Content,
			Project:    r.Metadata["project"],
			Type:       r.Metadata["type"],
			Similarity: float64(r.Similarity),
		})
	}
	return hits, nil
}

func isInsufficientDocsError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "nResults must be") || strings.Contains(msg, "number of documents")
}
