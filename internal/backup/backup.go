// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package backup exports the memory corpus to a git-versioned directory of
// markdown files and restores it back. One file per memory, grouped by
// project, with a manifest describing each snapshot.
package backup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/engramhq/engram-mcp/internal/database"
)

const (
	manifestName   = "manifest.yaml"
	unfiledDirName = "_unfiled"
)

// Manifest describes one backup snapshot
type Manifest struct {
	SnapshotID  string    `yaml:"snapshot_id"`
	CreatedAt   time.Time `yaml:"created_at"`
	MemoryCount int       `yaml:"memory_count"`
}

// Manager runs backup snapshots and restores
type Manager struct {
	store  *database.Store
	repo   *Repository
	author string
	email  string
}

// NewManager creates a backup manager over the given backup directory
func NewManager(store *database.Store, path, author, email string) (*Manager, error) {
	repo, err := OpenOrInitRepository(path)
	if err != nil {
		return nil, err
	}

	return &Manager{
		store:  store,
		repo:   repo,
		author: author,
		email:  email,
	}, nil
}

// Snapshot exports every memory to the backup tree and commits the result.
// Files for deleted memories are removed. Returns the manifest of the new
// snapshot, or nil when nothing changed since the last one.
func (m *Manager) Snapshot() (*Manifest, error) {
	memories, err := m.store.ListAll(0)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}

	expected := make(map[string]bool, len(memories))
	for i := range memories {
		rel := memoryFilePath(&memories[i])
		expected[rel] = true

		content, err := ToMarkdown(&memories[i])
		if err != nil {
			return nil, fmt.Errorf("failed to render memory %s: %w", memories[i].ID, err)
		}

		full := filepath.Join(m.repo.Path, rel)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return nil, fmt.Errorf("failed to create project directory: %w", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			return nil, fmt.Errorf("failed to write memory file: %w", err)
		}
	}

	if err := m.pruneStaleFiles(expected); err != nil {
		return nil, err
	}

	manifest := Manifest{
		SnapshotID:  uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		MemoryCount: len(memories),
	}
	manifestData, err := yaml.Marshal(&manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}

	changed, err := m.repo.HasChanges()
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, nil
	}

	if err := os.WriteFile(filepath.Join(m.repo.Path, manifestName), manifestData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	message := fmt.Sprintf("snapshot: %d memories (%s)", len(memories), manifest.SnapshotID)
	if err := m.repo.CommitAll(message, m.author, m.email); err != nil {
		return nil, err
	}

	return &manifest, nil
}

// Restore loads every memory file from the backup tree back into the
// database, replacing records that share an ID. Returns the number of
// memories restored.
func (m *Manager) Restore() (int, error) {
	restored := 0
	err := filepath.WalkDir(m.repo.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		mem, err := ParseMarkdown(string(data))
		if err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			return nil
		}

		if err := m.store.Upsert(mem); err != nil {
			return fmt.Errorf("failed to restore memory %s: %w", mem.ID, err)
		}
		restored++
		return nil
	})
	if err != nil {
		return restored, err
	}

	return restored, nil
}

// LastManifest reads the manifest of the most recent snapshot
func (m *Manager) LastManifest() (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(m.repo.Path, manifestName))
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &manifest, nil
}

// pruneStaleFiles removes memory files that no longer have a record
func (m *Manager) pruneStaleFiles(expected map[string]bool) error {
	return filepath.WalkDir(m.repo.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		rel, err := filepath.Rel(m.repo.Path, path)
		if err != nil {
			return err
		}
		if !expected[rel] {
			return os.Remove(path)
		}
		return nil
	})
}

// memoryFilePath returns the relative path for a memory's backup file
func memoryFilePath(mem *database.Memory) string {
	dir := sanitizeProjectDir(mem.Project)
	return filepath.Join(dir, mem.ID+".md")
}

// sanitizeProjectDir maps a project name to a safe directory name
func sanitizeProjectDir(project string) string {
	if project == "" {
		return unfiledDirName
	}
	var b strings.Builder
	for _, r := range project {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	name := b.String()
	if name == "" || strings.Trim(name, ".") == "" {
		return unfiledDirName
	}
	return name
}
