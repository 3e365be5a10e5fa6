// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package backup

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/engramhq/engram-mcp/internal/database"
)

// memoryDoc is the YAML frontmatter layout for one exported memory file
type memoryDoc struct {
	ID              string   `yaml:"id"`
	Type            string   `yaml:"type"`
	Project         string   `yaml:"project,omitempty"`
	FilePath        string   `yaml:"file_path,omitempty"`
	Language        string   `yaml:"language,omitempty"`
	Tags            []string `yaml:"tags,omitempty"`
	Entities        []string `yaml:"entities,omitempty"`
	Timestamp       int64    `yaml:"timestamp"`
	ImportanceScore float64  `yaml:"importance_score"`
	AccessCount     int      `yaml:"access_count,omitempty"`
	LastAccessed    *int64   `yaml:"last_accessed,omitempty"`
	ContentHash     string   `yaml:"content_hash,omitempty"`
	Archived        bool     `yaml:"archived,omitempty"`
}

// ToMarkdown renders a memory as markdown with YAML frontmatter
func ToMarkdown(mem *database.Memory) (string, error) {
	doc := memoryDoc{
		ID:              mem.ID,
		Type:            mem.Type,
		Project:         mem.Project,
		FilePath:        mem.FilePath,
		Language:        mem.Language,
		Tags:            mem.TagList(),
		Entities:        mem.EntityList(),
		Timestamp:       mem.Timestamp,
		ImportanceScore: mem.ImportanceScore,
		AccessCount:     mem.AccessCount,
		LastAccessed:    mem.LastAccessed,
		ContentHash:     mem.ContentHash,
		Archived:        mem.Archived,
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")

	frontmatterData, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	buf.Write(frontmatterData)
	buf.WriteString("---\n\n")
	buf.WriteString(mem.Content)
	buf.WriteString("\n")

	return buf.String(), nil
}

// ParseMarkdown parses an exported memory file back into a memory record
func ParseMarkdown(content string) (*database.Memory, error) {
	frontmatter, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, fmt.Errorf("failed to split frontmatter: %w", err)
	}
	if frontmatter == "" {
		return nil, fmt.Errorf("memory file has no frontmatter")
	}

	var doc memoryDoc
	if err := yaml.Unmarshal([]byte(frontmatter), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("memory file has no id")
	}

	mem := database.Memory{
		ID:              doc.ID,
		Type:            doc.Type,
		Content:         strings.TrimSpace(body),
		Project:         doc.Project,
		FilePath:        doc.FilePath,
		Language:        doc.Language,
		Timestamp:       doc.Timestamp,
		ImportanceScore: doc.ImportanceScore,
		AccessCount:     doc.AccessCount,
		LastAccessed:    doc.LastAccessed,
		ContentHash:     doc.ContentHash,
		Archived:        doc.Archived,
	}
	mem.SetTags(doc.Tags)
	mem.SetEntities(doc.Entities)
	if mem.ContentHash == "" {
		mem.ContentHash = database.HashContent(mem.Content)
	}

	return &mem, nil
}

// splitFrontmatter splits markdown content into frontmatter and body
func splitFrontmatter(content string) (string, string, error) {
	content = strings.TrimSpace(content)

	if !strings.HasPrefix(content, "---") {
		return "", content, nil
	}

	lines := strings.Split(content, "\n")
	if len(lines) < 3 {
		return "", content, nil
	}

	closingIndex := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closingIndex = i
			break
		}
	}

	if closingIndex == -1 {
		return "", content, fmt.Errorf("frontmatter not properly closed")
	}

	frontmatter := strings.Join(lines[1:closingIndex], "\n")

	body := ""
	if closingIndex+1 < len(lines) {
		body = strings.Join(lines[closingIndex+1:], "\n")
	}

	return frontmatter, body, nil
}
