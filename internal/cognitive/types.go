// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cognitive

import "sort"

// Context type labels inferred by the analyzer
const (
	ContextDebugging     = "debugging"
	ContextCoding        = "coding"
	ContextSystemAdmin   = "system_admin"
	ContextPlanning      = "planning"
	ContextDocumentation = "documentation"
	ContextAnalysis      = "analysis"
	ContextGeneral       = "general"
)

// Issue severity levels
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// Suggestion priorities. Higher surfaces first in the merged list.
const (
	PriorityIssue        = 9
	PriorityPattern      = 8
	PriorityForgotten    = 7
	PriorityBestPractice = 5
)

// Options holds the tuning constants for the cognitive engines. The
// thresholds are empirically tuned, so they live here rather than as
// hard-coded literals.
type Options struct {
	RecentWindowMinutes    int // Default context window when the caller passes none
	ContextScanLimit       int // Max records the analyzer reads per call
	FocusRepeatThreshold   int // Repetitions before an entity/file counts as current focus
	EntityFilterLimit      int // Top-N entities used in the recall candidate filter
	ActiveEntityLimit      int // Top-N entities carried on a snapshot
	ActiveProjectLimit     int // Top-N projects carried on a snapshot
	ActiveFileLimit        int // Top-N files carried on a snapshot
	CandidateMultiplier    int // Recall candidates fetched = multiplier * limit
	ForgottenDaysThreshold int // Days unaccessed before knowledge counts as forgotten
}

// DefaultOptions returns the tuned defaults
func DefaultOptions() Options {
	return Options{
		RecentWindowMinutes:    30,
		ContextScanLimit:       50,
		FocusRepeatThreshold:   3,
		EntityFilterLimit:      5,
		ActiveEntityLimit:      10,
		ActiveProjectLimit:     3,
		ActiveFileLimit:        5,
		CandidateMultiplier:    2,
		ForgottenDaysThreshold: 14,
	}
}

// ContextSnapshot is a derived view of what the user is doing right now. It
// is a pure function of (now, window, non-archived in-window records): built,
// consumed and discarded within one operation, never persisted.
type ContextSnapshot struct {
	Active              bool           `json:"active"`
	ContextType         string         `json:"context_type,omitempty"`
	PrimaryProject      string         `json:"primary_project,omitempty"`
	ActiveProjects      []string       `json:"active_projects"`
	ActiveEntities      []string       `json:"active_entities"`
	ActiveFiles         []string       `json:"active_files,omitempty"`
	ActivityTypes       map[string]int `json:"activity_types,omitempty"`
	CurrentFocus        string         `json:"current_focus,omitempty"`
	RecentActivityCount int            `json:"recent_activity_count"`
	TimeWindowMinutes   int            `json:"time_window_minutes"`
}

// RecalledMemory is a scored projection of a stored record for recall output.
// Content is truncated for the payload; the full text stays in the store.
type RecalledMemory struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Content         string   `json:"content"`
	Project         string   `json:"project,omitempty"`
	FilePath        string   `json:"file_path,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Entities        []string `json:"entities,omitempty"`
	Timestamp       int64    `json:"timestamp"`
	ImportanceScore float64  `json:"importance_score"`
	RelevanceScore  float64  `json:"relevance_score"`
	RecallReason    string   `json:"recall_reason"`
}

// RecallResult is the full response of a contextual recall call
type RecallResult struct {
	Context          *ContextSnapshot `json:"context"`
	RecalledMemories []RecalledMemory `json:"recalled_memories"`
	Suggestions      []string         `json:"suggestions"`
}

// Suggestion is a single prioritized action item in the merged suggestion list
type Suggestion struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MemoryID    string `json:"memory_id,omitempty"`
	Priority    int    `json:"priority"`
	Action      string `json:"action"`
	Reason      string `json:"reason"`
}

// PotentialIssue is a detected problem signal (unresolved marker or repeated
// error cluster)
type PotentialIssue struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MemoryID    string `json:"memory_id,omitempty"`
	Project     string `json:"project,omitempty"`
	Severity    string `json:"severity"`
	Count       int    `json:"count,omitempty"`
	Reason      string `json:"reason"`
}

// ForgottenKnowledge is an important record that has gone unaccessed long
// enough to be worth resurfacing
type ForgottenKnowledge struct {
	MemoryID        string  `json:"memory_id"`
	ContentPreview  string  `json:"content_preview"`
	Project         string  `json:"project,omitempty"`
	ImportanceScore float64 `json:"importance_score"`
	DaysSinceAccess int     `json:"days_since_access"`
	Reason          string  `json:"reason"`
}

// SuggestResult carries the merged suggestion list plus the raw, unmerged
// signal lists so callers get both the curated picks and the full scans.
type SuggestResult struct {
	Suggestions        []Suggestion         `json:"suggestions"`
	PotentialIssues    []PotentialIssue     `json:"potential_issues"`
	ForgottenKnowledge []ForgottenKnowledge `json:"forgotten_knowledge"`
}

// frequency is an order-preserving counter. Ties in count are broken by first
// encounter, so a newest-first scan makes more recent values win ties.
type frequency struct {
	counts map[string]int
	order  []string
}

func newFrequency() *frequency {
	return &frequency{counts: make(map[string]int)}
}

func (f *frequency) add(key string) {
	if key == "" {
		return
	}
	if _, seen := f.counts[key]; !seen {
		f.order = append(f.order, key)
	}
	f.counts[key]++
}

// top returns up to n keys ordered by count descending; the stable sort keeps
// first-encounter order for equal counts.
func (f *frequency) top(n int) []string {
	keys := make([]string, len(f.order))
	copy(keys, f.order)
	stableSortByCount(keys, f.counts)
	if len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// topWithCounts returns up to n key->count pairs as a map, for snapshot
// reporting
func (f *frequency) topWithCounts(n int) map[string]int {
	top := f.top(n)
	if len(top) == 0 {
		return nil
	}
	result := make(map[string]int, len(top))
	for _, key := range top {
		result[key] = f.counts[key]
	}
	return result
}

// peak returns the most frequent key and its count
func (f *frequency) peak() (string, int) {
	top := f.top(1)
	if len(top) == 0 {
		return "", 0
	}
	return top[0], f.counts[top[0]]
}

func stableSortByCount(keys []string, counts map[string]int) {
	sort.SliceStable(keys, func(i, j int) bool {
		return counts[keys[i]] > counts[keys[j]]
	})
}
