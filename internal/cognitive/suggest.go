// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cognitive

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/engramhq/engram-mcp/internal/database"
)

const (
	// forgottenImportanceCutoff is the minimum importance for the
	// forgotten-knowledge scan
	forgottenImportanceCutoff = 0.6
	// bestPracticeImportanceCutoff is the minimum importance for the
	// best-practice scan
	bestPracticeImportanceCutoff = 0.7
	// neverAccessedSentinel stands in for days-since-access on records that
	// were never read back
	neverAccessedSentinel = 999
	// repeatedErrorWindowDays bounds the repeated-error scan
	repeatedErrorWindowDays = 7
	// highSeverityCount is the cluster size at which a repeated error turns
	// high severity
	highSeverityCount = 3

	forgottenScanLimit = 10
	todoScanLimit      = 10
	errorGroupLimit    = 5
	bestPracticeLimit  = 10
	mergePerCategory   = 2

	previewLimit     = 200
	issueLineLimit   = 100
	millisPerDay     = int64(24 * time.Hour / time.Millisecond)
)

// Suggester runs the independent suggestion scans and merges them into a
// prioritized action list. It does not require an active context; each scan
// is a single idempotent read.
type Suggester struct {
	store *database.Store
	opts  Options
}

// NewSuggester creates a suggestion engine over the given store
func NewSuggester(store *database.Store, opts Options) *Suggester {
	return &Suggester{store: store, opts: opts}
}

// Suggest runs all signal scans and returns the merged, prioritized
// suggestions plus the raw per-category lists. A failed scan degrades to an
// empty category rather than blanking the others.
func (s *Suggester) Suggest(now time.Time, projectHint, contextTypeHint string, limit int) *SuggestResult {
	if limit <= 0 {
		limit = 5
	}

	forgotten := s.scanForgotten(now, projectHint)
	issues := s.scanIssues(now, projectHint)
	practices := s.scanBestPractices(projectHint)

	suggestions := s.merge(forgotten, issues, practices, contextTypeHint)
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}

	return &SuggestResult{
		Suggestions:        suggestions,
		PotentialIssues:    issues,
		ForgottenKnowledge: forgotten,
	}
}

// scanForgotten finds important records that have gone unaccessed past the
// threshold
func (s *Suggester) scanForgotten(now time.Time, project string) []ForgottenKnowledge {
	cutoff := now.UnixMilli() - int64(s.opts.ForgottenDaysThreshold)*millisPerDay

	memories, err := s.store.QueryForgotten(forgottenImportanceCutoff, cutoff, project, forgottenScanLimit)
	if err != nil {
		log.Printf("warning: forgotten-knowledge scan failed: %v", err)
		return []ForgottenKnowledge{}
	}

	results := make([]ForgottenKnowledge, 0, len(memories))
	for i := range memories {
		mem := &memories[i]
		days := neverAccessedSentinel
		if mem.LastAccessed != nil {
			days = int((now.UnixMilli() - *mem.LastAccessed) / millisPerDay)
		}
		results = append(results, ForgottenKnowledge{
			MemoryID:        mem.ID,
			ContentPreview:  preview(mem.Content),
			Project:         mem.Project,
			ImportanceScore: mem.ImportanceScore,
			DaysSinceAccess: days,
			Reason:          fmt.Sprintf("Important memory (%s) not accessed in %d days", formatScore(mem.ImportanceScore), days),
		})
	}
	return results
}

// scanIssues combines the unresolved-marker scan and the repeated-error scan
func (s *Suggester) scanIssues(now time.Time, project string) []PotentialIssue {
	issues := s.scanTodos(project)
	return append(issues, s.scanRepeatedErrors(now, project)...)
}

// issueMarkers are the unresolved-work markers searched for in content
var issueMarkers = []string{"todo", "fixme", "hack"}

func (s *Suggester) scanTodos(project string) []PotentialIssue {
	memories, err := s.store.QueryTodos(project, todoScanLimit)
	if err != nil {
		log.Printf("warning: unresolved-marker scan failed: %v", err)
		return []PotentialIssue{}
	}

	issues := make([]PotentialIssue, 0, len(memories))
	for i := range memories {
		mem := &memories[i]
		line, ok := firstMarkerLine(mem.Content)
		if !ok {
			continue
		}
		issues = append(issues, PotentialIssue{
			Type:        "unresolved_todo",
			Title:       "Unresolved TODO",
			Description: truncate(line, issueLineLimit),
			MemoryID:    mem.ID,
			Project:     mem.Project,
			Severity:    SeverityMedium,
			Reason:      "Found in memory content",
		})
	}
	return issues
}

// firstMarkerLine returns the first line of content carrying an unresolved
// marker
func firstMarkerLine(content string) (string, bool) {
	for _, line := range strings.Split(content, "\n") {
		lower := strings.ToLower(line)
		for _, marker := range issueMarkers {
			if strings.Contains(lower, marker) {
				return strings.TrimSpace(line), true
			}
		}
	}
	return "", false
}

func (s *Suggester) scanRepeatedErrors(now time.Time, project string) []PotentialIssue {
	since := now.UnixMilli() - repeatedErrorWindowDays*millisPerDay

	groups, err := s.store.QueryRepeatedErrors(since, project, errorGroupLimit)
	if err != nil {
		log.Printf("warning: repeated-error scan failed: %v", err)
		return []PotentialIssue{}
	}

	issues := make([]PotentialIssue, 0, len(groups))
	for _, group := range groups {
		severity := SeverityMedium
		if group.Count >= highSeverityCount {
			severity = SeverityHigh
		}
		issues = append(issues, PotentialIssue{
			Type:        "repeated_error",
			Title:       fmt.Sprintf("Repeated error (%d times)", group.Count),
			Description: preview(group.Content),
			Severity:    severity,
			Count:       group.Count,
			Reason:      "Error occurred multiple times this week",
		})
	}
	return issues
}

func (s *Suggester) scanBestPractices(project string) []database.Memory {
	memories, err := s.store.QueryBestPractices(bestPracticeImportanceCutoff, project, bestPracticeLimit)
	if err != nil {
		log.Printf("warning: best-practice scan failed: %v", err)
		return nil
	}
	return memories
}

// merge assembles the prioritized suggestion list: top forgotten-knowledge
// items, top high-severity issues, top best practices and, in a debugging
// context, a fixed pattern hint. The stable sort keeps insertion order for
// equal priorities.
func (s *Suggester) merge(forgotten []ForgottenKnowledge, issues []PotentialIssue, practices []database.Memory, contextTypeHint string) []Suggestion {
	var merged []Suggestion

	for i, item := range forgotten {
		if i >= mergePerCategory {
			break
		}
		merged = append(merged, Suggestion{
			Type:        "forgotten_knowledge",
			Title:       "Review forgotten important memory",
			Description: item.ContentPreview,
			MemoryID:    item.MemoryID,
			Priority:    PriorityForgotten,
			Action:      "review",
			Reason:      item.Reason,
		})
	}

	added := 0
	for _, issue := range issues {
		if issue.Severity != SeverityHigh {
			continue
		}
		if added >= mergePerCategory {
			break
		}
		merged = append(merged, Suggestion{
			Type:        "issue_suggestion",
			Title:       issue.Title,
			Description: issue.Description,
			MemoryID:    issue.MemoryID,
			Priority:    PriorityIssue,
			Action:      "investigate",
			Reason:      issue.Reason,
		})
		added++
	}

	for i := range practices {
		if i >= mergePerCategory {
			break
		}
		mem := &practices[i]
		merged = append(merged, Suggestion{
			Type:        "best_practice",
			Title:       "Relevant past insight",
			Description: preview(mem.Content),
			MemoryID:    mem.ID,
			Priority:    PriorityBestPractice,
			Action:      "review",
			Reason:      fmt.Sprintf("Related %s from past work", mem.Type),
		})
	}

	if contextTypeHint == ContextDebugging {
		merged = append(merged, Suggestion{
			Type:        "pattern_suggestion",
			Title:       "Check error patterns",
			Description: "You appear to be debugging. Consider checking past error resolutions for similar issues.",
			Priority:    PriorityPattern,
			Action:      "search_errors",
			Reason:      "Debugging context detected",
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Priority > merged[j].Priority
	})
	return merged
}

// preview truncates content for suggestion payloads
func preview(content string) string {
	if len(content) <= previewLimit {
		return content
	}
	return content[:previewLimit] + "..."
}
