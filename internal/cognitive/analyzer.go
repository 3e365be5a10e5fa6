// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cognitive

import (
	"strings"
	"time"

	"github.com/engramhq/engram-mcp/internal/database"
)

// ClassifyFunc infers a context type label from the in-window records and
// their type frequencies. It is injected so the keyword heuristic can be
// swapped for a real classifier without touching the analyzer.
type ClassifyFunc func(records []database.Memory, types *frequency) string

// Analyzer derives a ContextSnapshot from recent memory activity. It holds no
// state between calls; every Analyze re-reads the store.
type Analyzer struct {
	store    *database.Store
	opts     Options
	classify ClassifyFunc
}

// NewAnalyzer creates a context analyzer over the given store
func NewAnalyzer(store *database.Store, opts Options) *Analyzer {
	return &Analyzer{
		store:    store,
		opts:     opts,
		classify: ClassifyByContent,
	}
}

// SetClassifier replaces the context-type classifier
func (a *Analyzer) SetClassifier(fn ClassifyFunc) {
	if fn != nil {
		a.classify = fn
	}
}

// Analyze inspects the recent time window and returns a snapshot of current
// activity. With no in-window records it returns a well-formed inactive
// snapshot, not an error.
func (a *Analyzer) Analyze(now time.Time, windowMinutes int, projectHint, fileHint string) (*ContextSnapshot, error) {
	if windowMinutes <= 0 {
		windowMinutes = a.opts.RecentWindowMinutes
	}

	cutoff := now.UnixMilli() - int64(windowMinutes)*60000

	records, err := a.store.QueryTimeWindow(cutoff, projectHint, fileHint, a.opts.ContextScanLimit)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return &ContextSnapshot{
			Active:            false,
			ActiveProjects:    []string{},
			ActiveEntities:    []string{},
			TimeWindowMinutes: windowMinutes,
		}, nil
	}

	// Records arrive newest-first, so first encounter breaks frequency ties
	// in favor of more recent activity.
	projects := newFrequency()
	types := newFrequency()
	files := newFrequency()
	entities := newFrequency()

	for i := range records {
		mem := &records[i]
		projects.add(mem.Project)
		types.add(mem.Type)
		files.add(mem.FilePath)
		for _, entity := range mem.EntityList() {
			entities.add(entity)
		}
	}

	primaryProject, _ := projects.peak()

	return &ContextSnapshot{
		Active:              true,
		ContextType:         a.classify(records, types),
		PrimaryProject:      primaryProject,
		ActiveProjects:      projects.top(a.opts.ActiveProjectLimit),
		ActiveEntities:      entities.top(a.opts.ActiveEntityLimit),
		ActiveFiles:         files.top(a.opts.ActiveFileLimit),
		ActivityTypes:       types.topWithCounts(5),
		CurrentFocus:        a.inferFocus(records, entities, files),
		RecentActivityCount: len(records),
		TimeWindowMinutes:   windowMinutes,
	}, nil
}

// inferFocus picks a single focus label. An entity repeated enough times wins
// over a file, a file over a content topic.
func (a *Analyzer) inferFocus(records []database.Memory, entities, files *frequency) string {
	if entity, count := entities.peak(); count >= a.opts.FocusRepeatThreshold {
		return "entity:" + entity
	}
	if file, count := files.peak(); count >= a.opts.FocusRepeatThreshold {
		return "file:" + file
	}
	return inferTopicFocus(records)
}

// debugKeywords trigger the debugging override in the default classifier.
// Error-handling activity is a high-value signal that raw type frequencies
// would dilute.
var debugKeywords = []string{"error", "exception", "traceback", "failed", "bug", "fix"}

// typeContextMap maps the dominant record type to a context label
var typeContextMap = map[string]string{
	database.TypeCode:         ContextCoding,
	database.TypeCommand:      ContextSystemAdmin,
	database.TypeConversation: ContextPlanning,
	database.TypeNote:         ContextDocumentation,
	database.TypeDecision:     ContextPlanning,
	database.TypeInsight:      ContextAnalysis,
}

// ClassifyByContent is the default context-type classifier: a debugging
// keyword scan over the newest records, then a lookup on the dominant record
// type.
func ClassifyByContent(records []database.Memory, types *frequency) string {
	var sb strings.Builder
	for i, mem := range records {
		if i >= 10 {
			break
		}
		sb.WriteString(strings.ToLower(truncate(mem.Content, 200)))
		sb.WriteString(" ")
	}
	recent := sb.String()

	for _, keyword := range debugKeywords {
		if strings.Contains(recent, keyword) {
			return ContextDebugging
		}
	}

	primaryType, _ := types.peak()
	if label, ok := typeContextMap[primaryType]; ok {
		return label
	}
	return ContextGeneral
}

// topicKeywords map content keywords to focus topics when neither an entity
// nor a file dominates the window
var topicKeywords = []struct {
	keyword string
	topic   string
}{
	{"authentication", "auth"},
	{"login", "auth"},
	{"database", "database"},
	{"sql", "database"},
	{"api", "api"},
	{"endpoint", "api"},
	{"test", "testing"},
	{"deploy", "deployment"},
	{"docker", "deployment"},
	{"kubernetes", "deployment"},
	{"performance", "optimization"},
	{"security", "security"},
	{"refactor", "refactoring"},
}

func inferTopicFocus(records []database.Memory) string {
	var sb strings.Builder
	for i, mem := range records {
		if i >= 5 {
			break
		}
		sb.WriteString(strings.ToLower(truncate(mem.Content, 200)))
		sb.WriteString(" ")
	}
	recent := sb.String()

	for _, tk := range topicKeywords {
		if strings.Contains(recent, tk.keyword) {
			return "topic:" + tk.topic
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
