// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cognitive

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/engramhq/engram-mcp/internal/database"
)

// recallContentLimit bounds the content carried per recalled memory; the
// full text stays in the store.
const recallContentLimit = 300

// highRelevanceCutoff marks a recalled memory as worth calling out in the
// advisory suggestions.
const highRelevanceCutoff = 0.5

// msgNoRecentActivity is returned when the context window holds no activity
const msgNoRecentActivity = "No recent activity detected. Store memories as you work to enable contextual recall."

// Engine orchestrates the context analyzer, candidate retrieval and the
// relevance scorer into a ranked recall list.
type Engine struct {
	store    *database.Store
	analyzer *Analyzer
	scorer   *Scorer
	opts     Options
}

// NewEngine creates a recall engine over the given collaborators
func NewEngine(store *database.Store, analyzer *Analyzer, scorer *Scorer, opts Options) *Engine {
	return &Engine{
		store:    store,
		analyzer: analyzer,
		scorer:   scorer,
		opts:     opts,
	}
}

// Recall analyzes the recent window and returns memories relevant to it,
// strictly excluding the in-window records the context was built from. A
// store failure is a total failure; recall never synthesizes partial results.
func (e *Engine) Recall(now time.Time, windowMinutes, limit int, projectHint, fileHint string) (*RecallResult, error) {
	if windowMinutes <= 0 {
		windowMinutes = e.opts.RecentWindowMinutes
	}
	if limit <= 0 {
		limit = 10
	}

	ctx, err := e.analyzer.Analyze(now, windowMinutes, projectHint, fileHint)
	if err != nil {
		return nil, fmt.Errorf("context analysis failed: %w", err)
	}

	if !ctx.Active {
		return &RecallResult{
			Context:          ctx,
			RecalledMemories: []RecalledMemory{},
			Suggestions:      []string{msgNoRecentActivity},
		}, nil
	}

	// Candidate pool: same projects or shared top entities, strictly older
	// than the context window.
	entityTerms := ctx.ActiveEntities
	if len(entityTerms) > e.opts.EntityFilterLimit {
		entityTerms = entityTerms[:e.opts.EntityFilterLimit]
	}
	cutoff := now.UnixMilli() - int64(windowMinutes)*60000

	candidates, err := e.store.QueryByProjectsOrEntities(ctx.ActiveProjects, entityTerms, cutoff, e.opts.CandidateMultiplier*limit)
	if err != nil {
		return nil, fmt.Errorf("candidate retrieval failed: %w", err)
	}

	recalled := make([]RecalledMemory, 0, len(candidates))
	for i := range candidates {
		mem := &candidates[i]
		score, reason := e.scorer.Score(mem, ctx)
		recalled = append(recalled, RecalledMemory{
			ID:              mem.ID,
			Type:            mem.Type,
			Content:         truncate(mem.Content, recallContentLimit),
			Project:         mem.Project,
			FilePath:        mem.FilePath,
			Tags:            mem.TagList(),
			Entities:        mem.EntityList(),
			Timestamp:       mem.Timestamp,
			ImportanceScore: mem.ImportanceScore,
			RelevanceScore:  score,
			RecallReason:    reason,
		})
	}

	sort.SliceStable(recalled, func(i, j int) bool {
		return recalled[i].RelevanceScore > recalled[j].RelevanceScore
	})
	if len(recalled) > limit {
		recalled = recalled[:limit]
	}

	// Returning a memory counts as accessing it. The increment is advisory
	// metadata; a failed update is logged, not fatal.
	nowMs := now.UnixMilli()
	for _, mem := range recalled {
		if err := e.store.IncrementAccess(mem.ID, nowMs); err != nil {
			log.Printf("warning: failed to update access stats for %s: %v", mem.ID, err)
		}
	}

	return &RecallResult{
		Context:          ctx,
		RecalledMemories: recalled,
		Suggestions:      e.adviseOnRecall(ctx, recalled),
	}, nil
}

// adviseOnRecall derives up to three advisory strings from the context and
// the recall outcome
func (e *Engine) adviseOnRecall(ctx *ContextSnapshot, recalled []RecalledMemory) []string {
	var suggestions []string

	if ctx.ContextType == ContextDebugging {
		suggestions = append(suggestions, "Debugging context detected. Past error resolutions may hold the fix.")
	}

	highly := 0
	for _, mem := range recalled {
		if mem.RelevanceScore > highRelevanceCutoff {
			highly++
		}
	}
	if highly > 0 {
		suggestions = append(suggestions, fmt.Sprintf("Found %d highly relevant memories from past work.", highly))
	}

	if ctx.CurrentFocus != "" {
		suggestions = append(suggestions, "Current focus: "+ctx.CurrentFocus)
	}

	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	return suggestions
}
