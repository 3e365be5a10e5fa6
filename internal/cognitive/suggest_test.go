// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cognitive

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/engramhq/engram-mcp/internal/database"
)

func newTestSuggester(store *database.Store) *Suggester {
	return NewSuggester(store, DefaultOptions())
}

func TestSuggest_EmptyStore(t *testing.T) {
	store := setupStore(t)
	suggester := newTestSuggester(store)

	result := suggester.Suggest(time.Now(), "", "", 0)

	assert.Empty(t, result.Suggestions)
	assert.Empty(t, result.PotentialIssues)
	assert.Empty(t, result.ForgottenKnowledge)
}

func TestSuggest_ForgottenKnowledge(t *testing.T) {
	store := setupStore(t)
	suggester := newTestSuggester(store)
	now := time.Now()

	stale := now.Add(-20 * 24 * time.Hour).UnixMilli()
	fresh := now.Add(-time.Hour).UnixMilli()

	staleMem := seed(t, store, now.Add(-30*24*time.Hour), database.TypeCode, "token refresh dance for the partner integration",
		withImportance(0.8), withAccess(2, stale))
	neverMem := seed(t, store, now.Add(-30*24*time.Hour), database.TypeCommand, "restore procedure for the replica",
		withImportance(0.9))
	seed(t, store, now.Add(-30*24*time.Hour), database.TypeCode, "recently reviewed", withImportance(0.9), withAccess(5, fresh))
	seed(t, store, now.Add(-30*24*time.Hour), database.TypeCode, "unimportant scratch", withImportance(0.3))

	result := suggester.Suggest(now, "", "", 10)

	require.Len(t, result.ForgottenKnowledge, 2)
	// Ordered by importance
	assert.Equal(t, neverMem.ID, result.ForgottenKnowledge[0].MemoryID)
	assert.Equal(t, neverAccessedSentinel, result.ForgottenKnowledge[0].DaysSinceAccess)
	assert.Contains(t, result.ForgottenKnowledge[0].Reason, "999 days")

	assert.Equal(t, staleMem.ID, result.ForgottenKnowledge[1].MemoryID)
	assert.Equal(t, 20, result.ForgottenKnowledge[1].DaysSinceAccess)
}

func TestSuggest_UnresolvedTodos(t *testing.T) {
	store := setupStore(t)
	suggester := newTestSuggester(store)
	now := time.Now()

	seed(t, store, now.Add(-time.Hour), database.TypeCode, "parser rewrite\nTODO: handle nested escapes properly")
	seed(t, store, now.Add(-time.Hour), database.TypeNote, "nothing unresolved here")

	result := suggester.Suggest(now, "", "", 10)

	require.Len(t, result.PotentialIssues, 1)
	issue := result.PotentialIssues[0]
	assert.Equal(t, "unresolved_todo", issue.Type)
	assert.Equal(t, SeverityMedium, issue.Severity)
	assert.Equal(t, "TODO: handle nested escapes properly", issue.Description)
}

func TestSuggest_TodoDescriptionTruncated(t *testing.T) {
	store := setupStore(t)
	suggester := newTestSuggester(store)
	now := time.Now()

	line := "FIXME " + strings.Repeat("a", 300)
	seed(t, store, now.Add(-time.Hour), database.TypeCode, line)

	result := suggester.Suggest(now, "", "", 10)

	require.Len(t, result.PotentialIssues, 1)
	assert.Len(t, result.PotentialIssues[0].Description, issueLineLimit)
}

func TestSuggest_RepeatedErrorsBySeverity(t *testing.T) {
	store := setupStore(t)
	suggester := newTestSuggester(store)
	now := time.Now()

	for i := 0; i < 3; i++ {
		seed(t, store, now.Add(-time.Duration(i+1)*time.Hour), database.TypeEvent, "error: connection reset by peer")
	}
	for i := 0; i < 2; i++ {
		seed(t, store, now.Add(-time.Duration(i+1)*time.Hour), database.TypeEvent, "error: certificate expired")
	}
	seed(t, store, now.Add(-time.Hour), database.TypeEvent, "error: one-off timeout")
	// Outside the seven-day window
	seed(t, store, now.Add(-10*24*time.Hour), database.TypeEvent, "error: connection reset by peer")

	result := suggester.Suggest(now, "", "", 10)

	require.Len(t, result.PotentialIssues, 2)

	bySeverity := map[string]PotentialIssue{}
	for _, issue := range result.PotentialIssues {
		bySeverity[issue.Severity] = issue
	}

	high := bySeverity[SeverityHigh]
	assert.Equal(t, "repeated_error", high.Type)
	assert.Equal(t, 3, high.Count)
	assert.Equal(t, "Repeated error (3 times)", high.Title)

	medium := bySeverity[SeverityMedium]
	assert.Equal(t, 2, medium.Count)
}

func TestSuggest_BestPracticeTypesOnly(t *testing.T) {
	store := setupStore(t)
	suggester := newTestSuggester(store)
	now := time.Now()

	fresh := now.Add(-time.Hour).UnixMilli()
	decision := seed(t, store, now.Add(-2*24*time.Hour), database.TypeDecision, "chose idempotency keys for retries",
		withImportance(0.9), withAccess(1, fresh))
	seed(t, store, now.Add(-2*24*time.Hour), database.TypeCode, "high importance but wrong type",
		withImportance(0.9), withAccess(1, fresh))
	seed(t, store, now.Add(-2*24*time.Hour), database.TypeNote, "important note below cutoff",
		withImportance(0.5), withAccess(1, fresh))

	result := suggester.Suggest(now, "", "", 10)

	require.Len(t, result.Suggestions, 1)
	s := result.Suggestions[0]
	assert.Equal(t, "best_practice", s.Type)
	assert.Equal(t, decision.ID, s.MemoryID)
	assert.Equal(t, PriorityBestPractice, s.Priority)
	assert.Equal(t, "Related decision from past work", s.Reason)
}

func TestSuggest_MergePriorityOrder(t *testing.T) {
	store := setupStore(t)
	suggester := newTestSuggester(store)
	now := time.Now()

	fresh := now.Add(-time.Hour).UnixMilli()

	// Forgotten knowledge, priority 7
	seed(t, store, now.Add(-30*24*time.Hour), database.TypeCode, "forgotten migration runbook", withImportance(0.8))
	// High-severity repeated error, priority 9
	for i := 0; i < 3; i++ {
		seed(t, store, now.Add(-time.Duration(i+1)*time.Hour), database.TypeEvent, "error: deadlock detected")
	}
	// Best practice, priority 5
	seed(t, store, now.Add(-2*24*time.Hour), database.TypeInsight, "batch writes cut latency in half",
		withImportance(0.9), withAccess(1, fresh))

	result := suggester.Suggest(now, "", ContextDebugging, 10)

	require.Len(t, result.Suggestions, 4)
	assert.Equal(t, "issue_suggestion", result.Suggestions[0].Type)
	assert.Equal(t, "pattern_suggestion", result.Suggestions[1].Type)
	assert.Equal(t, "forgotten_knowledge", result.Suggestions[2].Type)
	assert.Equal(t, "best_practice", result.Suggestions[3].Type)

	for i := 1; i < len(result.Suggestions); i++ {
		assert.GreaterOrEqual(t, result.Suggestions[i-1].Priority, result.Suggestions[i].Priority)
	}
}

func TestSuggest_MergeCapsPerCategory(t *testing.T) {
	store := setupStore(t)
	suggester := newTestSuggester(store)
	now := time.Now()

	for i := 0; i < 4; i++ {
		seed(t, store, now.Add(-30*24*time.Hour), database.TypeCode, "forgotten item", withImportance(0.8))
	}

	result := suggester.Suggest(now, "", "", 10)

	assert.Len(t, result.ForgottenKnowledge, 4)
	assert.Len(t, result.Suggestions, mergePerCategory)
}

func TestSuggest_LimitDefaultsToFive(t *testing.T) {
	store := setupStore(t)
	suggester := newTestSuggester(store)
	now := time.Now()

	fresh := now.Add(-time.Hour).UnixMilli()
	for i := 0; i < 3; i++ {
		seed(t, store, now.Add(-30*24*time.Hour), database.TypeCode, "forgotten item", withImportance(0.8))
		seed(t, store, now.Add(-2*24*time.Hour), database.TypeInsight, "insightful thing",
			withImportance(0.9), withAccess(1, fresh))
	}
	for i := 0; i < 3; i++ {
		seed(t, store, now.Add(-time.Duration(i+1)*time.Hour), database.TypeEvent, "error: out of memory")
		seed(t, store, now.Add(-time.Duration(i+1)*time.Hour), database.TypeEvent, "error: too many open files")
	}

	result := suggester.Suggest(now, "", ContextDebugging, 0)

	assert.Len(t, result.Suggestions, 5)
}

func TestSuggest_ProjectFilter(t *testing.T) {
	store := setupStore(t)
	suggester := newTestSuggester(store)
	now := time.Now()

	seed(t, store, now.Add(-30*24*time.Hour), database.TypeCode, "forgotten in api", withImportance(0.8), withProject("api"))
	seed(t, store, now.Add(-30*24*time.Hour), database.TypeCode, "forgotten in billing", withImportance(0.8), withProject("billing"))

	result := suggester.Suggest(now, "api", "", 10)

	require.Len(t, result.ForgottenKnowledge, 1)
	assert.Equal(t, "api", result.ForgottenKnowledge[0].Project)
}

func TestSuggest_RepeatedCallsReturnSameResult(t *testing.T) {
	store := setupStore(t)
	suggester := newTestSuggester(store)
	now := time.Now()

	seed(t, store, now.Add(-30*24*time.Hour), database.TypeCode, "forgotten token rotation notes", withImportance(0.8))
	seed(t, store, now.Add(-time.Hour), database.TypeCode, "TODO: bound the retry queue")
	for i := 0; i < 3; i++ {
		seed(t, store, now.Add(-time.Duration(i+1)*time.Hour), database.TypeEvent, "error: deadlock on migrations table")
	}
	seed(t, store, now.Add(-2*time.Hour), database.TypeDecision, "keep ULIDs for record ids", withImportance(0.9))

	first := suggester.Suggest(now, "", "", 10)
	second := suggester.Suggest(now, "", "", 10)

	require.NotEmpty(t, first.Suggestions)
	assert.Equal(t, first, second)
}

func TestSuggest_ScanFailureDegradesToEmptyResult(t *testing.T) {
	store := setupStore(t)
	suggester := newTestSuggester(store)
	now := time.Now()

	seed(t, store, now.Add(-30*24*time.Hour), database.TypeCode, "forgotten item", withImportance(0.8))

	sqlDB, err := store.DB().DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	result := suggester.Suggest(now, "", "", 10)

	require.NotNil(t, result)
	assert.Empty(t, result.Suggestions)
	assert.Empty(t, result.PotentialIssues)
	assert.Empty(t, result.ForgottenKnowledge)
}
