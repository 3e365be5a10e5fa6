// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package cognitive

import (
	"fmt"
	"math"
	"strings"

	"github.com/engramhq/engram-mcp/internal/database"
)

// Relevance weights. Each component is individually capped so the total
// stays within [0, 1] and the reason string can be derived directly from
// which terms fired.
const (
	weightPrimaryProject  = 0.35
	weightActiveProject   = 0.20
	weightEntityPerMatch  = 0.10
	weightEntityCap       = 0.30
	weightImportance      = 0.20
	weightAccess          = 0.10
	accessNormalization   = 10.0
	highImportanceCutoff  = 0.7
	defaultImportance     = 0.5
	reasonEntityNameLimit = 3
)

// Scorer computes the relevance of a stored record against a context
// snapshot. Pure arithmetic over precomputed sets; no model inference.
type Scorer struct{}

// NewScorer creates a relevance scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score returns a relevance score in [0, 1] and a human-readable reason.
// The score is additive over bounded components and rounded to 3 decimal
// places so orderings stay deterministic across platforms.
func (s *Scorer) Score(mem *database.Memory, ctx *ContextSnapshot) (float64, string) {
	score := 0.0
	var reasons []string

	// Project match
	if mem.Project != "" {
		if mem.Project == ctx.PrimaryProject {
			score += weightPrimaryProject
			reasons = append(reasons, "Same project: "+mem.Project)
		} else if contains(ctx.ActiveProjects, mem.Project) {
			score += weightActiveProject
		}
	}

	// Entity overlap, capped to keep heavily-tagged records from running away
	overlap := intersect(mem.EntityList(), ctx.ActiveEntities)
	if len(overlap) > 0 {
		score += math.Min(weightEntityCap, weightEntityPerMatch*float64(len(overlap)))
		names := overlap
		if len(names) > reasonEntityNameLimit {
			names = names[:reasonEntityNameLimit]
		}
		reasons = append(reasons, "Related entities: "+strings.Join(names, ", "))
	}

	// Stored importance, defaulting when the background scorer has not run
	importance := mem.ImportanceScore
	if importance == 0 {
		importance = defaultImportance
	}
	score += importance * weightImportance
	if importance >= highImportanceCutoff {
		reasons = append(reasons, "High importance")
	}

	// Access frequency, saturating at accessNormalization hits
	score += weightAccess * math.Min(1.0, float64(mem.AccessCount)/accessNormalization)

	reason := "General relevance"
	if len(reasons) > 0 {
		reason = strings.Join(reasons, "; ")
	}

	return roundScore(score), reason
}

func roundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// intersect returns the members of a that also appear in b, preserving a's
// order
func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(b))
	for _, item := range b {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range a {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

// formatScore renders a score for reason strings
func formatScore(score float64) string {
	return fmt.Sprintf("%.2f", score)
}
