package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/pattern"
)

func TestRenderOutcome(t *testing.T) {
	out := RenderOutcome(model.BatchOutcome{
		RunID:                  "run-1",
		Duration:               1500 * time.Millisecond,
		AppliedByCache:         2,
		AppliedByRules:         3,
		SentToAI:               4,
		AppliedByAI:            1,
		RemainingUncategorized: 3,
		Suggestions:            []model.Result{{TransactionID: "t9", Category: "food"}},
		Errors: []model.ItemError{
			{TransactionID: "t1", Message: "database is locked"},
			{Message: "AI unavailable"},
		},
	})

	assert.Contains(t, out, "Categorization complete")
	assert.Contains(t, out, "4 (1 applied)")
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "1 suggestions need review")
	assert.Contains(t, out, "t1: database is locked")
	assert.Contains(t, out, "batch: AI unavailable")
}

func TestRenderRules(t *testing.T) {
	assert.Contains(t, RenderRules(nil), "No rules.")

	out := RenderRules([]model.Rule{
		{ID: 7, Pattern: "padaria", MatchType: model.MatchContains, Category: "food", HouseholdID: "h", Priority: 1000, Confidence: 0.9, Active: true},
		{ID: 8, Pattern: "uber", MatchType: model.MatchContains, Category: "transport", Priority: 4, Confidence: 0.9},
	})
	assert.Contains(t, out, "PATTERN")
	assert.Contains(t, out, "padaria")
	assert.Contains(t, out, "household")
	assert.Contains(t, out, "global")
	assert.Contains(t, out, "inactive")
}

func TestRenderLearnResult(t *testing.T) {
	tests := []struct {
		name   string
		result model.LearnResult
		want   []string
	}{
		{
			name: "new rule",
			result: model.LearnResult{
				Fingerprint: "padaria do joao", CacheWritten: true, RuleCreated: true, Deactivated: 1,
				Rule: &model.Rule{Pattern: "padaria", Category: "food"},
			},
			want: []string{`"padaria do joao"`, `Created rule "padaria"`, "Deactivated 1"},
		},
		{
			name:   "existing rule",
			result: model.LearnResult{Rule: &model.Rule{Pattern: "uber"}},
			want:   []string{`Rule "uber" already covers this`},
		},
		{
			name:   "skipped",
			result: model.LearnResult{SkipReason: "no significant word"},
			want:   []string{"No rule learned: no significant word"},
		},
		{
			name: "nothing to say",
			want: []string{"Correction saved"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := RenderLearnResult(tt.result)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestRenderNearDuplicates(t *testing.T) {
	assert.Contains(t, RenderNearDuplicates(nil), "No near-duplicate rules.")

	out := RenderNearDuplicates([]pattern.NearDuplicate{{
		First:    model.Rule{ID: 1, Pattern: "drogasil", Category: "health"},
		Second:   model.Rule{ID: 2, Pattern: "drogasill", Category: "shopping"},
		Distance: 1,
	}})
	assert.Contains(t, out, "#1 drogasil (health)")
	assert.Contains(t, out, "conflicting categories")
}

func TestRenderCacheAndCategories(t *testing.T) {
	assert.Contains(t, RenderCache(nil), "empty")
	assert.Contains(t, RenderCache([]model.CacheEntry{{Fingerprint: "netflix", Category: "leisure", HitCount: 3}}), "netflix")

	out := RenderCategories([]model.Category{
		{ID: "food", Name: "Food"},
		{ID: "abc", Name: "Pet", HouseholdID: "h"},
	})
	assert.Contains(t, out, "fixed")
	assert.Contains(t, out, "custom")
}

func TestRenderSeedReport(t *testing.T) {
	out := RenderSeedReport(model.SeedReport{CategoriesProcessed: 8, RulesInserted: 872, Errors: []string{"pets: no kit"}})
	assert.Contains(t, out, "Seeded 8 categories, 872 new rules")
	assert.Contains(t, out, "pets: no kit")
}
