package model

import (
	"time"
)

// Source indicates which stage produced a category.
type Source string

// Source constants.
const (
	SourceCache  Source = "cache"
	SourceRule   Source = "rule"
	SourceAI     Source = "ai"
	SourceManual Source = "manual"
)

// AutoApplyThreshold is the minimum confidence for writing a category without confirmation.
const AutoApplyThreshold = 0.85

// ShouldAutoApply reports whether confidence reaches the auto-apply threshold.
// Confidence exactly at the threshold applies.
func ShouldAutoApply(confidence float64) bool {
	return ShouldAutoApplyAt(confidence, AutoApplyThreshold)
}

// ShouldAutoApplyAt is ShouldAutoApply with a configured threshold.
func ShouldAutoApplyAt(confidence, threshold float64) bool {
	// Scores arrive as decoded JSON floats; compare with a tolerance so 0.85 stays 0.85.
	const epsilon = 1e-9
	return confidence+epsilon >= threshold
}

// Result is the outcome of one classification pass for one transaction.
type Result struct {
	RuleID        *int64  `json:"rule_id,omitempty"`
	TransactionID string  `json:"transaction_id"`
	Category      string  `json:"category"`
	Source        Source  `json:"source"`
	Fingerprint   string  `json:"fingerprint,omitempty"`
	Confidence    float64 `json:"confidence"`
}

// ItemError records a per-transaction failure inside a batch.
type ItemError struct {
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
	Err           error  `json:"-"`
}

// BatchOutcome aggregates counters for one orchestration run.
type BatchOutcome struct {
	RunID                  string        `json:"run_id"`
	Errors                 []ItemError   `json:"errors"`
	Applied                []Result      `json:"applied,omitempty"`
	Suggestions            []Result      `json:"suggestions,omitempty"`
	Duration               time.Duration `json:"duration"`
	AppliedByCache         int           `json:"applied_by_cache"`
	AppliedByRules         int           `json:"applied_by_rules"`
	SentToAI               int           `json:"sent_to_ai"`
	AppliedByAI            int           `json:"applied_by_ai"`
	RemainingUncategorized int           `json:"remaining_uncategorized"`
}

// Total returns the number of transactions accounted for by the terminal counters.
func (o BatchOutcome) Total() int {
	return o.AppliedByCache + o.AppliedByRules + o.AppliedByAI + o.RemainingUncategorized
}

// Correction is a manual category change made by a user.
type Correction struct {
	TransactionID string `json:"transaction_id"`
	Description   string `json:"description"`
	NewCategory   string `json:"category"`
	HouseholdID   string `json:"household_id"`
}

// LearnResult describes what a correction taught the system.
type LearnResult struct {
	Rule         *Rule  `json:"rule,omitempty"`
	Fingerprint  string `json:"fingerprint"`
	SkipReason   string `json:"skip_reason,omitempty"`
	CacheWritten bool   `json:"cache_written"`
	RuleCreated  bool   `json:"rule_created"`
	Deactivated  int    `json:"deactivated"`
}

// SeedReport summarizes a seeding run.
type SeedReport struct {
	Errors              []string `json:"errors"`
	CategoriesProcessed int      `json:"categories_processed"`
	RulesInserted       int      `json:"rules_inserted"`
}
