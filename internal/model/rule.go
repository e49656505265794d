// Package model defines the core domain models used throughout the application.
package model

import (
	"time"
)

// MatchType selects how a rule pattern is compared against normalized text.
type MatchType string

// Match type constants.
const (
	MatchContains   MatchType = "contains"
	MatchStartsWith MatchType = "startsWith"
	MatchExact      MatchType = "exact"
)

// Valid reports whether m is a supported match type.
func (m MatchType) Valid() bool {
	switch m {
	case MatchContains, MatchStartsWith, MatchExact:
		return true
	}
	return false
}

// RuleScope tells built-in seed rules apart from household-authored ones.
type RuleScope string

// Rule scope constants.
const (
	ScopeBuiltin   RuleScope = "builtin"
	ScopeHousehold RuleScope = "household"
)

// Rule maps a text pattern to a category.
type Rule struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	HouseholdID string    `json:"household_id,omitempty"` // empty for global rules
	Name        string    `json:"name"`
	Pattern     string    `json:"pattern"`
	MatchType   MatchType `json:"match_type"`
	Category    string    `json:"category"`
	Scope       RuleScope `json:"scope"`
	ID          int64     `json:"id"`
	Priority    int       `json:"priority"`
	Confidence  float64   `json:"confidence"`
	UseCount    int       `json:"use_count"`
	Active      bool      `json:"active"`
}

// IsGlobal reports whether the rule is shared across households.
func (r Rule) IsGlobal() bool {
	return r.HouseholdID == ""
}
