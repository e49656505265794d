// Package pattern holds the built-in rule kits and the text rule matcher used
// to categorize statement lines without calling an external classifier.
package pattern

import (
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// Matcher selects the rule that should categorize a normalized text.
type Matcher interface {
	// Match returns the winning rule, or nil when no active rule matches.
	Match(text string, rules []model.Rule) *model.Rule
}

// KitPattern is one built-in pattern with its comparison mode.
type KitPattern struct {
	Text      string
	MatchType model.MatchType
}

// Kit is the bundled set of built-in patterns for one fixed category.
type Kit struct {
	Category   string
	Patterns   []KitPattern
	Confidence float64
}

// Size returns the number of patterns in the kit.
func (k Kit) Size() int {
	return len(k.Patterns)
}

// Suggestion is a rule proposal derived from a user's correction.
type Suggestion struct {
	Pattern  string
	Category string
	Reason   string
}
