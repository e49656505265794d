package pattern

import (
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/normalize"
)

// RuleMatcher implements Matcher over plain rule slices.
type RuleMatcher struct{}

// NewMatcher creates a new rule matcher.
func NewMatcher() *RuleMatcher {
	return &RuleMatcher{}
}

// Match returns the winning rule for text, or nil.
func (m *RuleMatcher) Match(text string, rules []model.Rule) *model.Rule {
	return Match(text, rules)
}

// Match evaluates every active rule against normalized text and returns the
// highest-priority match. Equal priorities resolve to the rule that appears
// first in rules. Returns nil when nothing matches.
func Match(text string, rules []model.Rule) *model.Rule {
	if text == "" {
		return nil
	}

	var best *model.Rule
	for i := range rules {
		rule := &rules[i]
		if !rule.Active || !Matches(text, *rule) {
			continue
		}
		// Strictly greater keeps the earliest rule on ties.
		if best == nil || rule.Priority > best.Priority {
			best = rule
		}
	}

	if best == nil {
		return nil
	}
	winner := *best
	return &winner
}

// MatchAll returns every active rule matching text, highest priority first,
// with equal priorities kept in their original order.
func MatchAll(text string, rules []model.Rule) []model.Rule {
	if text == "" {
		return nil
	}

	var matches []model.Rule
	for _, rule := range rules {
		if rule.Active && Matches(text, rule) {
			matches = append(matches, rule)
		}
	}

	sortByPriority(matches)

	return matches
}

// Matches reports whether a single rule matches normalized text.
// Contains and startsWith compare raw substrings with no word boundary, so
// "uber" also matches "uberlandia eletrica". A longer household rule is the
// way to carve out such a merchant.
func Matches(text string, rule model.Rule) bool {
	pattern := normalizedPattern(rule.Pattern)
	if pattern == "" {
		return false
	}

	switch rule.MatchType {
	case model.MatchContains, "":
		return strings.Contains(text, pattern)
	case model.MatchStartsWith:
		return strings.HasPrefix(text, pattern)
	case model.MatchExact:
		return text == pattern
	}

	return false
}

// normalizedPattern skips the full normalization for patterns that are already
// lower-case ASCII words, which covers every stored rule.
func normalizedPattern(p string) string {
	prevSpace := true
	for i := 0; i < len(p); i++ {
		c := p[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			prevSpace = false
		case c == ' ' && !prevSpace:
			prevSpace = true
		default:
			return normalize.Normalize(p)
		}
	}
	if prevSpace && p != "" {
		return normalize.Normalize(p)
	}
	return p
}

// sortByPriority sorts rules by priority (highest first). Swapping only on a
// strict comparison keeps the sort stable.
func sortByPriority(rules []model.Rule) {
	// Simple bubble sort for small arrays
	for i := 0; i < len(rules)-1; i++ {
		for j := 0; j < len(rules)-i-1; j++ {
			if rules[j].Priority < rules[j+1].Priority {
				rules[j], rules[j+1] = rules[j+1], rules[j]
			}
		}
	}
}
