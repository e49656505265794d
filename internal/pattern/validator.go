package pattern

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/normalize"
)

// ValidateRule checks a rule before it is stored.
func ValidateRule(rule model.Rule) error {
	if normalize.Normalize(rule.Pattern) == "" {
		return common.NewValidationError("pattern", "must contain letters or digits", common.ErrInvalidRule)
	}
	if !rule.MatchType.Valid() {
		return common.NewValidationError("match_type",
			fmt.Sprintf("%q is not one of contains, startsWith, exact", rule.MatchType), common.ErrInvalidRule)
	}
	if rule.Confidence < 0 || rule.Confidence > 1 {
		return common.NewValidationError("confidence",
			fmt.Sprintf("%.2f is outside 0..1", rule.Confidence), common.ErrInvalidRule)
	}
	if strings.TrimSpace(rule.Category) == "" {
		return common.NewValidationError("category", "must not be empty", common.ErrInvalidCategory)
	}
	return nil
}

// ValidateKits fails on the first kit holding fewer than minPatterns patterns.
// Every fixed category must also have a kit.
func ValidateKits(kits []Kit, minPatterns int) error {
	seen := make(map[string]bool, len(kits))
	for _, k := range kits {
		seen[k.Category] = true
		if k.Size() < minPatterns {
			return &common.ConfigurationError{
				Err:   common.ErrKitTooSmall,
				Kit:   k.Category,
				Count: k.Size(),
				Min:   minPatterns,
			}
		}
	}

	for _, c := range model.FixedCategories {
		if !seen[c] {
			return &common.ConfigurationError{
				Err:   common.ErrKitTooSmall,
				Kit:   c,
				Count: 0,
				Min:   minPatterns,
			}
		}
	}

	return nil
}
