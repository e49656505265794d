package pattern

import (
	"github.com/agnivade/levenshtein"

	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/normalize"
)

// NearDuplicate is a pair of rules whose patterns differ by only a few edits.
type NearDuplicate struct {
	First    model.Rule `json:"first"`
	Second   model.Rule `json:"second"`
	Distance int        `json:"distance"`
}

// Conflicting reports whether the pair points at different categories.
func (d NearDuplicate) Conflicting() bool {
	return d.First.Category != d.Second.Category
}

// FindNearDuplicates reports household rule pairs whose normalized patterns are
// within maxDistance edits of each other. Global rules are ignored.
func FindNearDuplicates(rules []model.Rule, maxDistance int) []NearDuplicate {
	type candidate struct {
		pattern string
		rule    model.Rule
	}

	var cands []candidate
	for _, r := range rules {
		if r.IsGlobal() || !r.Active {
			continue
		}
		cands = append(cands, candidate{pattern: normalize.Normalize(r.Pattern), rule: r})
	}

	var out []NearDuplicate
	for i := 0; i < len(cands); i++ {
		for j := i + 1; j < len(cands); j++ {
			a, b := cands[i].pattern, cands[j].pattern
			if abs(len(a)-len(b)) > maxDistance {
				continue
			}
			d := levenshtein.ComputeDistance(a, b)
			if d <= maxDistance {
				out = append(out, NearDuplicate{First: cands[i].rule, Second: cands[j].rule, Distance: d})
			}
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
