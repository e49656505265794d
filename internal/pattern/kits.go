package pattern

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/normalize"
)

//go:embed kits.yaml
var kitsYAML []byte

// Default kit confidences.
const (
	DefaultKitConfidence = 0.9
	OtherKitConfidence   = 0.85
)

type kitFile struct {
	Category   string   `yaml:"category"`
	Patterns   []string `yaml:"patterns"`
	Prefixes   []string `yaml:"prefixes"`
	Exact      []string `yaml:"exact"`
	Confidence float64  `yaml:"confidence"`
}

var (
	kitsOnce sync.Once
	kitsErr  error
	kitsData []Kit
)

// ParseKits decodes a kit table. Patterns are normalized on the way in so a
// hand-edited file cannot produce rules that never match.
func ParseKits(data []byte) ([]Kit, error) {
	var files []kitFile
	if err := yaml.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("failed to parse rule kits: %w", err)
	}

	kits := make([]Kit, 0, len(files))
	for _, f := range files {
		kit := Kit{
			Category:   f.Category,
			Confidence: f.Confidence,
		}
		if kit.Confidence == 0 {
			kit.Confidence = DefaultKitConfidence
			if kit.Category == model.CategoryOther {
				kit.Confidence = OtherKitConfidence
			}
		}

		add := func(values []string, mt model.MatchType) {
			for _, v := range values {
				if p := normalize.Normalize(v); p != "" {
					kit.Patterns = append(kit.Patterns, KitPattern{Text: p, MatchType: mt})
				}
			}
		}
		add(f.Patterns, model.MatchContains)
		add(f.Prefixes, model.MatchStartsWith)
		add(f.Exact, model.MatchExact)

		kits = append(kits, kit)
	}

	return kits, nil
}

func loadKits() ([]Kit, error) {
	kitsOnce.Do(func() {
		kitsData, kitsErr = ParseKits(kitsYAML)
	})
	return kitsData, kitsErr
}

// Kits returns a copy of the embedded built-in kits in file order.
func Kits() ([]Kit, error) {
	kits, err := loadKits()
	if err != nil {
		return nil, err
	}

	out := make([]Kit, len(kits))
	for i, k := range kits {
		out[i] = k
		out[i].Patterns = append([]KitPattern(nil), k.Patterns...)
	}
	return out, nil
}

// RulesFromKit materializes a kit as global built-in rules.
// Priority is the pattern length so more specific patterns win.
func RulesFromKit(kit Kit) []model.Rule {
	rules := make([]model.Rule, 0, len(kit.Patterns))
	for _, p := range kit.Patterns {
		rules = append(rules, model.Rule{
			Name:       fmt.Sprintf("%s: %s", kit.Category, p.Text),
			Pattern:    p.Text,
			MatchType:  p.MatchType,
			Category:   kit.Category,
			Scope:      model.ScopeBuiltin,
			Priority:   len(p.Text),
			Confidence: kit.Confidence,
			Active:     true,
		})
	}
	return rules
}

// BuiltInRules returns every kit pattern as an in-memory rule list, in kit file order.
func BuiltInRules() []model.Rule {
	kits, err := loadKits()
	if err != nil {
		return nil
	}

	var rules []model.Rule
	for _, k := range kits {
		rules = append(rules, RulesFromKit(k)...)
	}
	return rules
}

// ApplyBuiltInRules categorizes raw statement text with the built-in kits only.
// It returns nil when nothing matches.
func ApplyBuiltInRules(text string) *model.Rule {
	return Match(normalize.Normalize(text), BuiltInRules())
}
