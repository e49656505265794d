package pattern

import (
	"fmt"

	"github.com/Veraticus/spice-categorizer/internal/normalize"
)

// DefaultMinWordLength is the shortest word a learned pattern may use.
const DefaultMinWordLength = 4

// Suggester derives household rule proposals from manual corrections.
type Suggester struct {
	minWordLength int
}

// NewSuggester creates a suggester; minWordLength <= 0 selects the default.
func NewSuggester(minWordLength int) *Suggester {
	if minWordLength <= 0 {
		minWordLength = DefaultMinWordLength
	}
	return &Suggester{minWordLength: minWordLength}
}

// Suggest proposes a contains-pattern for description. The pattern is the
// longest significant word; equal lengths keep the leftmost word.
// ok is false when the description has no usable word.
func (s *Suggester) Suggest(description, category string) (Suggestion, bool) {
	word := normalize.LongestSignificantWord(description, s.minWordLength)
	if word == "" {
		return Suggestion{}, false
	}

	return Suggestion{
		Pattern:  word,
		Category: category,
		Reason:   fmt.Sprintf("Transactions containing %q are usually categorized as %s", word, category),
	}, true
}
