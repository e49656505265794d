package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldAutoApply(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		want       bool
	}{
		{name: "exactly at threshold", confidence: 0.85, want: true},
		{name: "just below threshold", confidence: 0.84, want: false},
		{name: "ground truth", confidence: 1.0, want: true},
		{name: "zero", confidence: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldAutoApply(tt.confidence))
		})
	}
}

func TestShouldAutoApplyAt_CustomThreshold(t *testing.T) {
	assert.True(t, ShouldAutoApplyAt(0.7, 0.7))
	assert.False(t, ShouldAutoApplyAt(0.69, 0.7))
}

func TestCoerceCategory(t *testing.T) {
	tests := []struct {
		input  string
		want   string
		wantOK bool
	}{
		{input: "food", want: CategoryFood, wantOK: true},
		{input: " Transport ", want: CategoryTransport, wantOK: true},
		{input: "groceries", want: CategoryOther, wantOK: false},
		{input: "", want: CategoryOther, wantOK: false},
		{input: "other", want: CategoryOther, wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := CoerceCategory(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestBatchOutcome_Total(t *testing.T) {
	o := BatchOutcome{AppliedByCache: 2, AppliedByRules: 3, SentToAI: 4, AppliedByAI: 1, RemainingUncategorized: 3}
	assert.Equal(t, 9, o.Total())
}
