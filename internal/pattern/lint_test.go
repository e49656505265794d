package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

func TestFindNearDuplicates(t *testing.T) {
	global := householdRule(9, "padarias", model.MatchContains, model.CategoryFood, 8)
	global.HouseholdID = ""

	rules := []model.Rule{
		householdRule(1, "padaria", model.MatchContains, model.CategoryFood, 1000),
		householdRule(2, "padarja", model.MatchContains, model.CategoryShopping, 1000),
		householdRule(3, "netflix", model.MatchContains, model.CategoryLeisure, 1000),
		global,
	}

	got := FindNearDuplicates(rules, 1)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].First.ID)
	assert.Equal(t, int64(2), got[0].Second.ID)
	assert.Equal(t, 1, got[0].Distance)
	assert.True(t, got[0].Conflicting())
}

func TestFindNearDuplicates_None(t *testing.T) {
	rules := []model.Rule{
		householdRule(1, "padaria", model.MatchContains, model.CategoryFood, 1000),
		householdRule(2, "farmacia", model.MatchContains, model.CategoryHealth, 1000),
	}
	assert.Empty(t, FindNearDuplicates(rules, 2))
}
