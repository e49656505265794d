package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/testutil"
)

func TestLearner_LearnWritesCacheAndRule(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	learner := NewLearner(db.Storage, DefaultConfig(), nil)

	result, err := learner.Learn(ctx, model.Correction{
		HouseholdID:   household,
		TransactionID: "t1",
		Description:   "PADARIA DO JOAO 1234567",
		NewCategory:   model.CategoryLeisure,
	})
	require.NoError(t, err)

	assert.Equal(t, "padaria do joao", result.Fingerprint)
	assert.True(t, result.CacheWritten)
	assert.True(t, result.RuleCreated)
	require.NotNil(t, result.Rule)
	assert.Equal(t, "padaria", result.Rule.Pattern)
	assert.Equal(t, model.MatchContains, result.Rule.MatchType)
	assert.Equal(t, 1000, result.Rule.Priority)
	assert.InDelta(t, 0.9, result.Rule.Confidence, 1e-9)

	hits, err := db.Storage.GetCached(ctx, household, []string{"padaria do joao"})
	require.NoError(t, err)
	require.Contains(t, hits, "padaria do joao")
	assert.Equal(t, model.CategoryLeisure, hits["padaria do joao"].Category)
	assert.InDelta(t, 1.0, hits["padaria do joao"].Confidence, 1e-9)
}

func TestLearner_RepeatedCorrectionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	learner := NewLearner(db.Storage, DefaultConfig(), nil)

	correction := model.Correction{
		HouseholdID: household,
		Description: "DROGARIA ESPERANCA",
		NewCategory: model.CategoryHealth,
	}

	first, err := learner.Learn(ctx, correction)
	require.NoError(t, err)
	assert.True(t, first.RuleCreated)

	correction.Description = "DROGARIA ESPERANCA 9876543"
	second, err := learner.Learn(ctx, correction)
	require.NoError(t, err)
	assert.False(t, second.RuleCreated)
	assert.Equal(t, SkipRuleExists, second.SkipReason)
	assert.Equal(t, first.Rule.ID, second.Rule.ID)

	rules, err := db.Storage.ListRules(ctx, household, false)
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func TestLearner_ConflictingRulesAreDeactivated(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	learner := NewLearner(db.Storage, DefaultConfig(), nil)

	learn := func(category string) *model.LearnResult {
		t.Helper()
		result, err := learner.Learn(ctx, model.Correction{
			HouseholdID: household,
			Description: "PADARIA DO JOAO",
			NewCategory: category,
		})
		require.NoError(t, err)
		return result
	}

	food := learn(model.CategoryFood)
	leisure := learn(model.CategoryLeisure)
	assert.Equal(t, 1, leisure.Deactivated)
	assert.True(t, leisure.RuleCreated)

	back := learn(model.CategoryFood)
	assert.Equal(t, 1, back.Deactivated)
	assert.False(t, back.RuleCreated)
	assert.Equal(t, food.Rule.ID, back.Rule.ID)
	assert.True(t, back.Rule.Active)

	active, err := db.Storage.GetActiveRules(ctx, household)
	require.NoError(t, err)
	var own []model.Rule
	for _, r := range active {
		if !r.IsGlobal() {
			own = append(own, r)
		}
	}
	require.Len(t, own, 1)
	assert.Equal(t, model.CategoryFood, own[0].Category)
}

func TestLearner_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	learner := NewLearner(db.Storage, DefaultConfig(), nil)

	tests := []struct {
		name       string
		correction model.Correction
		wantErr    error
	}{
		{
			name:       "missing household",
			correction: model.Correction{Description: "ACME", NewCategory: model.CategoryFood},
			wantErr:    common.ErrMissingHousehold,
		},
		{
			name:       "unknown category",
			correction: model.Correction{HouseholdID: household, Description: "ACME", NewCategory: "groceries"},
			wantErr:    common.ErrInvalidCategory,
		},
		{
			name:       "empty category",
			correction: model.Correction{HouseholdID: household, Description: "ACME"},
			wantErr:    common.ErrInvalidCategory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := learner.Learn(context.Background(), tt.correction)
			require.Error(t, err)
			assert.True(t, common.IsValidation(err))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLearner_CustomCategory(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	learner := NewLearner(db.Storage, DefaultConfig(), nil)

	pets, err := db.Storage.CreateCategory(ctx, household, "Pets")
	require.NoError(t, err)

	result, err := learner.Learn(ctx, model.Correction{
		HouseholdID: household,
		Description: "PETZ PINHEIROS",
		NewCategory: pets.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Rule)
	assert.Equal(t, pets.ID, result.Rule.Category)
	assert.Equal(t, "pinheiros", result.Rule.Pattern)
}

func TestLearner_NoSignificantWord(t *testing.T) {
	db := testutil.SetupTestDB(t)
	learner := NewLearner(db.Storage, DefaultConfig(), nil)

	result, err := learner.Learn(context.Background(), model.Correction{
		HouseholdID: household,
		Description: "PIX 12",
		NewCategory: model.CategoryOther,
	})
	require.NoError(t, err)
	assert.False(t, result.RuleCreated)
	assert.Equal(t, SkipNoSignificantWord, result.SkipReason)
}

func TestCorrector_CorrectThenCategorize(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	db.AddTransactions(household,
		model.Transaction{ID: "t1", Description: "VRUNTAG PLOVIS 1234567"},
		model.Transaction{ID: "t2", Description: "VRUNTAG PLOVIS 7654321"},
	)

	corrector := NewCorrector(db.Storage, NewLearner(db.Storage, DefaultConfig(), nil))
	result, err := corrector.Correct(ctx, model.Correction{
		HouseholdID:   household,
		TransactionID: "t1",
		NewCategory:   "Shopping",
	})
	require.NoError(t, err)
	assert.True(t, result.CacheWritten)

	t1 := db.MustGetTransaction(household, "t1")
	assert.Equal(t, model.CategoryShopping, t1.Category)
	assert.Equal(t, model.SourceManual, t1.CategorySource)

	classifier := NewMockClassifier()
	orch := newTestOrchestrator(t, db.Storage, classifier)
	outcome, err := orch.Categorize(ctx, Request{HouseholdID: household, UseAI: true})
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.AppliedByCache)
	assert.Equal(t, 0, classifier.CallCount())
	assert.Equal(t, model.CategoryShopping, db.MustGetTransaction(household, "t2").Category)
}

func TestCorrector_UnknownTransaction(t *testing.T) {
	db := testutil.SetupTestDB(t)
	corrector := NewCorrector(db.Storage, NewLearner(db.Storage, DefaultConfig(), nil))

	_, err := corrector.Correct(context.Background(), model.Correction{
		HouseholdID:   household,
		TransactionID: "nope",
		NewCategory:   model.CategoryFood,
	})
	assert.ErrorIs(t, err, common.ErrNotFound)
}
