package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/pattern"
	"github.com/Veraticus/spice-categorizer/internal/testutil"
)

func totalKitPatterns(t *testing.T) int {
	t.Helper()
	kits, err := pattern.Kits()
	require.NoError(t, err)
	total := 0
	for _, k := range kits {
		total += k.Size()
	}
	return total
}

func TestSeeder_SeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	seeder := NewSeeder(db.Storage, DefaultConfig(), nil)

	var progress []string
	seeder.OnProgress(func(done, total int, cat model.Category) {
		assert.Equal(t, len(model.FixedCategories), total)
		progress = append(progress, cat.ID)
	})

	report, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(model.FixedCategories), report.CategoriesProcessed)
	assert.Equal(t, totalKitPatterns(t), report.RulesInserted)
	assert.Empty(t, report.Errors)
	assert.ElementsMatch(t, model.FixedCategories, progress)

	count, err := db.Storage.CountGlobalRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.RulesInserted, count)

	again, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(model.FixedCategories), again.CategoriesProcessed)
	assert.Equal(t, 0, again.RulesInserted)

	count, err = db.Storage.CountGlobalRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.RulesInserted, count)
}

func TestSeeder_UndersizedKitIsFatal(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	seeder := NewSeeder(db.Storage, DefaultConfig(), nil)
	seeder.kits = func() ([]pattern.Kit, error) {
		kits, err := pattern.Kits()
		if err != nil {
			return nil, err
		}
		kits[2].Patterns = kits[2].Patterns[:10]
		return kits, nil
	}

	_, err := seeder.Seed(ctx)
	require.Error(t, err)

	var cfgErr *common.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 10, cfgErr.Count)
	assert.Equal(t, 100, cfgErr.Min)
	assert.ErrorIs(t, err, common.ErrKitTooSmall)

	count, err := db.Storage.CountGlobalRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSeeder_SeededRulesDriveCategorization(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	_, err := NewSeeder(db.Storage, DefaultConfig(), nil).Seed(ctx)
	require.NoError(t, err)

	db.AddTransactions(household,
		model.Transaction{ID: "t1", Description: "Supermercado Pão de Açúcar"},
		model.Transaction{ID: "t2", Description: "IOF 01/02 REF 123"},
	)

	orch := newTestOrchestrator(t, db.Storage, nil)
	outcome, err := orch.Categorize(ctx, Request{HouseholdID: household})
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.AppliedByRules)

	t1 := db.MustGetTransaction(household, "t1")
	assert.Equal(t, model.CategoryFood, t1.Category)

	var used int
	rules, err := db.Storage.ListRules(ctx, household, true)
	require.NoError(t, err)
	for _, r := range rules {
		used += r.UseCount
	}
	assert.Equal(t, 2, used)
}

func TestSeeder_CustomCategoriesGetHouseholdKits(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)

	farmacia, err := db.Storage.CreateCategory(ctx, household, "Farmácia")
	require.NoError(t, err)
	_, err = db.Storage.CreateCategory(ctx, "house-2", "Pets")
	require.NoError(t, err)

	kits, err := pattern.Kits()
	require.NoError(t, err)
	health := pattern.InferKit(model.CategoryHealth, kits)

	seeder := NewSeeder(db.Storage, DefaultConfig(), nil)
	report, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(model.FixedCategories)+2, report.CategoriesProcessed)
	assert.Equal(t, totalKitPatterns(t)+health.Size(), report.RulesInserted)
	assert.Empty(t, report.Errors)

	mine, err := db.Storage.ListRules(ctx, household, false)
	require.NoError(t, err)
	require.Len(t, mine, health.Size())
	for _, r := range mine {
		assert.Equal(t, farmacia.ID, r.Category)
		assert.Equal(t, household, r.HouseholdID)
		assert.Equal(t, len(r.Pattern)+householdKitBoost, r.Priority)
	}

	theirs, err := db.Storage.ListRules(ctx, "house-2", false)
	require.NoError(t, err)
	assert.Empty(t, theirs, "a label without a kit seeds nothing")

	count, err := db.Storage.CountGlobalRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, totalKitPatterns(t), count)

	again, err := seeder.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, again.RulesInserted)

	db.AddTransactions(household, model.Transaction{ID: "t1", Description: "DROGASIL 1234"})
	db.AddTransactions("house-2", model.Transaction{ID: "t1", Description: "DROGASIL 1234"})

	orch := newTestOrchestrator(t, db.Storage, nil)
	_, err = orch.Categorize(ctx, Request{HouseholdID: household})
	require.NoError(t, err)
	_, err = orch.Categorize(ctx, Request{HouseholdID: "house-2"})
	require.NoError(t, err)

	assert.Equal(t, farmacia.ID, db.MustGetTransaction(household, "t1").Category)
	assert.Equal(t, model.CategoryHealth, db.MustGetTransaction("house-2", "t1").Category)
}
