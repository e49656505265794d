package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testTransaction(household, id, description string) model.Transaction {
	return model.Transaction{
		ID:          id,
		HouseholdID: household,
		Description: description,
		Amount:      decimal.RequireFromString("-29.90"),
		PostedAt:    time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		Category:    model.CategoryOther,
	}
}

func TestMigrate_FileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "spice.db")

	store, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migrating twice is a no-op")

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(ExpectedSchemaVersion), version)
}

func TestMigrate_SeedsFixedCategories(t *testing.T) {
	store := createTestStorage(t)

	cats, err := store.GetGlobalCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, len(model.FixedCategories))
	for i, c := range model.FixedCategories {
		assert.Equal(t, c, cats[i].ID)
		assert.Equal(t, c, cats[i].Slug)
		assert.True(t, cats[i].IsGlobal())
	}
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	_, err := NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestRules_CreateAndScope(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	global := &model.Rule{Pattern: "netflix", MatchType: model.MatchContains, Category: model.CategoryLeisure, Priority: 7, Confidence: 0.9}
	inserted, err := store.UpsertKitRule(ctx, global)
	require.NoError(t, err)
	require.True(t, inserted)

	mine := &model.Rule{HouseholdID: "h1", Pattern: "Padaria do Zé", MatchType: model.MatchContains, Category: model.CategoryFood, Priority: 1000, Confidence: 0.9, Active: true}
	require.NoError(t, store.CreateRule(ctx, mine))
	assert.Equal(t, "padaria do ze", mine.Pattern)
	assert.NotZero(t, mine.ID)

	theirs := &model.Rule{HouseholdID: "h2", Pattern: "padaria", MatchType: model.MatchContains, Category: model.CategoryShopping, Priority: 1000, Confidence: 0.9, Active: true}
	require.NoError(t, store.CreateRule(ctx, theirs))

	rules, err := store.GetActiveRules(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, global.ID, rules[0].ID)
	assert.Equal(t, mine.ID, rules[1].ID)
	assert.Equal(t, model.ScopeBuiltin, rules[0].Scope)
	assert.Equal(t, model.ScopeHousehold, rules[1].Scope)

	dup := *mine
	err = store.CreateRule(ctx, &dup)
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)
}

func TestRules_RequireHousehold(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.GetActiveRules(ctx, "")
	assert.True(t, common.IsValidation(err))
	assert.ErrorIs(t, err, common.ErrMissingHousehold)

	err = store.CreateRule(ctx, &model.Rule{Pattern: "x", MatchType: model.MatchContains, Category: model.CategoryFood, Confidence: 0.9})
	assert.ErrorIs(t, err, common.ErrMissingHousehold)
}

func TestRules_GlobalRulesAreReadOnly(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	global := &model.Rule{Pattern: "uber", MatchType: model.MatchContains, Category: model.CategoryTransport, Priority: 4, Confidence: 0.9}
	_, err := store.UpsertKitRule(ctx, global)
	require.NoError(t, err)

	assert.ErrorIs(t, store.DeleteRule(ctx, "h1", global.ID), common.ErrGlobalRuleReadOnly)
	assert.ErrorIs(t, store.SetRuleActive(ctx, "h1", global.ID, false), common.ErrGlobalRuleReadOnly)

	mine := &model.Rule{HouseholdID: "h1", Pattern: "uber", MatchType: model.MatchContains, Category: model.CategoryBills, Priority: 1000, Confidence: 0.9, Active: true}
	require.NoError(t, store.CreateRule(ctx, mine))

	assert.ErrorIs(t, store.DeleteRule(ctx, "h2", mine.ID), common.ErrNotFound)
	require.NoError(t, store.DeleteRule(ctx, "h1", mine.ID))

	_, err = store.GetRule(ctx, mine.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUpsertKitRule_CountsOnlyInserts(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	rule := model.Rule{Pattern: "drogasil", MatchType: model.MatchContains, Category: model.CategoryHealth, Priority: 8, Confidence: 0.9}

	r1 := rule
	inserted, err := store.UpsertKitRule(ctx, &r1)
	require.NoError(t, err)
	assert.True(t, inserted)

	r2 := rule
	r2.Confidence = 0.8
	inserted, err = store.UpsertKitRule(ctx, &r2)
	require.NoError(t, err)
	assert.False(t, inserted)

	n, err := store.CountGlobalRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rules, err := store.GetActiveRules(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.InDelta(t, 0.8, rules[0].Confidence, 1e-9)

	scoped := rule
	scoped.HouseholdID = "h1"
	inserted, err = store.UpsertKitRule(ctx, &scoped)
	require.NoError(t, err)
	assert.True(t, inserted, "a household kit rule is its own row")
	assert.Equal(t, model.ScopeBuiltin, scoped.Scope)

	n, err = store.CountGlobalRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rules, err = store.GetActiveRules(ctx, "h2")
	require.NoError(t, err)
	assert.Len(t, rules, 1, "household kit rules stay in their household")

	rules, err = store.GetActiveRules(ctx, "h1")
	require.NoError(t, err)
	assert.Len(t, rules, 2)
}

func TestGetCustomCategories(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	_, err := store.CreateCategory(ctx, "h2", "Pets")
	require.NoError(t, err)
	_, err = store.CreateCategory(ctx, "h1", "Farmácia")
	require.NoError(t, err)

	custom, err := store.GetCustomCategories(ctx)
	require.NoError(t, err)
	require.Len(t, custom, 2)
	assert.Equal(t, "h1", custom[0].HouseholdID)
	assert.Equal(t, "farmacia", custom[0].Slug)
	assert.Equal(t, "h2", custom[1].HouseholdID)
}

func TestDeactivateConflictingRules(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	wrong := &model.Rule{HouseholdID: "h1", Pattern: "padaria", MatchType: model.MatchContains, Category: model.CategoryShopping, Priority: 1000, Confidence: 0.9, Active: true}
	require.NoError(t, store.CreateRule(ctx, wrong))
	other := &model.Rule{HouseholdID: "h2", Pattern: "padaria", MatchType: model.MatchContains, Category: model.CategoryShopping, Priority: 1000, Confidence: 0.9, Active: true}
	require.NoError(t, store.CreateRule(ctx, other))

	n, err := store.DeactivateConflictingRules(ctx, "h1", "PADARIA", model.CategoryFood)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	rules, err := store.FindHouseholdRules(ctx, "h1", "padaria")
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.False(t, rules[0].Active)

	stillActive, err := store.GetActiveRules(ctx, "h2")
	require.NoError(t, err)
	assert.Len(t, stillActive, 1)
}

func TestIncrementRuleUseCount(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	r := &model.Rule{HouseholdID: "h1", Pattern: "ifood", MatchType: model.MatchContains, Category: model.CategoryFood, Priority: 1000, Confidence: 0.9, Active: true}
	require.NoError(t, store.CreateRule(ctx, r))

	require.NoError(t, store.IncrementRuleUseCount(ctx, r.ID, r.ID))
	require.NoError(t, store.IncrementRuleUseCount(ctx))

	got, err := store.GetRule(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.UseCount)
}

func TestMerchantCache(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	require.NoError(t, store.SetCached(ctx, model.CacheEntry{HouseholdID: "h1", Fingerprint: "ifood restaurante", Category: model.CategoryFood, Confidence: 0.9}))
	require.NoError(t, store.SetCached(ctx, model.CacheEntry{HouseholdID: "h1", Fingerprint: "ifood restaurante", Category: model.CategoryLeisure, Confidence: 1.0}))
	require.NoError(t, store.SetCached(ctx, model.CacheEntry{HouseholdID: "h2", Fingerprint: "netflix", Category: model.CategoryLeisure, Confidence: 1.0}))

	hits, err := store.GetCached(ctx, "h1", []string{"ifood restaurante", "", "netflix", "ifood restaurante"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, model.CategoryLeisure, hits["ifood restaurante"].Category, "last write wins")
	assert.InDelta(t, 1.0, hits["ifood restaurante"].Confidence, 1e-9)

	require.NoError(t, store.RecordCacheHits(ctx, "h1", []string{"ifood restaurante"}))
	entries, err := store.ListCached(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].HitCount)

	n, err := store.ClearCache(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	hits, err = store.GetCached(ctx, "h2", []string{"netflix"})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestMerchantCache_RejectsEmptyFingerprint(t *testing.T) {
	store := createTestStorage(t)

	err := store.SetCached(context.Background(), model.CacheEntry{HouseholdID: "h1", Category: model.CategoryFood, Confidence: 1})
	assert.ErrorIs(t, err, ErrInvalidCacheEntry)

	hits, err := store.GetCached(context.Background(), "h1", []string{""})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestTransactions(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	txns := []model.Transaction{
		testTransaction("h1", "t1", "UBER *TRIP 29,90"),
		testTransaction("h1", "t2", "PADARIA DO JOAO"),
		testTransaction("h2", "t1", "NETFLIX 12.99"),
	}
	n, err := store.SaveTransactions(ctx, txns)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = store.SaveTransactions(ctx, txns[:1])
	require.NoError(t, err)
	assert.Equal(t, 0, n, "duplicates are ignored")

	got, err := store.GetTransactions(ctx, "h1", []string{"t2", "missing", "t1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "t2", got[0].ID)
	assert.Equal(t, "t1", got[1].ID)
	assert.True(t, decimal.RequireFromString("-29.90").Equal(got[1].Amount))
	assert.True(t, txns[0].PostedAt.Equal(got[1].PostedAt))

	require.NoError(t, store.UpdateTransactionCategory(ctx, "h1", "t1", model.CategoryTransport, model.SourceRule, 0.9))
	require.NoError(t, store.UpdateTransactionCategory(ctx, "h1", "t2", model.CategoryOther, model.SourceManual, 1))

	uncategorized, err := store.GetUncategorized(ctx, "h1", 0)
	require.NoError(t, err)
	assert.Empty(t, uncategorized, "manual choices are left alone")

	more := []model.Transaction{
		testTransaction("h1", "t3", "BLORPT SNAZZLE"),
		testTransaction("h1", "t4", "KRUMPLE DOOVY"),
	}
	_, err = store.SaveTransactions(ctx, more)
	require.NoError(t, err)
	require.NoError(t, store.UpdateTransactionCategory(ctx, "h1", "t3", model.CategoryOther, model.SourceAI, 0.99))

	uncategorized, err = store.GetUncategorized(ctx, "h1", 0)
	require.NoError(t, err)
	require.Len(t, uncategorized, 1, "a confident other is settled")
	assert.Equal(t, "t4", uncategorized[0].ID)

	one, err := store.GetTransaction(ctx, "h1", "t1")
	require.NoError(t, err)
	assert.Equal(t, model.CategoryTransport, one.Category)
	assert.Equal(t, model.SourceRule, one.CategorySource)

	err = store.UpdateTransactionCategory(ctx, "h1", "nope", model.CategoryFood, model.SourceRule, 0.9)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetTransaction(ctx, "h2", "t2")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestCategories(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	cat, err := store.CreateCategory(ctx, "h1", "Pet Shop")
	require.NoError(t, err)
	assert.Equal(t, "pet-shop", cat.Slug)

	_, err = store.CreateCategory(ctx, "h1", "Pet Shop")
	assert.ErrorIs(t, err, common.ErrDuplicateEntry)

	all, err := store.GetCategories(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, all, len(model.FixedCategories)+1)
	assert.Equal(t, cat.ID, all[len(all)-1].ID)

	_, err = store.GetCategory(ctx, "h2", cat.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	fixed, err := store.GetCategory(ctx, "h2", model.CategoryFood)
	require.NoError(t, err)
	assert.True(t, fixed.IsGlobal())
}

func TestUpdateTransactionCategory_DriverFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := NewSQLiteStorageFromDB(db)
	mock.ExpectExec("UPDATE transactions").WillReturnError(errors.New("disk I/O error"))

	err = store.UpdateTransactionCategory(context.Background(), "h1", "t1", model.CategoryFood, model.SourceRule, 0.9)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetCached_DriverFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := NewSQLiteStorageFromDB(db)
	mock.ExpectExec("INSERT INTO merchant_cache").WillReturnError(errors.New("database is locked"))

	err = store.SetCached(context.Background(), model.CacheEntry{HouseholdID: "h1", Fingerprint: "ifood", Category: model.CategoryFood, Confidence: 1})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
