// Package testutil provides test helpers shared across packages: a migrated
// in-memory store and a generator of realistic statement lines.
package testutil

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/storage"
)

// TestDB wraps a migrated in-memory store.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// AddTransactions stores transactions for a household and returns them with
// the household filled in.
func (db *TestDB) AddTransactions(householdID string, txns ...model.Transaction) []model.Transaction {
	db.t.Helper()

	out := make([]model.Transaction, len(txns))
	for i, txn := range txns {
		txn.HouseholdID = householdID
		if txn.Category == "" {
			txn.Category = model.CategoryOther
		}
		if txn.Amount.IsZero() {
			txn.Amount = decimal.NewFromInt(10)
		}
		out[i] = txn
	}

	if _, err := db.Storage.SaveTransactions(context.Background(), out); err != nil {
		db.t.Fatalf("failed to save transactions: %v", err)
	}
	return out
}

// MustGetTransaction loads a transaction or fails the test.
func (db *TestDB) MustGetTransaction(householdID, id string) model.Transaction {
	db.t.Helper()

	txn, err := db.Storage.GetTransaction(context.Background(), householdID, id)
	if err != nil {
		db.t.Fatalf("failed to get transaction %s: %v", id, err)
	}
	return *txn
}

// AddRule stores a household rule or fails the test.
func (db *TestDB) AddRule(rule model.Rule) model.Rule {
	db.t.Helper()

	if rule.MatchType == "" {
		rule.MatchType = model.MatchContains
	}
	if rule.Confidence == 0 {
		rule.Confidence = 0.9
	}
	rule.Active = true

	if err := db.Storage.CreateRule(context.Background(), &rule); err != nil {
		db.t.Fatalf("failed to create rule %q: %v", rule.Pattern, err)
	}
	return rule
}
