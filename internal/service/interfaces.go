// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// RuleStore persists built-in and household rules.
type RuleStore interface {
	// GetActiveRules returns active global rules plus the household's own, in insertion order.
	GetActiveRules(ctx context.Context, householdID string) ([]model.Rule, error)
	ListRules(ctx context.Context, householdID string, includeGlobal bool) ([]model.Rule, error)
	GetRule(ctx context.Context, id int64) (*model.Rule, error)
	FindHouseholdRules(ctx context.Context, householdID, pattern string) ([]model.Rule, error)
	CreateRule(ctx context.Context, rule *model.Rule) error
	// UpsertKitRule reports whether a new row was inserted.
	UpsertKitRule(ctx context.Context, rule *model.Rule) (bool, error)
	DeleteRule(ctx context.Context, householdID string, id int64) error
	SetRuleActive(ctx context.Context, householdID string, id int64, active bool) error
	DeactivateConflictingRules(ctx context.Context, householdID, pattern, category string) (int, error)
	IncrementRuleUseCount(ctx context.Context, ids ...int64) error
	CountGlobalRules(ctx context.Context) (int, error)
}

// CacheStore persists the household-scoped merchant cache.
type CacheStore interface {
	// GetCached returns hits only, keyed by fingerprint.
	GetCached(ctx context.Context, householdID string, fingerprints []string) (map[string]model.CacheEntry, error)
	SetCached(ctx context.Context, entry model.CacheEntry) error
	RecordCacheHits(ctx context.Context, householdID string, fingerprints []string) error
	ListCached(ctx context.Context, householdID string) ([]model.CacheEntry, error)
	DeleteCached(ctx context.Context, householdID, fingerprint string) error
	ClearCache(ctx context.Context, householdID string) (int, error)
}

// TransactionStore persists statement lines and their categories.
type TransactionStore interface {
	// SaveTransactions inserts new transactions and reports how many were new.
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransaction(ctx context.Context, householdID, id string) (*model.Transaction, error)
	GetTransactions(ctx context.Context, householdID string, ids []string) ([]model.Transaction, error)
	GetUncategorized(ctx context.Context, householdID string, limit int) ([]model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, householdID, id, category string, source model.Source, confidence float64) error
}

// CategoryStore persists fixed and custom categories.
type CategoryStore interface {
	// GetCategories returns the global categories followed by the household's custom ones.
	GetCategories(ctx context.Context, householdID string) ([]model.Category, error)
	GetGlobalCategories(ctx context.Context) ([]model.Category, error)
	GetCustomCategories(ctx context.Context) ([]model.Category, error)
	GetCategory(ctx context.Context, householdID, id string) (*model.Category, error)
	CreateCategory(ctx context.Context, householdID, name string) (*model.Category, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	RuleStore
	CacheStore
	TransactionStore
	CategoryStore

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
