package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/normalize"
)

func (s *SQLiteStorage) queryCategories(ctx context.Context, query string, args ...any) ([]model.Category, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.HouseholdID, &cat.Slug, &cat.Name, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// GetCategories returns the global categories followed by the household's custom ones.
func (s *SQLiteStorage) GetCategories(ctx context.Context, householdID string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateHousehold(householdID); err != nil {
		return nil, err
	}

	categories, err := s.queryCategories(ctx, `
		SELECT id, household_id, slug, name, created_at
		FROM categories
		WHERE household_id = '' OR household_id = ?
		ORDER BY household_id <> '', rowid
	`, householdID)
	if err != nil {
		return nil, err
	}

	slog.Debug("retrieved categories", "household", householdID, "count", len(categories))
	return categories, nil
}

// GetGlobalCategories returns the categories shared by every household.
func (s *SQLiteStorage) GetGlobalCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryCategories(ctx, `
		SELECT id, household_id, slug, name, created_at
		FROM categories
		WHERE household_id = ''
		ORDER BY rowid
	`)
}

// GetCustomCategories returns every household's custom categories, grouped by household.
func (s *SQLiteStorage) GetCustomCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryCategories(ctx, `
		SELECT id, household_id, slug, name, created_at
		FROM categories
		WHERE household_id <> ''
		ORDER BY household_id, rowid
	`)
}

// GetCategory returns a global category or one of the household's custom categories.
func (s *SQLiteStorage) GetCategory(ctx context.Context, householdID, id string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateHousehold(householdID); err != nil {
		return nil, err
	}

	var cat model.Category
	err := s.db.QueryRowContext(ctx, `
		SELECT id, household_id, slug, name, created_at
		FROM categories
		WHERE id = ? AND (household_id = '' OR household_id = ?)
	`, id, householdID).Scan(&cat.ID, &cat.HouseholdID, &cat.Slug, &cat.Name, &cat.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %q: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &cat, nil
}

// CreateCategory adds a custom category owned by a household.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, householdID, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateHousehold(householdID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.NewValidationError("name", "must not be empty", common.ErrInvalidCategory)
	}

	cat := &model.Category{
		ID:          uuid.NewString(),
		HouseholdID: householdID,
		Slug:        strings.ReplaceAll(normalize.Normalize(name), " ", "-"),
		Name:        name,
		CreatedAt:   time.Now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, household_id, slug, name, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, cat.ID, cat.HouseholdID, cat.Slug, cat.Name, cat.CreatedAt)
	if err != nil {
		return nil, wrapWriteError(err, "create category")
	}

	slog.Info("created category", "household", householdID, "id", cat.ID, "name", cat.Name)
	return cat, nil
}
