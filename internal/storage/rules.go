package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
	"github.com/Veraticus/spice-categorizer/internal/normalize"
)

const ruleColumns = `id, household_id, category_id, pattern_name, match_type, pattern, scope,
	priority, confidence, active, use_count, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (model.Rule, error) {
	var rule model.Rule
	err := row.Scan(
		&rule.ID, &rule.HouseholdID, &rule.Category, &rule.Name, &rule.MatchType, &rule.Pattern, &rule.Scope,
		&rule.Priority, &rule.Confidence, &rule.Active, &rule.UseCount, &rule.CreatedAt, &rule.UpdatedAt,
	)
	return rule, err
}

func (s *SQLiteStorage) queryRules(ctx context.Context, q queryable, query string, args ...any) ([]model.Rule, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	return rules, nil
}

// GetActiveRules returns active global rules and the household's active rules
// ordered by insertion id, which is the matcher's tie-break order.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context, householdID string) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateHousehold(householdID); err != nil {
		return nil, err
	}

	return s.queryRules(ctx, s.db, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE active = 1 AND (household_id = '' OR household_id = ?)
		ORDER BY id ASC
	`, householdID)
}

// ListRules returns the household's rules, active or not, optionally with the global ones.
func (s *SQLiteStorage) ListRules(ctx context.Context, householdID string, includeGlobal bool) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateHousehold(householdID); err != nil {
		return nil, err
	}

	query := `SELECT ` + ruleColumns + ` FROM rules WHERE household_id = ? ORDER BY id ASC`
	if includeGlobal {
		query = `SELECT ` + ruleColumns + ` FROM rules WHERE household_id = '' OR household_id = ? ORDER BY id ASC`
	}

	return s.queryRules(ctx, s.db, query, householdID)
}

// GetRule retrieves a rule by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int64) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rule, err := scanRule(s.db.QueryRowContext(ctx, `SELECT `+ruleColumns+` FROM rules WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	return &rule, nil
}

// FindHouseholdRules returns the household's rules, in any state, with the given pattern.
func (s *SQLiteStorage) FindHouseholdRules(ctx context.Context, householdID, pattern string) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateHousehold(householdID); err != nil {
		return nil, err
	}

	return s.queryRules(ctx, s.db, `
		SELECT `+ruleColumns+`
		FROM rules
		WHERE household_id = ? AND pattern = ?
		ORDER BY id ASC
	`, householdID, normalize.Normalize(pattern))
}

// CreateRule stores a household rule. The pattern is normalized before insert.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}
	if rule.IsGlobal() {
		return common.MissingHousehold()
	}

	rule.Pattern = normalize.Normalize(rule.Pattern)
	if rule.Scope == "" {
		rule.Scope = model.ScopeHousehold
	}
	if rule.Name == "" {
		rule.Name = fmt.Sprintf("%s: %s", rule.Category, rule.Pattern)
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (
			household_id, category_id, pattern_name, match_type, pattern, scope,
			priority, confidence, active, use_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
	`, rule.HouseholdID, rule.Category, rule.Name, rule.MatchType, rule.Pattern, rule.Scope,
		rule.Priority, rule.Confidence, rule.Active, now, now)
	if err != nil {
		return wrapWriteError(err, "create rule")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}

	rule.ID = id
	rule.CreatedAt = now
	rule.UpdatedAt = now

	return nil
}

// UpsertKitRule inserts a built-in kit rule unless an identical one exists,
// in which case its priority and confidence are refreshed and it is
// reactivated. Rules without a household are global; rules seeded for a
// custom category belong to that category's household. Only new inserts
// report true.
func (s *SQLiteStorage) UpsertKitRule(ctx context.Context, rule *model.Rule) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateRule(rule); err != nil {
		return false, err
	}

	rule.Scope = model.ScopeBuiltin
	rule.Pattern = normalize.Normalize(rule.Pattern)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO rules (
			household_id, category_id, pattern_name, match_type, pattern, scope,
			priority, confidence, active, use_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, 0, ?, ?)
		ON CONFLICT(household_id, category_id, match_type, pattern) DO NOTHING
	`, rule.HouseholdID, rule.Category, rule.Name, rule.MatchType, rule.Pattern, rule.Scope,
		rule.Priority, rule.Confidence, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to insert kit rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected > 0 {
		if rule.ID, err = result.LastInsertId(); err != nil {
			return false, fmt.Errorf("failed to get rule ID: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
			UPDATE rules
			SET priority = ?, confidence = ?, active = 1, updated_at = ?
			WHERE household_id = ? AND category_id = ? AND match_type = ? AND pattern = ?
		`, rule.Priority, rule.Confidence, now, rule.HouseholdID, rule.Category, rule.MatchType, rule.Pattern); err != nil {
			return false, fmt.Errorf("failed to refresh kit rule: %w", err)
		}
		if err := tx.QueryRowContext(ctx, `
			SELECT id FROM rules
			WHERE household_id = ? AND category_id = ? AND match_type = ? AND pattern = ?
		`, rule.HouseholdID, rule.Category, rule.MatchType, rule.Pattern).Scan(&rule.ID); err != nil {
			return false, fmt.Errorf("failed to load kit rule: %w", err)
		}
	}
	rule.Active = true

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit kit rule: %w", err)
	}

	return affected > 0, nil
}

// householdRule loads a rule and checks the household may modify it.
func (s *SQLiteStorage) householdRule(ctx context.Context, householdID string, id int64) (*model.Rule, error) {
	if err := validateHousehold(householdID); err != nil {
		return nil, err
	}

	rule, err := s.GetRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.IsGlobal() {
		return nil, fmt.Errorf("rule %d: %w", id, common.ErrGlobalRuleReadOnly)
	}
	if rule.HouseholdID != householdID {
		return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
	}
	return rule, nil
}

// DeleteRule removes a household rule. Global rules are read-only.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, householdID string, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.householdRule(ctx, householdID, id); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM rules WHERE id = ? AND household_id = ?`, id, householdID); err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return nil
}

// SetRuleActive enables or disables a household rule.
func (s *SQLiteStorage) SetRuleActive(ctx context.Context, householdID string, id int64, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if _, err := s.householdRule(ctx, householdID, id); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE rules SET active = ?, updated_at = ? WHERE id = ? AND household_id = ?`,
		active, time.Now(), id, householdID); err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	return nil
}

// DeactivateConflictingRules disables the household's active rules that share
// pattern but point at a different category. It returns how many were disabled.
func (s *SQLiteStorage) DeactivateConflictingRules(ctx context.Context, householdID, pattern, category string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateHousehold(householdID); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE rules
		SET active = 0, updated_at = ?
		WHERE household_id = ? AND pattern = ? AND category_id <> ? AND active = 1
	`, time.Now(), householdID, normalize.Normalize(pattern), category)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate conflicting rules: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

// IncrementRuleUseCount bumps the usage counter of each rule.
func (s *SQLiteStorage) IncrementRuleUseCount(ctx context.Context, ids ...int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	// A rule id may appear several times in one batch; count each use.
	counts := make(map[int64]int, len(ids))
	for _, id := range ids {
		counts[id]++
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for id, n := range counts {
		if _, err := tx.ExecContext(ctx, `UPDATE rules SET use_count = use_count + ? WHERE id = ?`, n, id); err != nil {
			return fmt.Errorf("failed to increment rule use count: %w", err)
		}
	}

	return tx.Commit()
}

// CountGlobalRules returns how many global rules are stored.
func (s *SQLiteStorage) CountGlobalRules(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rules WHERE household_id = ''`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count global rules: %w", err)
	}
	return n, nil
}
