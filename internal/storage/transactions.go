package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/common"
	"github.com/Veraticus/spice-categorizer/internal/model"
)

const transactionColumns = `id, household_id, description, amount, posted_at, category,
	category_source, confidence, updated_at`

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		txn      model.Transaction
		postedAt sql.NullTime
		source   string
	)
	err := row.Scan(&txn.ID, &txn.HouseholdID, &txn.Description, &txn.Amount, &postedAt,
		&txn.Category, &source, &txn.Confidence, &txn.UpdatedAt)
	if err != nil {
		return txn, err
	}
	if postedAt.Valid {
		txn.PostedAt = postedAt.Time
	}
	txn.CategorySource = model.Source(source)
	return txn, nil
}

// SaveTransactions inserts transactions, ignoring ones already stored for the
// same household. It returns how many rows were new.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	// Validate inputs
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return 0, fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	if len(transactions) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			id, household_id, description, amount, posted_at,
			category, category_source, confidence, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(household_id, id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	inserted := 0
	for _, txn := range transactions {
		category := txn.Category
		if category == "" {
			category = model.CategoryOther
		}

		var postedAt sql.NullTime
		if !txn.PostedAt.IsZero() {
			postedAt = sql.NullTime{Time: txn.PostedAt, Valid: true}
		}

		result, err := stmt.ExecContext(ctx,
			txn.ID, txn.HouseholdID, txn.Description, txn.Amount.String(), postedAt,
			category, string(txn.CategorySource), txn.Confidence, now, now)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transactions: %w", err)
	}

	return inserted, nil
}

// GetTransaction retrieves one transaction of a household.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, householdID, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateHousehold(householdID); err != nil {
		return nil, err
	}

	txn, err := scanTransaction(s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE household_id = ? AND id = ?`,
		householdID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

// GetTransactions loads the given ids of a household in the order requested.
// Unknown ids are skipped.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, householdID string, ids []string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateHousehold(householdID); err != nil {
		return nil, err
	}

	keys := uniqueNonEmpty(ids)
	found := make(map[string]model.Transaction, len(keys))

	for _, group := range chunk(keys, maxBindVars) {
		args := make([]any, 0, len(group)+1)
		args = append(args, householdID)
		for _, id := range group {
			args = append(args, id)
		}

		txns, err := s.queryTransactions(ctx, `
			SELECT `+transactionColumns+`
			FROM transactions
			WHERE household_id = ? AND id IN (`+placeholders(len(group))+`)
		`, args...)
		if err != nil {
			return nil, err
		}
		for _, t := range txns {
			found[t.ID] = t
		}
	}

	out := make([]model.Transaction, 0, len(found))
	for _, id := range keys {
		if t, ok := found[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// GetUncategorized returns transactions in "other" (or empty) that no stage
// has decided yet. A confident "other" from a rule, the cache, the classifier
// or a user is settled. limit <= 0 means no limit.
func (s *SQLiteStorage) GetUncategorized(ctx context.Context, householdID string, limit int) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateHousehold(householdID); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE household_id = ? AND category IN ('', 'other') AND category_source = ''
		ORDER BY posted_at ASC, id ASC`
	args := []any{householdID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	return s.queryTransactions(ctx, query, args...)
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txns, nil
}

// UpdateTransactionCategory writes a category decision for one transaction.
func (s *SQLiteStorage) UpdateTransactionCategory(ctx context.Context, householdID, id, category string, source model.Source, confidence float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHousehold(householdID); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET category = ?, category_source = ?, confidence = ?, updated_at = ?
		WHERE household_id = ? AND id = ?
	`, category, string(source), confidence, time.Now(), householdID, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction category: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}

	return nil
}
