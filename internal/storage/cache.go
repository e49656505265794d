package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/spice-categorizer/internal/model"
)

// GetCached looks up fingerprints for a household and returns only the hits.
// Empty fingerprints are never queried.
func (s *SQLiteStorage) GetCached(ctx context.Context, householdID string, fingerprints []string) (map[string]model.CacheEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateHousehold(householdID); err != nil {
		return nil, err
	}

	keys := uniqueNonEmpty(fingerprints)
	hits := make(map[string]model.CacheEntry, len(keys))

	for _, group := range chunk(keys, maxBindVars) {
		args := make([]any, 0, len(group)+1)
		args = append(args, householdID)
		for _, fp := range group {
			args = append(args, fp)
		}

		rows, err := s.db.QueryContext(ctx, `
			SELECT household_id, fingerprint, category, confidence, hit_count, last_seen
			FROM merchant_cache
			WHERE household_id = ? AND fingerprint IN (`+placeholders(len(group))+`)
		`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query merchant cache: %w", err)
		}

		for rows.Next() {
			var e model.CacheEntry
			if err := rows.Scan(&e.HouseholdID, &e.Fingerprint, &e.Category, &e.Confidence, &e.HitCount, &e.LastSeen); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan cache entry: %w", err)
			}
			hits[e.Fingerprint] = e
		}
		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, fmt.Errorf("error iterating cache entries: %w", err)
		}
	}

	return hits, nil
}

// SetCached upserts a cache entry. The last write wins.
func (s *SQLiteStorage) SetCached(ctx context.Context, entry model.CacheEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCacheEntry(entry); err != nil {
		return err
	}

	if entry.LastSeen.IsZero() {
		entry.LastSeen = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO merchant_cache (household_id, fingerprint, category, confidence, hit_count, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(household_id, fingerprint) DO UPDATE SET
			category = excluded.category,
			confidence = excluded.confidence,
			last_seen = excluded.last_seen
	`, entry.HouseholdID, entry.Fingerprint, entry.Category, entry.Confidence, entry.HitCount, entry.LastSeen)
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}

	return nil
}

// RecordCacheHits bumps hit counters and last-seen timestamps.
func (s *SQLiteStorage) RecordCacheHits(ctx context.Context, householdID string, fingerprints []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHousehold(householdID); err != nil {
		return err
	}

	now := time.Now()
	for _, group := range chunk(uniqueNonEmpty(fingerprints), maxBindVars) {
		args := make([]any, 0, len(group)+2)
		args = append(args, now, householdID)
		for _, fp := range group {
			args = append(args, fp)
		}

		if _, err := s.db.ExecContext(ctx, `
			UPDATE merchant_cache
			SET hit_count = hit_count + 1, last_seen = ?
			WHERE household_id = ? AND fingerprint IN (`+placeholders(len(group))+`)
		`, args...); err != nil {
			return fmt.Errorf("failed to record cache hits: %w", err)
		}
	}

	return nil
}

// ListCached returns the household's cache entries, most recently seen first.
func (s *SQLiteStorage) ListCached(ctx context.Context, householdID string) ([]model.CacheEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateHousehold(householdID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT household_id, fingerprint, category, confidence, hit_count, last_seen
		FROM merchant_cache
		WHERE household_id = ?
		ORDER BY last_seen DESC, fingerprint ASC
	`, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.CacheEntry
	for rows.Next() {
		var e model.CacheEntry
		if err := rows.Scan(&e.HouseholdID, &e.Fingerprint, &e.Category, &e.Confidence, &e.HitCount, &e.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cache entries: %w", err)
	}

	return entries, nil
}

// DeleteCached removes a single fingerprint.
func (s *SQLiteStorage) DeleteCached(ctx context.Context, householdID, fingerprint string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateHousehold(householdID); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM merchant_cache WHERE household_id = ? AND fingerprint = ?`,
		householdID, fingerprint); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// ClearCache removes every cache entry of a household and returns the count.
func (s *SQLiteStorage) ClearCache(ctx context.Context, householdID string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateHousehold(householdID); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM merchant_cache WHERE household_id = ?`, householdID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cache: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return int(n), nil
}

func uniqueNonEmpty(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
