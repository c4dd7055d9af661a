package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/comparable-finder/internal/types"
)

// PGStore persists history in PostgreSQL. It implements the same Store
// contract as FileStore and is selected when a database URL is configured.
type PGStore struct {
	pool *pgxpool.Pool
}

// ConnectPG establishes a connection pool and ensures the schema exists.
func ConnectPG(ctx context.Context, databaseURL string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PGStore) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS comparable_searches (
			cache_key     TEXT PRIMARY KEY,
			target        JSONB NOT NULL,
			results       JSONB NOT NULL,
			company_count INT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Save upserts the entry under its cache key.
func (s *PGStore) Save(ctx context.Context, entry *CacheEntry) error {
	targetJSON, err := json.Marshal(entry.TargetCompany)
	if err != nil {
		return fmt.Errorf("failed to marshal target: %w", err)
	}
	resultsJSON, err := json.Marshal(entry.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO comparable_searches (cache_key, target, results, company_count, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (cache_key) DO UPDATE
		 SET target = $2, results = $3, company_count = $4, created_at = $5`,
		entry.CacheKey, targetJSON, resultsJSON, entry.CompanyCount, entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save search %s: %w", entry.CacheKey, err)
	}
	return nil
}

// Get returns the entry for a cache key, or (nil, nil) when absent.
func (s *PGStore) Get(ctx context.Context, cacheKey string) (*CacheEntry, error) {
	entry := &CacheEntry{CacheKey: cacheKey}
	var targetJSON, resultsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT target, results, company_count, created_at
		 FROM comparable_searches WHERE cache_key = $1`,
		cacheKey,
	).Scan(&targetJSON, &resultsJSON, &entry.CompanyCount, &entry.Timestamp)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get search %s: %w", cacheKey, err)
	}

	if err := json.Unmarshal(targetJSON, &entry.TargetCompany); err != nil {
		return nil, fmt.Errorf("failed to unmarshal target: %w", err)
	}
	if err := json.Unmarshal(resultsJSON, &entry.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	return entry, nil
}

// List returns history summaries, newest first.
func (s *PGStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT cache_key, target, company_count, created_at
		 FROM comparable_searches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list searches: %w", err)
	}
	defer rows.Close()

	var summaries []Summary
	for rows.Next() {
		var summary Summary
		var targetJSON []byte
		if err := rows.Scan(&summary.CacheKey, &targetJSON, &summary.CompanyCount, &summary.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan search row: %w", err)
		}
		var target types.TargetCompany
		if err := json.Unmarshal(targetJSON, &target); err != nil {
			return nil, fmt.Errorf("failed to unmarshal target: %w", err)
		}
		summary.CompanyName = target.Name
		summary.Industry = target.PrimaryIndustryClassification
		summary.URL = target.URL
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// Delete removes one entry, reporting whether it existed.
func (s *PGStore) Delete(ctx context.Context, cacheKey string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM comparable_searches WHERE cache_key = $1`, cacheKey)
	if err != nil {
		return false, fmt.Errorf("failed to delete search %s: %w", cacheKey, err)
	}
	return tag.RowsAffected() > 0, nil
}

// Clear removes all entries and returns how many were deleted.
func (s *PGStore) Clear(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM comparable_searches`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear searches: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Close closes the connection pool.
func (s *PGStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
