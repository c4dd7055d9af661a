// Package store persists search results keyed by an idempotent cache key
// derived from the target company, and exposes them as browsable history.
package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/jonathan/comparable-finder/internal/types"
)

// CacheEntry is one saved search: the target, its results, and metadata.
type CacheEntry struct {
	TargetCompany types.TargetCompany      `json:"target_company"`
	Results       []types.CandidateCompany `json:"results"`
	Timestamp     time.Time                `json:"timestamp"`
	CompanyCount  int                      `json:"company_count"`
	CacheKey      string                   `json:"cache_key"`
}

// Summary is the history-list row for one cached search.
type Summary struct {
	CacheKey     string    `json:"cache_key"`
	CompanyName  string    `json:"company_name"`
	Industry     string    `json:"industry"`
	URL          string    `json:"url"`
	Timestamp    time.Time `json:"timestamp"`
	CompanyCount int       `json:"company_count"`
}

// Store is the persistence interface for search history.
// Get returns (nil, nil) when the key is absent.
type Store interface {
	Save(ctx context.Context, entry *CacheEntry) error
	Get(ctx context.Context, cacheKey string) (*CacheEntry, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, cacheKey string) (bool, error)
	Clear(ctx context.Context) (int, error)
	Close()
}

// CacheKey derives the idempotency key for a target company. It depends only
// on the lowercased name and the business description; other fields do not
// participate.
func CacheKey(target types.TargetCompany) string {
	keyString := strings.ToLower(strings.TrimSpace(target.Name)) + "_" + strings.TrimSpace(target.BusinessDescription)
	sum := md5.Sum([]byte(keyString))
	return hex.EncodeToString(sum[:])
}

// NewEntry builds a CacheEntry for a completed search.
func NewEntry(target types.TargetCompany, results []types.CandidateCompany) *CacheEntry {
	return &CacheEntry{
		TargetCompany: target,
		Results:       results,
		Timestamp:     time.Now().UTC(),
		CompanyCount:  len(results),
		CacheKey:      CacheKey(target),
	}
}

// summarize converts an entry to its history row.
func summarize(entry *CacheEntry) Summary {
	return Summary{
		CacheKey:     entry.CacheKey,
		CompanyName:  entry.TargetCompany.Name,
		Industry:     entry.TargetCompany.PrimaryIndustryClassification,
		URL:          entry.TargetCompany.URL,
		Timestamp:    entry.Timestamp,
		CompanyCount: entry.CompanyCount,
	}
}
