package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/comparable-finder/internal/types"
)

func tempStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "history.json"))
}

func entryFor(name string) *CacheEntry {
	target := types.TargetCompany{
		Name:                          name,
		URL:                           "https://example.com",
		BusinessDescription:           "Description for " + name,
		PrimaryIndustryClassification: "Software",
	}
	return NewEntry(target, []types.CandidateCompany{{Name: "Comparable of " + name}})
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)

	entry := entryFor("Acme Analytics")
	require.NoError(t, s.Save(ctx, entry))

	got, err := s.Get(ctx, entry.CacheKey)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entry.TargetCompany, got.TargetCompany)
	assert.Equal(t, entry.Results, got.Results)
	assert.Equal(t, entry.CompanyCount, got.CompanyCount)
}

func TestFileStoreGetMissing(t *testing.T) {
	s := tempStore(t)

	got, err := s.Get(context.Background(), "no-such-key")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFileStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)

	entry := entryFor("Acme Analytics")
	require.NoError(t, s.Save(ctx, entry))

	updated := *entry
	updated.Results = append(updated.Results, types.CandidateCompany{Name: "New Comparable"})
	updated.CompanyCount = len(updated.Results)
	require.NoError(t, s.Save(ctx, &updated))

	got, err := s.Get(ctx, entry.CacheKey)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CompanyCount)

	summaries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, summaries, 1)
}

func TestFileStoreListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)

	older := entryFor("Older Co")
	older.Timestamp = time.Now().UTC().Add(-time.Hour)
	newer := entryFor("Newer Co")

	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))

	summaries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "Newer Co", summaries[0].CompanyName)
	assert.Equal(t, "Older Co", summaries[1].CompanyName)
}

func TestFileStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)

	entry := entryFor("Acme Analytics")
	require.NoError(t, s.Save(ctx, entry))

	deleted, err := s.Delete(ctx, entry.CacheKey)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := s.Get(ctx, entry.CacheKey)
	require.NoError(t, err)
	assert.Nil(t, got)

	deleted, err = s.Delete(ctx, entry.CacheKey)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestFileStoreClear(t *testing.T) {
	ctx := context.Background()
	s := tempStore(t)

	require.NoError(t, s.Save(ctx, entryFor("Alpha Co")))
	require.NoError(t, s.Save(ctx, entryFor("Beta Co")))

	count, err := s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	summaries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	count, err = s.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestFileStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all"), 0o644))

	s := NewFileStore(path)

	summaries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, summaries)

	// Saving over a corrupt file restores a usable history.
	entry := entryFor("Acme Analytics")
	require.NoError(t, s.Save(ctx, entry))

	got, err := s.Get(ctx, entry.CacheKey)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestFileStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.json")
	s := NewFileStore(path)

	require.NoError(t, s.Save(context.Background(), entryFor("Acme Analytics")))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestNewFileStoreDefaultPath(t *testing.T) {
	s := NewFileStore("")
	assert.Equal(t, DefaultHistoryFile, s.path)
}
