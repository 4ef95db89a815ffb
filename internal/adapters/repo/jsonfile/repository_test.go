package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bnema/hivemind/internal/domain"
)

func newEntry(id string, createdAt time.Time) domain.MemoryEntry {
	return domain.MemoryEntry{
		ID:        id,
		Type:      domain.MemoryTypePreference,
		Category:  "style",
		Content:   "use snake_case for Python",
		Tags:      []string{"python", "style"},
		CreatedAt: createdAt,
		Scope:     domain.ScopeLongTerm,
	}
}

func TestRepositoryAppendAndListRoundTrip(t *testing.T) {
	t.Parallel()

	repo := NewRepository(t.TempDir(), zap.NewNop())
	now := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	stored, err := repo.Append(context.Background(), newEntry("m-1", now))
	require.NoError(t, err)
	assert.Equal(t, now, stored.CreatedAt)

	entries, err := repo.List(context.Background(), domain.ScopeLongTerm)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, stored, entries[0].Entry)
	assert.InDelta(t, 1.0, entries[0].Weight, 1e-9)

	_, err = os.Stat(filepath.Join(repo.Root(), "long-term", "style.json"))
	require.NoError(t, err)

	others, err := repo.List(context.Background(), domain.ScopeSession)
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestRepositoryKeepsCreatedAtStrictlyMonotonic(t *testing.T) {
	t.Parallel()

	repo := NewRepository(t.TempDir(), nil)
	now := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

	first, err := repo.Append(context.Background(), newEntry("m-1", now))
	require.NoError(t, err)
	second, err := repo.Append(context.Background(), newEntry("m-2", now.Add(-time.Minute)))
	require.NoError(t, err)

	assert.True(t, second.CreatedAt.After(first.CreatedAt))
	assert.Equal(t, first.CreatedAt.Add(time.Nanosecond), second.CreatedAt)
}

func TestRepositoryRejectsDuplicateIDInFile(t *testing.T) {
	t.Parallel()

	repo := NewRepository(t.TempDir(), nil)
	now := time.Now().UTC()

	_, err := repo.Append(context.Background(), newEntry("m-1", now))
	require.NoError(t, err)
	_, err = repo.Append(context.Background(), newEntry("m-1", now))
	assert.ErrorContains(t, err, "already exists")
}

func TestRepositoryRecoversFromCorruptFile(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	repo := NewRepository(t.TempDir(), zap.New(core))
	path := repo.PathFor(domain.ScopeLongTerm, "style")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	entries, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 1, logs.FilterMessage("memory store corrupt, treating as empty").Len())

	_, err = repo.Append(context.Background(), newEntry("m-1", time.Now()))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc fileSchema
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, 1, doc.Version)
	require.Len(t, doc.Entries, 1)
	assert.Equal(t, "m-1", doc.Entries[0].ID)

	kept, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(kept))
	assert.Equal(t, 1, logs.FilterMessage("memory store corrupt, moved aside").Len())
}

func TestRepositoryCorruptCopiesDoNotOverwriteEachOther(t *testing.T) {
	t.Parallel()

	repo := NewRepository(t.TempDir(), zap.NewNop())
	path := repo.PathFor(domain.ScopeLongTerm, "style")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(t, os.WriteFile(path+".corrupt", []byte("first"), 0o600))
	require.NoError(t, os.WriteFile(path, []byte("second"), 0o600))

	_, err := repo.Append(context.Background(), newEntry("m-1", time.Now()))
	require.NoError(t, err)

	first, err := os.ReadFile(path + ".corrupt")
	require.NoError(t, err)
	assert.Equal(t, "first", string(first))
	second, err := os.ReadFile(path + ".corrupt.1")
	require.NoError(t, err)
	assert.Equal(t, "second", string(second))
}

func TestRepositoryLeavesNewerSchemaFileAlone(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	repo := NewRepository(t.TempDir(), zap.New(core))
	path := repo.PathFor(domain.ScopeLongTerm, "style")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o700))
	newer := `{"version": 2, "entries": [{"id": "m-9", "content": "kept"}], "shards": 4}`
	require.NoError(t, os.WriteFile(path, []byte(newer), 0o600))

	entries, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 1, logs.FilterMessage("memory store from a newer version, skipping").Len())

	_, err = repo.Append(context.Background(), newEntry("m-1", time.Now()))
	require.Error(t, err)
	assert.ErrorIs(t, err, errNewerSchema)

	removed, err := repo.Remove(context.Background(), "m-9")
	require.NoError(t, err)
	assert.False(t, removed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, newer, string(data))
	assert.NoFileExists(t, path+".corrupt")
}

func TestRepositoryConcurrentAppendsAreNotLost(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	const writers = 24

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Separate repositories share the path lock registry like two services would.
			repo := NewRepository(root, nil)
			_, err := repo.Append(context.Background(), newEntry(fmt.Sprintf("m-%02d", i), time.Now()))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	entries, err := NewRepository(root, nil).List(context.Background(), domain.ScopeLongTerm)
	require.NoError(t, err)
	require.Len(t, entries, writers)

	seen := map[string]bool{}
	for _, e := range entries {
		assert.False(t, seen[e.Entry.ID], "duplicate id %s", e.Entry.ID)
		seen[e.Entry.ID] = true
	}
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i].Entry.CreatedAt.After(entries[i-1].Entry.CreatedAt))
	}
}

func TestRepositoryRemoveAndScaleWeight(t *testing.T) {
	t.Parallel()

	repo := NewRepository(t.TempDir(), nil)
	ctx := context.Background()
	_, err := repo.Append(ctx, newEntry("m-1", time.Now()))
	require.NoError(t, err)

	weight, ok, err := repo.ScaleWeight(ctx, "m-1", 1.5, 0.1, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 1.5, weight, 1e-9)

	for i := 0; i < 10; i++ {
		weight, _, err = repo.ScaleWeight(ctx, "m-1", 0.5, 0.1, 10)
		require.NoError(t, err)
	}
	assert.InDelta(t, 0.1, weight, 1e-9)

	_, ok, err = repo.ScaleWeight(ctx, "missing", 1.5, 0.1, 10)
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := repo.Remove(ctx, "m-1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Remove(ctx, "m-1")
	require.NoError(t, err)
	assert.False(t, removed)

	data, err := os.ReadFile(repo.PathFor(domain.ScopeLongTerm, "style"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "weights")
}

func TestRepositoryStatsCountsPerCategory(t *testing.T) {
	t.Parallel()

	repo := NewRepository(t.TempDir(), nil)
	ctx := context.Background()

	for i, category := range []string{"style", "style", "learnings"} {
		entry := newEntry(fmt.Sprintf("m-%d", i), time.Now())
		entry.Category = category
		_, err := repo.Append(ctx, entry)
		require.NoError(t, err)
	}

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.CategoryStats{
		{Scope: domain.ScopeLongTerm, Category: "learnings", Entries: 1},
		{Scope: domain.ScopeLongTerm, Category: "style", Entries: 2},
	}, stats)
}
