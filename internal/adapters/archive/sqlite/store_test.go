package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hivemind/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleSession(id string, created time.Time) domain.Session {
	return domain.Session{
		ID:        id,
		CreatedAt: created,
		Task:      "Build a secure payment API",
		Invocations: []domain.Invocation{
			{AgentID: "DEV-001", Engine: domain.EngineCodex, Status: domain.StatusComplete, StartedAt: created, FinishedAt: created.Add(time.Minute)},
			{AgentID: "SEC-001", Engine: domain.EngineClaude, Status: domain.StatusError, StartedAt: created, Detail: "timed out after 5m0s"},
		},
	}
}

func TestStorePutListCount(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Put(ctx, sampleSession("20261001-120000-aaaaaaaa", created), map[domain.AgentID]string{"DEV-001": "use REST"}, created.Add(24*time.Hour)))
	require.NoError(t, store.Put(ctx, sampleSession("20261002-120000-bbbbbbbb", created.Add(24*time.Hour)), nil, created.Add(48*time.Hour)))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	items, err := store.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "20261002-120000-bbbbbbbb", items[0].ID)
	assert.Equal(t, 2, items[1].Invocations)
	assert.Equal(t, 1, items[1].Failed)
	assert.True(t, items[1].CreatedAt.Equal(created))

	limited, err := store.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	result, err := store.Result(ctx, "20261001-120000-aaaaaaaa", "DEV-001")
	require.NoError(t, err)
	assert.Equal(t, "use REST", result)

	_, err = store.Result(ctx, "20261001-120000-aaaaaaaa", "QA-001")
	assert.ErrorIs(t, err, domain.ErrInvocationNotFound)
}

func TestStorePutReplacesExistingSession(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	session := sampleSession("20261001-120000-aaaaaaaa", created)

	require.NoError(t, store.Put(ctx, session, nil, created))
	require.NoError(t, store.Put(ctx, session, map[domain.AgentID]string{"DEV-001": "second"}, created.Add(time.Hour)))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	result, err := store.Result(ctx, session.ID, "DEV-001")
	require.NoError(t, err)
	assert.Equal(t, "second", result)
}
