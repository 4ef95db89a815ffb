package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hivemind/internal/adapters/repo/jsonfile"
	"github.com/bnema/hivemind/internal/domain"
)

type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

func newMemoryService(t *testing.T) *MemoryService {
	t.Helper()
	clock := &stepClock{now: time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC), step: time.Second}
	return NewMemoryService(jsonfile.NewRepository(t.TempDir(), nil), clock, nil)
}

func TestMemoryServicePreferenceIsRecalledAsOnlyResult(t *testing.T) {
	t.Parallel()

	svc := newMemoryService(t)
	ctx := context.Background()

	stored, err := svc.Store(ctx, domain.MemoryTypePreference, "style", "use snake_case for Python", []string{"python", "style"}, domain.ScopeLongTerm)
	require.NoError(t, err)
	_, err = svc.Store(ctx, domain.MemoryTypeFact, "learnings", "the CI runs on arm64", nil, domain.ScopeLongTerm)
	require.NoError(t, err)

	results, err := svc.Recall(ctx, "snake_case", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, stored.ID, results[0].Entry.ID)
	assert.Equal(t, []string{"python", "style"}, results[0].Entry.Tags)
	assert.InDelta(t, 2.0, results[0].Relevance, 1e-9)
}

func TestMemoryServiceRecallIsIdempotent(t *testing.T) {
	t.Parallel()

	svc := newMemoryService(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.Store(ctx, domain.MemoryTypeFact, "learnings", fmt.Sprintf("go build tags note %d", i), []string{"go"}, domain.ScopeLongTerm)
		require.NoError(t, err)
	}

	first, err := svc.Recall(ctx, "go tags", nil)
	require.NoError(t, err)
	second, err := svc.Recall(ctx, "go tags", nil)
	require.NoError(t, err)

	require.Len(t, first, 5)
	assert.Equal(t, first, second)
	// Equal relevance: newest first.
	assert.Equal(t, "go build tags note 4", first[0].Entry.Content)
}

func TestMemoryServiceRecallOrdersByWeightedRelevance(t *testing.T) {
	t.Parallel()

	svc := newMemoryService(t)
	ctx := context.Background()

	strong, err := svc.Store(ctx, domain.MemoryTypeDecision, "decisions", "postgres for the billing service", nil, domain.ScopeLongTerm)
	require.NoError(t, err)
	weak, err := svc.Store(ctx, domain.MemoryTypeDecision, "decisions", "postgres replicas are read-only", nil, domain.ScopeLongTerm)
	require.NoError(t, err)

	results, err := svc.Recall(ctx, "postgres billing", nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, strong.ID, results[0].Entry.ID)

	for i := 0; i < 2; i++ {
		_, ok, err := svc.Boost(ctx, weak.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}

	results, err = svc.Recall(ctx, "postgres billing", nil)
	require.NoError(t, err)
	assert.Equal(t, weak.ID, results[0].Entry.ID)
	assert.InDelta(t, 2.25, results[0].Relevance, 1e-9)
}

func TestMemoryServiceRecallFiltersByScope(t *testing.T) {
	t.Parallel()

	svc := newMemoryService(t)
	ctx := context.Background()

	_, err := svc.Store(ctx, domain.MemoryTypeFact, "notes", "deploy window is friday", nil, domain.ScopeSession)
	require.NoError(t, err)
	_, err = svc.Store(ctx, domain.MemoryTypeFact, "notes", "deploy needs approval", nil, domain.ScopeLongTerm)
	require.NoError(t, err)

	scope := domain.ScopeSession
	results, err := svc.Recall(ctx, "deploy", &scope)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ScopeSession, results[0].Entry.Scope)

	all, err := svc.Recall(ctx, "", nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "deploy needs approval", all[0].Entry.Content)
}

func TestMemoryServiceForgetRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newMemoryService(t)
	ctx := context.Background()

	entry, err := svc.Store(ctx, domain.MemoryTypeRule, "rules", "never commit secrets", nil, domain.ScopeLongTerm)
	require.NoError(t, err)

	removed, err := svc.Forget(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	results, err := svc.Recall(ctx, "secrets", nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	removed, err = svc.Forget(ctx, entry.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryServiceDecayFloorsAndUnknownID(t *testing.T) {
	t.Parallel()

	svc := newMemoryService(t)
	ctx := context.Background()

	entry, err := svc.Store(ctx, domain.MemoryTypeFact, "learnings", "old fact", nil, domain.ScopeEpisodic)
	require.NoError(t, err)

	var weight float64
	for i := 0; i < 6; i++ {
		weight, _, err = svc.Decay(ctx, entry.ID)
		require.NoError(t, err)
	}
	assert.InDelta(t, MinWeight, weight, 1e-9)

	_, ok, err := svc.Boost(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryServiceStoreRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	svc := newMemoryService(t)
	ctx := context.Background()

	_, err := svc.Store(ctx, "opinion", "style", "x", nil, domain.ScopeLongTerm)
	assert.ErrorContains(t, err, "unsupported memory type")

	_, err = svc.Store(ctx, domain.MemoryTypeFact, "../escape", "x", nil, domain.ScopeLongTerm)
	assert.ErrorContains(t, err, "invalid category")
}

func TestExtractTriggers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []domain.MemoryEntry
	}{
		{
			name: "remember that",
			text: "Please remember that staging uses a separate VPC.",
			want: []domain.MemoryEntry{{Type: domain.MemoryTypeFact, Category: "learnings", Content: "staging uses a separate VPC", Scope: domain.ScopeLongTerm}},
		},
		{
			name: "preference phrases",
			text: "I prefer table-driven tests\n- always use context timeouts",
			want: []domain.MemoryEntry{
				{Type: domain.MemoryTypePreference, Category: "preferences", Content: "table-driven tests", Scope: domain.ScopeLongTerm},
				{Type: domain.MemoryTypePreference, Category: "preferences", Content: "always use context timeouts", Scope: domain.ScopeLongTerm},
			},
		},
		{
			name: "decision and rule markers",
			text: "Decision: JWT with short-lived tokens\nwe decided to drop MySQL\nRule: no direct pushes to main\nnever log raw tokens",
			want: []domain.MemoryEntry{
				{Type: domain.MemoryTypeDecision, Category: "decisions", Content: "JWT with short-lived tokens", Scope: domain.ScopeLongTerm},
				{Type: domain.MemoryTypeDecision, Category: "decisions", Content: "to drop MySQL", Scope: domain.ScopeLongTerm},
				{Type: domain.MemoryTypeRule, Category: "rules", Content: "no direct pushes to main", Scope: domain.ScopeLongTerm},
				{Type: domain.MemoryTypeRule, Category: "rules", Content: "never log raw tokens", Scope: domain.ScopeLongTerm},
			},
		},
		{
			name: "pattern and anti-pattern",
			text: "Pattern: repository per aggregate\nAnti-pattern: shared mutable globals",
			want: []domain.MemoryEntry{
				{Type: domain.MemoryTypePattern, Category: "patterns", Content: "repository per aggregate", Scope: domain.ScopeLongTerm},
				{Type: domain.MemoryTypeAntiPattern, Category: "patterns", Content: "shared mutable globals", Scope: domain.ScopeLongTerm},
			},
		},
		{
			name: "duplicates reported once",
			text: "Rule: pin versions\nRule: pin versions",
			want: []domain.MemoryEntry{{Type: domain.MemoryTypeRule, Category: "rules", Content: "pin versions", Scope: domain.ScopeLongTerm}},
		},
		{
			name: "no trigger",
			text: "Design a REST API for users",
			want: nil,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, ExtractTriggers(tc.text))
		})
	}
}

func TestMemoryServiceRememberStoresTriggers(t *testing.T) {
	t.Parallel()

	svc := newMemoryService(t)
	ctx := context.Background()

	stored := svc.Remember(ctx, "I prefer use snake_case for Python", "session:abc")
	require.Len(t, stored, 1)
	assert.Equal(t, domain.MemoryTypePreference, stored[0].Type)
	assert.Equal(t, []string{"session:abc"}, stored[0].Tags)

	results, err := svc.Recall(ctx, "snake_case", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, stored[0].ID, results[0].Entry.ID)
}
