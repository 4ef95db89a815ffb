package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hivemind/internal/domain"
)

func TestStoreRejectsInvalidKeys(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	testCases := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "empty", key: "", wantErr: "credential key is empty"},
		{name: "whitespace", key: "   ", wantErr: "credential key is empty"},
		{name: "absolute", key: "/absolute/path", wantErr: "invalid credential key"},
		{name: "traversal", key: "../escape", wantErr: "invalid credential key"},
		{name: "deep traversal", key: "../../secret", wantErr: "invalid credential key"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := store.Put(context.Background(), tc.key, "value")
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestStorePutGetRoundTripAndPermissions(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store := NewStore(root)
	key := "engines/codex/api_key"

	require.NoError(t, store.Put(context.Background(), key, "sk-test\n"))

	got, err := store.Get(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, "sk-test", got)

	info, err := os.Stat(filepath.Join(root, key))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(secretFileMode), info.Mode().Perm())
}

func TestStoreGetMissingIsNotFound(t *testing.T) {
	t.Parallel()

	_, err := NewStore(t.TempDir()).Get(context.Background(), "engines/claude/api_key")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestStoreDeleteIsIdempotentWhenCredentialMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	key := "engines/codex/api_key"

	require.NoError(t, store.Put(context.Background(), key, "sk-test"))
	require.NoError(t, store.Delete(context.Background(), key))
	require.NoError(t, store.Delete(context.Background(), key))

	_, err := store.Get(context.Background(), key)
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}
