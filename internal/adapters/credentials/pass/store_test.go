package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hivemind/internal/domain"
)

func TestStorePutUsesPassInsertUnderPrefix(t *testing.T) {
	t.Parallel()

	called := false
	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			called = true
			assert.Equal(t, []string{"insert", "-m", "-f", "hivemind/engines/codex/api_key"}, args)
			assert.Equal(t, "sk-test\n", input)
			return "", "", nil
		},
	}

	require.NoError(t, store.Put(context.Background(), "engines/codex/api_key", "sk-test"))
	assert.True(t, called)
}

func TestStoreGetKeepsFirstLine(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: "team",
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"show", "team/engines/claude/api_key"}, args)
			assert.Empty(t, input)
			return "sk-ant-test\r\nurl: https://console.anthropic.com\n", "", nil
		},
	}

	value, err := store.Get(context.Background(), "engines/claude/api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test", value)
}

func TestStoreGetMapsMissingEntry(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "Error: hivemind/engines/codex/api_key is not in the password store.", errors.New("exit status 1")
		},
	}

	_, err := store.Get(context.Background(), "engines/codex/api_key")
	assert.ErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestStoreDeleteUsesPassRemove(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			assert.Equal(t, []string{"rm", "-f", "hivemind/engines/codex/api_key"}, args)
			return "", "", nil
		},
	}

	require.NoError(t, store.Delete(context.Background(), "engines/codex/api_key"))
}

func TestStoreGetReturnsClearError(t *testing.T) {
	t.Parallel()

	store := &Store{
		prefix: DefaultPrefix,
		run: func(ctx context.Context, input string, args ...string) (string, string, error) {
			return "", "gpg: decryption failed: No secret key", errors.New("exit status 2")
		},
	}

	_, err := store.Get(context.Background(), "engines/codex/api_key")
	require.Error(t, err)
	assert.ErrorContains(t, err, "pass get")
	assert.ErrorContains(t, err, "hivemind/engines/codex/api_key")
	assert.ErrorContains(t, err, "decryption failed")
	assert.NotErrorIs(t, err, domain.ErrCredentialNotFound)
}

func TestNewStoreDefaultsPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultPrefix, NewStore("  ").prefix)
}
