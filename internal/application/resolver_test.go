package application

import (
	"path/filepath"
	"testing"

	"github.com/bnema/hivemind/internal/adapters/registry"
	"github.com/bnema/hivemind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromptResolverResolve(t *testing.T) {
	t.Parallel()

	reg, err := registry.Default()
	require.NoError(t, err)

	root := t.TempDir()
	resolver := NewPromptResolver(reg, root)

	path, err := resolver.Resolve("SEC-003")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sec", "SEC-003-compliance-officer.md"), path)

	_, err = resolver.Resolve("OPS-001")
	var unknown *domain.UnknownAgentError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, domain.AgentID("OPS-001"), unknown.ID)
	assert.ErrorIs(t, err, domain.ErrUnknownAgent)
}
