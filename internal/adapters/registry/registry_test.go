package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/hivemind/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableHasSixAgentsPerTeam(t *testing.T) {
	t.Parallel()

	reg, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Version())

	perTeam := map[domain.Team]int{}
	for _, agent := range reg.All() {
		perTeam[agent.Team]++
	}
	assert.Len(t, reg.All(), 24)
	for _, team := range domain.Teams {
		assert.Equal(t, 6, perTeam[team], "team %s", team)
	}
}

func TestGetIsCaseInsensitiveAndReturnsCopies(t *testing.T) {
	t.Parallel()

	reg, err := Default()
	require.NoError(t, err)

	agent, ok := reg.Get("dev-001")
	require.True(t, ok)
	assert.Equal(t, domain.AgentID("DEV-001"), agent.ID)
	assert.Equal(t, "dev/DEV-001-solution-architect.md", agent.PromptPath)

	agent.Keywords[0] = "mutated"
	again, _ := reg.Get("DEV-001")
	assert.NotEqual(t, "mutated", again.Keywords[0])

	_, ok = reg.Get("OPS-001")
	assert.False(t, ok)
}

func TestParseRejectsInvalidTables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		table   string
		wantErr string
	}{
		{name: "missing version", table: "[[agents]]\nid = \"DEV-001\"\n", wantErr: "no version"},
		{name: "future version", table: "version = 9\n", wantErr: "unsupported agent table version 9"},
		{name: "empty", table: "version = 1\n", wantErr: "agent table is empty"},
		{
			name:    "duplicate id",
			table:   "version = 1\n" + agentBlock("DEV-001") + agentBlock("DEV-001"),
			wantErr: "duplicate agent id DEV-001",
		},
		{
			name:    "team mismatch",
			table:   "version = 1\n[[agents]]\nid = \"SEC-001\"\nteam = \"DEV\"\nname = \"x\"\nkeywords = [\"a\"]\nprompt = \"p.md\"\n",
			wantErr: "id prefix does not match team",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tc.table))
			require.Error(t, err)
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestLoadOverrideTable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "agents.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 1\n"+agentBlock("DEV-001")), 0o644))

	reg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, reg.All(), 1)
	assert.Equal(t, []string{"api", "rest"}, reg.All()[0].Keywords)
}

func agentBlock(id string) string {
	return "[[agents]]\nid = \"" + id + "\"\nteam = \"DEV\"\nname = \"Architect\"\nkeywords = [\"API\", \" rest \", \"\"]\nprompt = \"dev/" + id + ".md\"\n"
}
