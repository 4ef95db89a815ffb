package application

import (
	"testing"

	"github.com/bnema/hivemind/internal/adapters/registry"
	"github.com/bnema/hivemind/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRouter(t *testing.T) *Router {
	t.Helper()
	reg, err := registry.Default()
	require.NoError(t, err)
	return NewRouter(reg.All(), []domain.AgentID{DefaultAgentID})
}

func TestRoutePinnedScenarios(t *testing.T) {
	t.Parallel()

	router := defaultRouter(t)
	tests := []struct {
		name string
		task string
		want []domain.AgentID
	}{
		{name: "rest api design goes to the architect", task: "Design a REST API for users", want: []domain.AgentID{"DEV-001"}},
		{name: "secure payment api spans three teams", task: "Build a secure payment API", want: []domain.AgentID{"DEV-001", "SEC-001", "SEC-003", "QA-002"}},
		{name: "more hits rank first", task: "Set up kubernetes monitoring and metrics, then fix a flaky test", want: []domain.AgentID{"INF-004", "INF-003", "QA-001", "QA-006"}},
		{name: "case insensitive", task: "DOCKER", want: []domain.AgentID{"INF-003"}},
		{name: "empty task falls back", task: "", want: []domain.AgentID{"DEV-001"}},
		{name: "whitespace task falls back", task: "   \n", want: []domain.AgentID{"DEV-001"}},
		{name: "no keyword falls back", task: "xyzzy-no-match-token", want: []domain.AgentID{"DEV-001"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tc.want, router.Route(tc.task)); diff != "" {
				t.Errorf("Route(%q) mismatch (-want +got):\n%s", tc.task, diff)
			}
		})
	}
}

func TestRouteMultiTeamTaskContainsEveryTeam(t *testing.T) {
	t.Parallel()

	router := defaultRouter(t)
	teams := map[domain.Team]bool{}
	for _, id := range router.Route("Build a secure payment API") {
		teams[id.TeamOf()] = true
	}

	assert.True(t, teams[domain.TeamDEV])
	assert.True(t, teams[domain.TeamSEC])
	assert.True(t, teams[domain.TeamQA])
}

func TestRouteTieBreaksOnDeclarationOrder(t *testing.T) {
	t.Parallel()

	agents := []domain.Agent{
		{ID: "QA-001", Team: domain.TeamQA, Keywords: []string{"alpha"}},
		{ID: "DEV-001", Team: domain.TeamDEV, Keywords: []string{"alpha"}},
		{ID: "SEC-001", Team: domain.TeamSEC, Keywords: []string{"alpha", "beta"}},
	}
	router := NewRouter(agents, nil)

	assert.Equal(t, []domain.AgentID{"SEC-001", "QA-001", "DEV-001"}, router.Route("alpha beta"))
}

func TestExplainReportsMatchedKeywords(t *testing.T) {
	t.Parallel()

	matches := defaultRouter(t).Explain("Design a REST API for users")
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"design", "api", "rest"}, matches[0].Keywords)

	assert.Nil(t, defaultRouter(t).Explain("nothing relevant here"))
}

func TestNewRouterDefaults(t *testing.T) {
	t.Parallel()

	reg, err := registry.Default()
	require.NoError(t, err)

	configured := NewRouter(reg.All(), []domain.AgentID{"qa-001", "NOPE-404"})
	assert.Equal(t, []domain.AgentID{"QA-001"}, configured.Route(""))

	fallback := NewRouter(reg.All(), []domain.AgentID{"NOPE-404"})
	assert.Equal(t, []domain.AgentID{DefaultAgentID}, fallback.Defaults())

	empty := NewRouter(nil, nil)
	assert.Empty(t, empty.Route("anything"))
}
