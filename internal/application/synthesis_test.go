package application

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bnema/hivemind/internal/domain"
)

var (
	architect = domain.Agent{ID: "DEV-001", Team: domain.TeamDEV, Name: "Solution Architect"}
	auditor   = domain.Agent{ID: "SEC-001", Team: domain.TeamSEC, Name: "Security Auditor"}
	tester    = domain.Agent{ID: "QA-002", Team: domain.TeamQA, Name: "Test Engineer"}
)

func TestBuildPrompt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		persona  domain.Persona
		memories []domain.ScoredEntry
		want     string
	}{
		{
			name:    "persona body and task",
			persona: domain.Persona{Body: "# Architect\n\nDesign things.\n"},
			want:    "# Architect\n\nDesign things.\n\n## Task\nship it\n",
		},
		{
			name:    "empty persona falls back to name",
			persona: domain.Persona{},
			want:    "You are the Solution Architect (DEV-001).\n\n## Task\nship it\n",
		},
		{
			name:    "recalled memory sits before the task",
			persona: domain.Persona{Body: "Persona."},
			memories: []domain.ScoredEntry{
				{Entry: domain.MemoryEntry{Type: domain.MemoryTypeRule, Content: "never store card numbers"}},
				{Entry: domain.MemoryEntry{Type: domain.MemoryTypeFact, Content: "billing runs on Postgres"}},
			},
			want: "Persona.\n\n## Relevant memory\n- [rule] never store card numbers\n- [fact] billing runs on Postgres\n\n## Task\nship it\n",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, BuildPrompt(tc.persona, architect, "  ship it \n", tc.memories))
		})
	}
}

func TestSynthesizeSingleAnswer(t *testing.T) {
	t.Parallel()

	got := Synthesize("design", []AgentOutcome{
		{Agent: architect, Outcome: domain.OutcomeComplete, Text: "Use REST.\n"},
	}, nil)

	assert.Equal(t, "I looked at this as the solution architect (DEV-001).\n\n## Solution Architect\n\nUse REST.\n", got)
}

func TestSynthesizeListsUnavailableExpertise(t *testing.T) {
	t.Parallel()

	got := Synthesize("pay", []AgentOutcome{
		{Agent: architect, Outcome: domain.OutcomeComplete, Text: "Gateway first."},
		{Agent: auditor, Outcome: domain.OutcomeTimeout, Detail: "timed out after 1s"},
		{Agent: tester, Outcome: domain.OutcomeError, Detail: "engine claude: binary \"claude\" not found on PATH", EngineMissing: true},
	}, []domain.AgentID{"INF-009"})

	assert.Contains(t, got, "I looked at this as the solution architect (DEV-001).\n")
	assert.Contains(t, got, "\n---\n\nSome expertise was unavailable for this answer:\n\n")
	assert.Contains(t, got, "- Security Auditor (SEC-001): timed out after 1s\n")
	assert.Contains(t, got, "- Test Engineer (QA-002): engine claude: binary \"claude\" not found on PATH (install the required CLI engine)\n")
	assert.Contains(t, got, "- INF-009: could not be resolved\n")
	assert.NotContains(t, got, "## Security Auditor")
}

func TestSynthesizeManyAndNone(t *testing.T) {
	t.Parallel()

	many := Synthesize("pay", []AgentOutcome{
		{Agent: architect, Outcome: domain.OutcomeComplete, Text: "a"},
		{Agent: auditor, Outcome: domain.OutcomeComplete, Text: "b"},
		{Agent: tester, Outcome: domain.OutcomeComplete, Text: "c"},
	}, nil)
	assert.Contains(t, many, "I looked at this from 3 angles: the solution architect (DEV-001), the security auditor (SEC-001) and the test engineer (QA-002).\n")
	assert.NotContains(t, many, "unavailable")

	none := Synthesize(" pay ", []AgentOutcome{
		{Agent: architect, Outcome: domain.OutcomeComplete, Text: "   "},
	}, nil)
	assert.Contains(t, none, "I could not get an answer for \"pay\" from any specialist.\n")
	assert.Contains(t, none, "- Solution Architect (DEV-001): no answer\n")
}
