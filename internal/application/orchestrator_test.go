package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/hivemind/internal/adapters/persona"
	"github.com/bnema/hivemind/internal/adapters/registry"
	"github.com/bnema/hivemind/internal/adapters/workspace"
	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
	portmocks "github.com/bnema/hivemind/internal/ports/mocks"
)

const paymentTask = "Build a secure payment API"

type orchestratorFixture struct {
	orchestrator *Orchestrator
	workspace    *workspace.Manager
	memory       *MemoryService
	engines      *portmocks.MockEngineRunner
}

func newOrchestratorFixture(t *testing.T, reg ports.AgentRegistry, timeout time.Duration) orchestratorFixture {
	t.Helper()

	full, err := registry.Default()
	require.NoError(t, err)
	if reg == nil {
		reg = full
	}

	ws := workspace.NewManager(t.TempDir(), workspace.WithPollInterval(10*time.Millisecond))
	memory := newMemoryService(t)
	engines := portmocks.NewMockEngineRunner(t)
	preset, err := domain.LookupPreset("recommended")
	require.NoError(t, err)

	orch := NewOrchestrator(OrchestratorDeps{
		Router:    NewRouter(full.All(), []domain.AgentID{DefaultAgentID}),
		Resolver:  NewPromptResolver(reg, t.TempDir()),
		Registry:  reg,
		Personas:  persona.NewLoader(),
		Workspace: ws,
		Engines:   engines,
		Memory:    memory,
	}, OrchestratorConfig{Preset: preset, Timeout: timeout, Parallelism: 2, RecallLimit: 3})

	return orchestratorFixture{orchestrator: orch, workspace: ws, memory: memory, engines: engines}
}

// personaHeader returns the "# Name (ID)" line the generated persona starts with.
func personaHeader(prompt string) string {
	line, _, _ := strings.Cut(prompt, "\n")
	return strings.TrimPrefix(line, "# ")
}

func TestOrchestratorRunConsolidatesInRouteOrder(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture(t, nil, 5*time.Second)
	fx.engines.EXPECT().Available(mock.Anything).Return(nil)
	fx.engines.EXPECT().Run(mock.Anything, mock.Anything).RunAndReturn(func(_ context.Context, req ports.EngineRequest) (string, error) {
		return fmt.Sprintf("advice from %s via %s", personaHeader(req.Prompt), req.Engine), nil
	})

	report, err := fx.orchestrator.Run(context.Background(), paymentTask)
	require.NoError(t, err)
	assert.False(t, report.Degraded())

	require.Len(t, report.Agents, 4)
	wantOrder := []domain.AgentID{"DEV-001", "SEC-001", "SEC-003", "QA-002"}
	for i, out := range report.Agents {
		assert.Equal(t, wantOrder[i], out.Agent.ID)
		assert.Equal(t, domain.OutcomeComplete, out.Outcome)
		assert.Equal(t, domain.StatusComplete, out.Invocation.Status)
	}
	assert.Equal(t, domain.EngineCodex, report.Agents[0].Engine)
	assert.Equal(t, domain.EngineClaude, report.Agents[1].Engine)

	devAt := strings.Index(report.Text, "advice from Solution Architect (DEV-001) via codex")
	qaAt := strings.Index(report.Text, "(QA-002) via claude")
	require.GreaterOrEqual(t, devAt, 0)
	require.GreaterOrEqual(t, qaAt, 0)
	assert.Less(t, devAt, qaAt)
	assert.NotContains(t, report.Text, "unavailable")
	assert.FileExists(t, report.SummaryPath)

	loaded, err := fx.workspace.LoadSession(context.Background(), report.Session.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Counts()[domain.StatusComplete])
}

func TestOrchestratorTimeoutKeepsOtherResults(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture(t, nil, 200*time.Millisecond)
	fx.engines.EXPECT().Available(mock.Anything).Return(nil)
	fx.engines.EXPECT().Run(mock.Anything, mock.Anything).RunAndReturn(func(ctx context.Context, req ports.EngineRequest) (string, error) {
		if req.Engine == domain.EngineCodex {
			return "use idempotency keys on every charge", nil
		}
		<-ctx.Done()
		return "", ctx.Err()
	})

	report, err := fx.orchestrator.Run(context.Background(), paymentTask)
	require.NoError(t, err)
	assert.True(t, report.Degraded())

	require.Len(t, report.Agents, 4)
	assert.Equal(t, domain.OutcomeComplete, report.Agents[0].Outcome)
	for _, out := range report.Agents[1:] {
		assert.Equal(t, domain.OutcomeTimeout, out.Outcome, out.Agent.ID)
		assert.Equal(t, domain.StatusError, out.Invocation.Status)
		assert.Contains(t, out.Detail, "timed out after 200ms")
	}

	assert.Contains(t, report.Text, "use idempotency keys on every charge")
	assert.Contains(t, report.Text, "Some expertise was unavailable")
	assert.Contains(t, report.Text, "SEC-001")

	loaded, err := fx.workspace.LoadSession(context.Background(), report.Session.ID)
	require.NoError(t, err)
	counts := loaded.Counts()
	assert.Equal(t, 1, counts[domain.StatusComplete])
	assert.Equal(t, 3, counts[domain.StatusError])
}

func TestOrchestratorEngineErrorDegradesAnswer(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture(t, nil, 5*time.Second)
	fx.engines.EXPECT().Available(mock.Anything).Return(nil)
	fx.engines.EXPECT().Run(mock.Anything, mock.Anything).RunAndReturn(func(_ context.Context, req ports.EngineRequest) (string, error) {
		if req.Engine == domain.EngineClaude {
			return "", errors.New("claude: rate limited")
		}
		return "split the service by bounded context", nil
	})

	report, err := fx.orchestrator.Run(context.Background(), paymentTask)
	require.NoError(t, err)
	assert.True(t, report.Degraded())
	assert.Equal(t, domain.OutcomeError, report.Agents[1].Outcome)
	assert.Contains(t, report.Agents[1].Detail, "rate limited")
	assert.Contains(t, report.Text, "split the service by bounded context")
}

func TestOrchestratorAllEnginesMissing(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture(t, nil, time.Second)
	fx.engines.EXPECT().Available(mock.Anything).RunAndReturn(func(engine domain.Engine) error {
		return &domain.ExternalEngineMissingError{Engine: engine, Binary: string(engine)}
	})

	report, err := fx.orchestrator.Run(context.Background(), paymentTask)
	require.ErrorIs(t, err, domain.ErrNoEngineAvailable)
	assert.Contains(t, err.Error(), installHint)

	require.Len(t, report.Agents, 4)
	for _, out := range report.Agents {
		assert.True(t, out.EngineMissing)
		assert.Equal(t, domain.StatusError, out.Invocation.Status)
	}
	fx.engines.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestOrchestratorNoResolvableAgents(t *testing.T) {
	t.Parallel()

	small, err := registry.Parse([]byte(`
version = 1

[[agents]]
id = "QA-001"
team = "QA"
name = "Test Engineer"
keywords = ["flaky"]
prompt = "qa/QA-001.md"
`))
	require.NoError(t, err)

	fx := newOrchestratorFixture(t, small, time.Second)

	report, err := fx.orchestrator.Run(context.Background(), "xyzzy-no-match-token")
	require.ErrorIs(t, err, domain.ErrNoAgentsResolved)
	assert.Equal(t, []domain.AgentID{DefaultAgentID}, report.Skipped)
}

func TestOrchestratorRemembersTriggersAndRecallsThem(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture(t, nil, 5*time.Second)
	ctx := context.Background()
	_, err := fx.memory.Store(ctx, domain.MemoryTypePreference, "style", "prefer REST over gRPC for public APIs", nil, domain.ScopeLongTerm)
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		prompts []string
	)
	fx.engines.EXPECT().Available(mock.Anything).Return(nil)
	fx.engines.EXPECT().Run(mock.Anything, mock.Anything).RunAndReturn(func(_ context.Context, req ports.EngineRequest) (string, error) {
		mu.Lock()
		prompts = append(prompts, req.Prompt)
		mu.Unlock()
		return "Decision: version the REST API under /v1", nil
	})

	report, err := fx.orchestrator.Run(ctx, "Design a REST API for users")
	require.NoError(t, err)

	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "## Relevant memory\n- [preference] prefer REST over gRPC for public APIs")
	assert.True(t, strings.HasSuffix(prompts[0], "## Task\nDesign a REST API for users\n"))

	require.Len(t, report.Remembered, 1)
	remembered := report.Remembered[0]
	assert.Equal(t, domain.MemoryTypeDecision, remembered.Type)
	assert.Contains(t, remembered.Tags, "session:"+strings.ToLower(report.Session.ID))
	assert.Contains(t, remembered.Tags, "agent:dev-001")

	found, err := fx.memory.Recall(ctx, "/v1", nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestOrchestratorPlanHonoursPersonaEngine(t *testing.T) {
	t.Parallel()

	fx := newOrchestratorFixture(t, nil, time.Second)
	planned, skipped := fx.orchestrator.Plan(paymentTask)
	assert.Empty(t, skipped)
	require.Len(t, planned, 4)
	for _, p := range planned {
		assert.True(t, p.Persona.Generated)
		assert.Equal(t, fx.orchestrator.cfg.Preset.EngineFor(p.Agent.Team), p.Engine)
	}
}
