package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

const (
	DefaultTimeout     = 10 * time.Minute
	DefaultParallelism = 4
	DefaultRecallLimit = 5

	installHint = "install the required CLI engine"
)

type EnvProvider interface {
	Env(ctx context.Context, engine domain.Engine) []string
}

type OrchestratorConfig struct {
	Preset      domain.Preset
	Timeout     time.Duration
	Parallelism int
	RecallLimit int
}

type AgentOutcome struct {
	Agent         domain.Agent
	Engine        domain.Engine
	Outcome       domain.Outcome
	Text          string
	Detail        string
	EngineMissing bool
	Invocation    domain.Invocation
}

type RunReport struct {
	Session     domain.Session
	Agents      []AgentOutcome
	Skipped     []domain.AgentID
	Remembered  []domain.MemoryEntry
	Text        string
	SummaryPath string
}

func (r RunReport) Degraded() bool {
	if len(r.Skipped) > 0 {
		return true
	}
	for _, a := range r.Agents {
		if a.Outcome != domain.OutcomeComplete {
			return true
		}
	}
	return false
}

type Orchestrator struct {
	router    *Router
	resolver  *PromptResolver
	registry  ports.AgentRegistry
	personas  ports.PersonaLoader
	workspace ports.Workspace
	engines   ports.EngineRunner
	memory    *MemoryService
	env       EnvProvider
	cfg       OrchestratorConfig
	logger    *zap.Logger
}

type OrchestratorDeps struct {
	Router    *Router
	Resolver  *PromptResolver
	Registry  ports.AgentRegistry
	Personas  ports.PersonaLoader
	Workspace ports.Workspace
	Engines   ports.EngineRunner
	Memory    *MemoryService
	Env       EnvProvider
	Logger    *zap.Logger
}

func NewOrchestrator(deps OrchestratorDeps, cfg OrchestratorConfig) *Orchestrator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.RecallLimit < 0 {
		cfg.RecallLimit = 0
	}
	if cfg.Preset.Teams == nil {
		cfg.Preset, _ = domain.LookupPreset(string(domain.PresetRecommended))
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		router:    deps.Router,
		resolver:  deps.Resolver,
		registry:  deps.Registry,
		personas:  deps.Personas,
		workspace: deps.Workspace,
		engines:   deps.Engines,
		memory:    deps.Memory,
		env:       deps.Env,
		cfg:       cfg,
		logger:    logger,
	}
}

type PlannedAgent struct {
	Agent   domain.Agent
	Persona domain.Persona
	Engine  domain.Engine
}

// Plan resolves the agents a task routes to and the engine each would use.
// Agents that cannot be resolved are returned as skipped.
func (o *Orchestrator) Plan(task string) ([]PlannedAgent, []domain.AgentID) {
	var (
		planned []PlannedAgent
		skipped []domain.AgentID
	)

	for _, id := range o.router.Route(task) {
		agent, ok := o.registry.Get(id)
		if !ok {
			o.logger.Warn("routed agent missing from table", zap.String("agent", string(id)))
			skipped = append(skipped, id)
			continue
		}

		path, err := o.resolver.Resolve(id)
		if err != nil {
			o.logger.Warn("prompt resolution failed", zap.String("agent", string(id)), zap.Error(err))
			skipped = append(skipped, id)
			continue
		}

		persona, err := o.personas.Load(agent, path)
		if err != nil {
			o.logger.Warn("persona unusable, using built-in prompt", zap.String("agent", string(id)), zap.Error(err))
			persona = domain.Persona{AgentID: agent.ID, Name: agent.Name, Path: path, Generated: true}
		}

		engine := persona.Engine
		if engine == "" {
			engine = o.cfg.Preset.EngineFor(agent.Team)
		}
		planned = append(planned, PlannedAgent{Agent: agent, Persona: persona, Engine: engine})
	}

	return planned, skipped
}

// Run routes task, invokes every matched agent in parallel and returns the
// consolidated answer. Individual agent failures degrade the answer; only a
// run where no agent resolves or no engine exists at all is an error.
func (o *Orchestrator) Run(ctx context.Context, task string) (RunReport, error) {
	planned, skipped := o.Plan(task)
	if len(planned) == 0 {
		return RunReport{Skipped: skipped}, fmt.Errorf("%w for task %q", domain.ErrNoAgentsResolved, task)
	}

	session, err := o.workspace.CreateSession(ctx, task)
	if err != nil {
		return RunReport{}, fmt.Errorf("create session: %w", err)
	}
	logger := o.logger.With(zap.String("session", session.ID))
	logger.Info("run started", zap.Int("agents", len(planned)), zap.Int("skipped", len(skipped)))

	invocations := make([]domain.Invocation, len(planned))
	for i, p := range planned {
		inv, err := o.workspace.RecordInvocation(ctx, session, p.Agent.ID, task)
		if err != nil {
			return RunReport{}, fmt.Errorf("record invocation %s: %w", p.Agent.ID, err)
		}
		invocations[i] = inv
		session.Invocations = append(session.Invocations, inv)
	}

	report := RunReport{Session: session, Skipped: skipped}
	report.Remembered = append(report.Remembered, o.rememberTask(ctx, session, task)...)
	memories := o.recall(ctx, task)

	outcomes := make([]AgentOutcome, len(planned))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.Parallelism)
	for i := range planned {
		i := i
		g.Go(func() error {
			outcomes[i] = o.invoke(gctx, planned[i], invocations[i], BuildPrompt(planned[i].Persona, planned[i].Agent, task, memories))
			return nil
		})
	}
	_ = g.Wait()

	report.Agents = outcomes
	for i, out := range outcomes {
		session.Invocations[i] = out.Invocation
		if out.Outcome == domain.OutcomeComplete && o.memory != nil {
			report.Remembered = append(report.Remembered, o.memory.Remember(ctx, out.Text, "session:"+session.ID, "agent:"+string(out.Agent.ID))...)
		}
	}
	report.Session = session

	if allEnginesMissing(outcomes) {
		logger.Error("no engine available", zap.Int("agents", len(outcomes)))
		return report, fmt.Errorf("%w: %s", domain.ErrNoEngineAvailable, installHint)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	report.Text = Synthesize(task, outcomes, skipped)
	if path, err := o.workspace.WriteSummary(ctx, session, report.Text); err != nil {
		logger.Warn("summary not written", zap.Error(err))
	} else {
		report.SummaryPath = path
	}

	logger.Info("run finished", zap.Bool("degraded", report.Degraded()))
	return report, nil
}

// invoke runs one agent. The engine runs in its own goroutine under a
// cancelable context while the caller waits on the workspace record, so a
// reader timeout can kill the process and record the failure itself.
func (o *Orchestrator) invoke(ctx context.Context, p PlannedAgent, inv domain.Invocation, prompt string) AgentOutcome {
	out := AgentOutcome{Agent: p.Agent, Engine: p.Engine, Invocation: inv}
	writeCtx := context.WithoutCancel(ctx)
	logger := o.logger.With(zap.String("session", inv.SessionID), zap.String("agent", string(p.Agent.ID)), zap.String("engine", string(p.Engine)))

	if err := o.engines.Available(p.Engine); err != nil {
		out.EngineMissing = errors.Is(err, domain.ErrEngineMissing)
		return o.fail(writeCtx, out, err.Error(), domain.OutcomeError, logger)
	}

	running, err := o.workspace.MarkRunning(ctx, inv, p.Engine)
	if err != nil {
		return o.fail(writeCtx, out, fmt.Sprintf("mark running: %v", err), domain.OutcomeError, logger)
	}
	out.Invocation = running

	var env []string
	if o.env != nil {
		env = o.env.Env(ctx, p.Engine)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		text, err := o.engines.Run(runCtx, ports.EngineRequest{Engine: p.Engine, Prompt: prompt, Env: env, Dir: running.Dir})
		if runCtx.Err() != nil {
			return
		}
		if err != nil {
			if _, ferr := o.workspace.Fail(writeCtx, running, err.Error()); ferr != nil {
				logger.Warn("record failure", zap.Error(ferr))
			}
			return
		}
		if _, cerr := o.workspace.Complete(writeCtx, running, text); cerr != nil {
			logger.Warn("record result", zap.Error(cerr))
		}
	}()

	res, err := o.workspace.ReadResult(ctx, running, o.cfg.Timeout)
	var timeoutErr *domain.InvocationTimeoutError
	switch {
	case errors.As(err, &timeoutErr):
		cancel()
		<-done
		logger.Warn("agent timed out", zap.Duration("timeout", o.cfg.Timeout))
		return o.failOrCollect(writeCtx, out, running, fmt.Sprintf("timed out after %s", o.cfg.Timeout), domain.OutcomeTimeout, logger)
	case err != nil:
		cancel()
		<-done
		return o.failOrCollect(writeCtx, out, running, fmt.Sprintf("aborted: %v", err), domain.OutcomeError, logger)
	}

	<-done
	out = collect(out, res)
	logger.Info("agent finished", zap.String("outcome", string(out.Outcome)))
	return out
}

func collect(out AgentOutcome, res domain.InvocationResult) AgentOutcome {
	out.Invocation = res.Invocation
	out.Outcome = res.Outcome
	if res.Outcome == domain.OutcomeComplete {
		out.Text = res.Text
	} else {
		out.Detail = res.Invocation.Detail
	}
	return out
}

// failOrCollect marks running as failed. When the engine beat the reader to a
// terminal status, that status is collected instead.
func (o *Orchestrator) failOrCollect(ctx context.Context, out AgentOutcome, running domain.Invocation, detail string, outcome domain.Outcome, logger *zap.Logger) AgentOutcome {
	out.Invocation = running
	failed, err := o.workspace.Fail(ctx, running, detail)
	switch {
	case err == nil:
		out.Invocation = failed
	case errors.Is(err, domain.ErrTerminalStatus):
		if res, rerr := o.workspace.ReadResult(ctx, running, time.Second); rerr == nil {
			return collect(out, res)
		}
	default:
		logger.Warn("record failure", zap.Error(err))
	}
	out.Outcome = outcome
	out.Detail = detail
	return out
}

func (o *Orchestrator) fail(ctx context.Context, out AgentOutcome, detail string, outcome domain.Outcome, logger *zap.Logger) AgentOutcome {
	failed, err := o.workspace.Fail(ctx, out.Invocation, detail)
	if err != nil {
		logger.Warn("record failure", zap.Error(err))
	} else {
		out.Invocation = failed
	}
	logger.Warn("agent unavailable", zap.String("detail", detail))
	out.Outcome = outcome
	out.Detail = detail
	return out
}

func (o *Orchestrator) rememberTask(ctx context.Context, session domain.Session, task string) []domain.MemoryEntry {
	if o.memory == nil {
		return nil
	}
	return o.memory.Remember(ctx, task, "session:"+session.ID)
}

func (o *Orchestrator) recall(ctx context.Context, task string) []domain.ScoredEntry {
	if o.memory == nil || o.cfg.RecallLimit == 0 {
		return nil
	}
	scope := domain.ScopeLongTerm
	found, err := o.memory.Recall(ctx, task, &scope)
	if err != nil {
		o.logger.Warn("memory recall failed", zap.Error(err))
		return nil
	}
	if len(found) > o.cfg.RecallLimit {
		found = found[:o.cfg.RecallLimit]
	}
	return found
}

func allEnginesMissing(outcomes []AgentOutcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	for _, out := range outcomes {
		if !out.EngineMissing {
			return false
		}
	}
	return true
}
