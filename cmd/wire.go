package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/bnema/hivemind/internal/adapters/archive/sqlite"
	"github.com/bnema/hivemind/internal/adapters/credentials/chain"
	engineexec "github.com/bnema/hivemind/internal/adapters/engine/exec"
	"github.com/bnema/hivemind/internal/adapters/persona"
	"github.com/bnema/hivemind/internal/adapters/registry"
	"github.com/bnema/hivemind/internal/adapters/render"
	"github.com/bnema/hivemind/internal/adapters/repo/jsonfile"
	"github.com/bnema/hivemind/internal/adapters/workspace"
	"github.com/bnema/hivemind/internal/application"
	"github.com/bnema/hivemind/internal/config"
	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/logging"
	"github.com/bnema/hivemind/internal/ports"
)

type app struct {
	cfg          config.Config
	preset       domain.Preset
	logger       *zap.Logger
	registry     *registry.Registry
	router       *application.Router
	resolver     *application.PromptResolver
	memory       *application.MemoryService
	workspace    *workspace.Manager
	engines      ports.EngineRunner
	credentials  *application.CredentialService
	orchestrator *application.Orchestrator
	statusRender func(application.StatusReport, render.RenderOptions) (string, error)
	archive      *sqlite.Store
	now          func() time.Time
}

func wireApp(opts *rootOptions) (*app, error) {
	home, err := config.ResolveHome()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(home, viper.New())
	if err != nil {
		return nil, err
	}
	preset, err := domain.LookupPreset(string(cfg.Preset))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	logger, err := logging.New(logging.Options{Dir: cfg.Paths.Logs, Verbose: opts.verbose})
	if err != nil {
		return nil, fmt.Errorf("wire logger: %w", err)
	}

	reg, err := registry.Load(cfg.AgentTable)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalid, err)
	}

	defaults := make([]domain.AgentID, 0, len(cfg.DefaultAgents))
	for _, id := range cfg.DefaultAgents {
		defaults = append(defaults, domain.AgentID(id))
	}

	credentialStore, err := chain.NewPassFirstWithFileFallback(cfg.PassPrefix, cfg.Paths.Credentials)
	if err != nil {
		return nil, fmt.Errorf("wire credential store chain: %w", err)
	}

	engines := map[domain.Engine]engineexec.EngineConfig{}
	for engine, settings := range cfg.Engines {
		engines[engine] = engineexec.EngineConfig{Binary: settings.Binary, Args: settings.Args}
	}

	a := &app{
		cfg:          cfg,
		preset:       preset,
		logger:       logger,
		registry:     reg,
		router:       application.NewRouter(reg.All(), defaults),
		resolver:     application.NewPromptResolver(reg, cfg.Paths.Agents),
		memory:       application.NewMemoryService(jsonfile.NewRepository(cfg.Paths.Memory, logger.Named("memory")), ports.SystemClock{}, logger.Named("memory")),
		workspace:    workspace.NewManager(cfg.Paths.Workspace, workspace.WithPollInterval(cfg.PollInterval), workspace.WithLogger(logger.Named("workspace"))),
		engines:      engineexec.NewRunner(engines, engineexec.WithWaitDelay(cfg.KillGrace), engineexec.WithLogger(logger.Named("engine"))),
		credentials:  application.NewCredentialService(credentialStore, logger.Named("credentials")),
		statusRender: render.Status,
		now:          time.Now,
	}

	a.orchestrator = application.NewOrchestrator(application.OrchestratorDeps{
		Router:    a.router,
		Resolver:  a.resolver,
		Registry:  reg,
		Personas:  persona.NewLoader(),
		Workspace: a.workspace,
		Engines:   a.engines,
		Memory:    a.memory,
		Env:       a.credentials,
		Logger:    logger.Named("orchestrator"),
	}, application.OrchestratorConfig{
		Preset:      preset,
		Timeout:     cfg.Timeout,
		Parallelism: cfg.Parallelism,
		RecallLimit: cfg.RecallLimit,
	})

	return a, nil
}

// sessionArchive opens the archive database on first use.
func (a *app) sessionArchive() (*sqlite.Store, error) {
	if a.archive != nil {
		return a.archive, nil
	}
	store, err := sqlite.Open(a.cfg.Paths.Archive)
	if err != nil {
		return nil, err
	}
	a.archive = store
	return store, nil
}

func (a *app) statusService() *application.StatusService {
	deps := application.StatusDeps{
		Preset:    a.preset,
		Registry:  a.registry,
		Engines:   a.engines,
		Keys:      a.credentials,
		Memory:    a.memory,
		Workspace: a.workspace,
		Logger:    a.logger,
	}
	if store, err := a.sessionArchive(); err != nil {
		a.logger.Warn("archive unavailable", zap.Error(err))
	} else {
		deps.Archive = store
	}
	return application.NewStatusService(deps)
}

func (a *app) archiveService() (*application.ArchiveService, error) {
	store, err := a.sessionArchive()
	if err != nil {
		return nil, err
	}
	return application.NewArchiveService(a.workspace, store, ports.SystemClock{}, a.logger.Named("archive")), nil
}

func (a *app) Close() error {
	var err error
	if a.archive != nil {
		err = a.archive.Close()
		a.archive = nil
	}
	_ = a.logger.Sync()
	return err
}
