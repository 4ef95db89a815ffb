package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

type KeySourcer interface {
	Source(ctx context.Context, engine domain.Engine) string
}

type EngineStatus struct {
	Engine    domain.Engine
	Available bool
	Detail    string
	KeySource string
	Teams     []domain.Team
}

type SessionStatus struct {
	Total   int
	Recent  []domain.Session
	Running int
	Failed  int
}

type StatusReport struct {
	Preset   domain.PresetName
	Agents   int
	Engines  []EngineStatus
	Memory   []domain.CategoryStats
	Memories int
	Sessions SessionStatus
	Archived int
}

type StatusService struct {
	preset    domain.Preset
	registry  ports.AgentRegistry
	engines   ports.EngineRunner
	keys      KeySourcer
	memory    *MemoryService
	workspace ports.Workspace
	archive   ports.SessionArchive
	logger    *zap.Logger
}

type StatusDeps struct {
	Preset    domain.Preset
	Registry  ports.AgentRegistry
	Engines   ports.EngineRunner
	Keys      KeySourcer
	Memory    *MemoryService
	Workspace ports.Workspace
	Archive   ports.SessionArchive
	Logger    *zap.Logger
}

const recentSessions = 5

func NewStatusService(deps StatusDeps) *StatusService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusService{
		preset:    deps.Preset,
		registry:  deps.Registry,
		engines:   deps.Engines,
		keys:      deps.Keys,
		memory:    deps.Memory,
		workspace: deps.Workspace,
		archive:   deps.Archive,
		logger:    logger,
	}
}

// Status collects the report. A broken archive only zeroes its count; memory
// and workspace errors are returned.
func (s *StatusService) Status(ctx context.Context) (StatusReport, error) {
	report := StatusReport{Preset: s.preset.Name}
	if s.registry != nil {
		report.Agents = len(s.registry.All())
	}

	for _, engine := range []domain.Engine{domain.EngineCodex, domain.EngineClaude} {
		status := EngineStatus{Engine: engine, Available: true}
		for _, team := range domain.Teams {
			if s.preset.EngineFor(team) == engine {
				status.Teams = append(status.Teams, team)
			}
		}
		if err := s.engines.Available(engine); err != nil {
			status.Available = false
			status.Detail = err.Error()
		}
		if s.keys != nil {
			status.KeySource = s.keys.Source(ctx, engine)
		}
		report.Engines = append(report.Engines, status)
	}

	stats, err := s.memory.Stats(ctx)
	if err != nil {
		return StatusReport{}, fmt.Errorf("memory stats: %w", err)
	}
	report.Memory = stats
	for _, st := range stats {
		report.Memories += st.Entries
	}

	sessions, err := s.workspace.ListSessions(ctx)
	if err != nil {
		return StatusReport{}, fmt.Errorf("list sessions: %w", err)
	}
	report.Sessions.Total = len(sessions)
	for i, session := range sessions {
		if i < recentSessions {
			report.Sessions.Recent = append(report.Sessions.Recent, session)
		}
		counts := session.Counts()
		report.Sessions.Running += counts[domain.StatusRunning] + counts[domain.StatusPending]
		report.Sessions.Failed += counts[domain.StatusError]
	}

	if s.archive != nil {
		n, err := s.archive.Count(ctx)
		if err != nil {
			s.logger.Warn("archive count failed", zap.Error(err))
		} else {
			report.Archived = n
		}
	}

	return report, nil
}

func (r StatusReport) EngineReady() bool {
	for _, e := range r.Engines {
		if e.Available {
			return true
		}
	}
	return false
}

func (r StatusReport) MissingEngines() []domain.Engine {
	var missing []domain.Engine
	for _, e := range r.Engines {
		if !e.Available {
			missing = append(missing, e.Engine)
		}
	}
	return missing
}
