package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

const resultReadTimeout = time.Second

var errArchiveUnavailable = errors.New("session archive is not configured")

type ArchiveReport struct {
	Archived []string
	// Old enough, but invocations are still pending or running.
	Active []string
}

type ArchiveService struct {
	workspace ports.Workspace
	archive   ports.SessionArchive
	clock     ports.Clock
	logger    *zap.Logger
}

func NewArchiveService(workspace ports.Workspace, archive ports.SessionArchive, clock ports.Clock, logger *zap.Logger) *ArchiveService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchiveService{workspace: workspace, archive: archive, clock: clock, logger: logger}
}

// ArchiveOlderThan archives every session created more than age ago whose
// invocations are all terminal, then removes it from the workspace.
func (s *ArchiveService) ArchiveOlderThan(ctx context.Context, age time.Duration) (ArchiveReport, error) {
	if s.archive == nil {
		return ArchiveReport{}, errArchiveUnavailable
	}
	if age < 0 {
		return ArchiveReport{}, fmt.Errorf("archive age must not be negative, got %s", age)
	}

	sessions, err := s.workspace.ListSessions(ctx)
	if err != nil {
		return ArchiveReport{}, fmt.Errorf("list sessions: %w", err)
	}

	now := s.clock.Now()
	cutoff := now.Add(-age)

	var report ArchiveReport
	for _, session := range sessions {
		if session.CreatedAt.After(cutoff) {
			continue
		}
		if !finished(session) {
			report.Active = append(report.Active, session.ID)
			continue
		}

		results := make(map[domain.AgentID]string, len(session.Invocations))
		for _, inv := range session.Invocations {
			res, err := s.workspace.ReadResult(ctx, inv, resultReadTimeout)
			if err != nil {
				return report, fmt.Errorf("read result %s/%s: %w", session.ID, inv.AgentID, err)
			}
			results[inv.AgentID] = res.Text
		}

		if err := s.archive.Put(ctx, session, results, now); err != nil {
			return report, err
		}
		if err := s.workspace.RemoveSession(ctx, session.ID); err != nil {
			return report, fmt.Errorf("remove archived session %s: %w", session.ID, err)
		}
		s.logger.Info("session archived", zap.String("session", session.ID), zap.Int("invocations", len(session.Invocations)))
		report.Archived = append(report.Archived, session.ID)
	}

	return report, nil
}

func (s *ArchiveService) List(ctx context.Context, limit int) ([]ports.ArchivedSession, error) {
	if s.archive == nil {
		return nil, errArchiveUnavailable
	}
	return s.archive.List(ctx, limit)
}

func finished(session domain.Session) bool {
	for _, inv := range session.Invocations {
		if !inv.Status.Terminal() {
			return false
		}
	}
	return true
}
