package ports

import (
	"context"
	"time"

	"github.com/bnema/hivemind/internal/domain"
)

type Workspace interface {
	CreateSession(ctx context.Context, task string) (domain.Session, error)
	RecordInvocation(ctx context.Context, session domain.Session, agentID domain.AgentID, task string) (domain.Invocation, error)
	MarkRunning(ctx context.Context, inv domain.Invocation, engine domain.Engine) (domain.Invocation, error)
	Complete(ctx context.Context, inv domain.Invocation, result string) (domain.Invocation, error)
	Fail(ctx context.Context, inv domain.Invocation, detail string) (domain.Invocation, error)
	ReadResult(ctx context.Context, inv domain.Invocation, timeout time.Duration) (domain.InvocationResult, error)
	WriteSummary(ctx context.Context, session domain.Session, text string) (string, error)
	LoadSession(ctx context.Context, id string) (domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)
	RemoveSession(ctx context.Context, id string) error
}
