package ports

import (
	"context"
	"time"

	"github.com/bnema/hivemind/internal/domain"
)

type ArchivedSession struct {
	ID          string
	Task        string
	CreatedAt   time.Time
	ArchivedAt  time.Time
	Invocations int
	Failed      int
}

type SessionArchive interface {
	Put(ctx context.Context, session domain.Session, results map[domain.AgentID]string, archivedAt time.Time) error
	List(ctx context.Context, limit int) ([]ArchivedSession, error)
	Count(ctx context.Context) (int, error)
	Close() error
}
