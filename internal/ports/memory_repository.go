package ports

import (
	"context"

	"github.com/bnema/hivemind/internal/domain"
)

type MemoryRepository interface {
	// Append stores entry in its (scope, category) file and returns it with the
	// CreatedAt actually persisted.
	Append(ctx context.Context, entry domain.MemoryEntry) (domain.MemoryEntry, error)
	// List returns every entry of the given scopes; no scopes means all of them.
	List(ctx context.Context, scopes ...domain.MemoryScope) ([]domain.StoredEntry, error)
	Remove(ctx context.Context, id string) (bool, error)
	ScaleWeight(ctx context.Context, id string, factor, floor, ceiling float64) (float64, bool, error)
	Stats(ctx context.Context) ([]domain.CategoryStats, error)
}
