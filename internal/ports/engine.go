package ports

import (
	"context"

	"github.com/bnema/hivemind/internal/domain"
)

type EngineRequest struct {
	Engine domain.Engine
	Prompt string
	Env    []string
	Dir    string
}

// EngineRunner runs an external coding-assistant CLI; text in, text out.
type EngineRunner interface {
	Available(engine domain.Engine) error
	Run(ctx context.Context, req EngineRequest) (string, error)
}
