package application

import (
	"path/filepath"
	"strings"

	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

type PromptResolver struct {
	registry  ports.AgentRegistry
	promptDir string
}

func NewPromptResolver(registry ports.AgentRegistry, promptDir string) *PromptResolver {
	return &PromptResolver{registry: registry, promptDir: filepath.Clean(promptDir)}
}

// Resolve returns the persona file path for id. Absolute prompt paths in the
// agent table are returned unchanged.
func (r *PromptResolver) Resolve(id domain.AgentID) (string, error) {
	agent, ok := r.registry.Get(id)
	if !ok {
		return "", &domain.UnknownAgentError{ID: id}
	}

	path := filepath.FromSlash(strings.TrimSpace(agent.PromptPath))
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Join(r.promptDir, path), nil
}

func (r *PromptResolver) PromptDir() string {
	return r.promptDir
}
