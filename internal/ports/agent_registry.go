package ports

import "github.com/bnema/hivemind/internal/domain"

// AgentRegistry is the immutable agent table loaded at startup.
type AgentRegistry interface {
	All() []domain.Agent
	Get(id domain.AgentID) (domain.Agent, bool)
	Version() int
}

type PersonaLoader interface {
	Load(agent domain.Agent, path string) (domain.Persona, error)
}
