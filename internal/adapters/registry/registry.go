// Package registry loads the agent table. The table is decoded once and never
// mutated afterwards; callers receive copies.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

//go:embed agents.toml
var defaultTable []byte

type Registry struct {
	version int
	agents  []domain.Agent
	byID    map[domain.AgentID]int
}

var _ ports.AgentRegistry = (*Registry)(nil)

// Default returns the registry built from the embedded agent table.
func Default() (*Registry, error) {
	return Parse(defaultTable)
}

// Load reads an agent table from path, or the embedded table when path is empty.
func Load(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read agent table: %w", err)
	}

	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("agent table %s: %w", path, err)
	}
	return reg, nil
}

func Parse(data []byte) (*Registry, error) {
	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode agent table: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return nil, err
	}
	if len(file.Agents) == 0 {
		return nil, errors.New("agent table is empty")
	}

	reg := &Registry{
		version: file.Version,
		agents:  make([]domain.Agent, 0, len(file.Agents)),
		byID:    make(map[domain.AgentID]int, len(file.Agents)),
	}
	for _, entry := range file.Agents {
		agent := fromSchema(entry)
		if err := agent.Validate(); err != nil {
			return nil, err
		}
		if _, dup := reg.byID[agent.ID]; dup {
			return nil, fmt.Errorf("duplicate agent id %s", agent.ID)
		}
		reg.byID[agent.ID] = len(reg.agents)
		reg.agents = append(reg.agents, agent)
	}

	return reg, nil
}

func (r *Registry) Version() int {
	return r.version
}

// All returns the agents in declaration order.
func (r *Registry) All() []domain.Agent {
	agents := make([]domain.Agent, len(r.agents))
	for i, agent := range r.agents {
		agents[i] = cloneAgent(agent)
	}
	return agents
}

func (r *Registry) Get(id domain.AgentID) (domain.Agent, bool) {
	idx, ok := r.byID[domain.AgentID(strings.ToUpper(strings.TrimSpace(string(id))))]
	if !ok {
		return domain.Agent{}, false
	}
	return cloneAgent(r.agents[idx]), true
}

func fromSchema(entry agentSchema) domain.Agent {
	keywords := make([]string, 0, len(entry.Keywords))
	for _, keyword := range entry.Keywords {
		trimmed := strings.ToLower(strings.TrimSpace(keyword))
		if trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}

	return domain.Agent{
		ID:         domain.AgentID(strings.ToUpper(strings.TrimSpace(entry.ID))),
		Team:       domain.Team(strings.ToUpper(strings.TrimSpace(entry.Team))),
		Name:       strings.TrimSpace(entry.Name),
		Keywords:   keywords,
		PromptPath: strings.TrimSpace(entry.Prompt),
	}
}

func cloneAgent(agent domain.Agent) domain.Agent {
	agent.Keywords = append([]string(nil), agent.Keywords...)
	return agent
}
