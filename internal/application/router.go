package application

import (
	"sort"
	"strings"

	"github.com/bnema/hivemind/internal/domain"
)

// DefaultAgentID is the architect, used when nothing in a task matches.
const DefaultAgentID domain.AgentID = "DEV-001"

type Match struct {
	Agent    domain.Agent
	Keywords []string
}

// Router maps task text to agents by keyword substring matching. It holds a
// snapshot of the agent table and is safe for concurrent use.
type Router struct {
	agents   []domain.Agent
	defaults []domain.AgentID
}

func NewRouter(agents []domain.Agent, defaults []domain.AgentID) *Router {
	known := make(map[domain.AgentID]struct{}, len(agents))
	for _, agent := range agents {
		known[agent.ID] = struct{}{}
	}

	filtered := make([]domain.AgentID, 0, len(defaults))
	for _, id := range defaults {
		id = domain.AgentID(strings.ToUpper(strings.TrimSpace(string(id))))
		if _, ok := known[id]; ok {
			filtered = append(filtered, id)
		}
	}
	if len(filtered) == 0 {
		if _, ok := known[DefaultAgentID]; ok {
			filtered = []domain.AgentID{DefaultAgentID}
		} else if len(agents) > 0 {
			filtered = []domain.AgentID{agents[0].ID}
		}
	}

	return &Router{
		agents:   append([]domain.Agent(nil), agents...),
		defaults: filtered,
	}
}

// Route returns the matched agent ids, most keyword hits first. Ties keep table
// order. No match returns the default set.
func (r *Router) Route(task string) []domain.AgentID {
	matches := r.Explain(task)
	if len(matches) == 0 {
		return r.Defaults()
	}

	ids := make([]domain.AgentID, 0, len(matches))
	for _, match := range matches {
		ids = append(ids, match.Agent.ID)
	}
	return ids
}

// Explain is Route with the matched keywords attached; it returns nil instead of
// falling back to the defaults.
func (r *Router) Explain(task string) []Match {
	text := strings.ToLower(task)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var matches []Match
	for _, agent := range r.agents {
		var hits []string
		for _, keyword := range agent.Keywords {
			if keyword != "" && strings.Contains(text, keyword) {
				hits = append(hits, keyword)
			}
		}
		if len(hits) > 0 {
			matches = append(matches, Match{Agent: agent, Keywords: hits})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return len(matches[i].Keywords) > len(matches[j].Keywords)
	})

	return matches
}

func (r *Router) Defaults() []domain.AgentID {
	return append([]domain.AgentID(nil), r.defaults...)
}
