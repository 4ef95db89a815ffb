package domain

import (
	"fmt"
	"strings"
)

type AgentID string
type Team string

const (
	TeamDEV Team = "DEV"
	TeamSEC Team = "SEC"
	TeamINF Team = "INF"
	TeamQA  Team = "QA"
)

// Teams lists every team in declaration order.
var Teams = []Team{TeamDEV, TeamSEC, TeamINF, TeamQA}

func (t Team) Valid() bool {
	switch t {
	case TeamDEV, TeamSEC, TeamINF, TeamQA:
		return true
	default:
		return false
	}
}

func (t Team) Label() string {
	switch t {
	case TeamDEV:
		return "Development"
	case TeamSEC:
		return "Security"
	case TeamINF:
		return "Infrastructure"
	case TeamQA:
		return "Quality Assurance"
	default:
		return string(t)
	}
}

type Agent struct {
	ID         AgentID
	Team       Team
	Name       string
	Keywords   []string
	PromptPath string
}

// TeamOf returns the team prefix of an id such as "SEC-004".
func (id AgentID) TeamOf() Team {
	prefix, _, _ := strings.Cut(string(id), "-")
	return Team(prefix)
}

func (a Agent) Validate() error {
	if strings.TrimSpace(string(a.ID)) == "" {
		return fmt.Errorf("id is required")
	}
	if !a.Team.Valid() {
		return fmt.Errorf("agent %s: unsupported team %q", a.ID, a.Team)
	}
	if a.ID.TeamOf() != a.Team {
		return fmt.Errorf("agent %s: id prefix does not match team %s", a.ID, a.Team)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("agent %s: name is required", a.ID)
	}
	if len(a.Keywords) == 0 {
		return fmt.Errorf("agent %s: at least one keyword is required", a.ID)
	}
	if strings.TrimSpace(a.PromptPath) == "" {
		return fmt.Errorf("agent %s: prompt path is required", a.ID)
	}

	return nil
}

// Persona is the loaded prompt template for one agent.
type Persona struct {
	AgentID     AgentID
	Name        string
	Description string
	Engine      Engine
	Body        string
	Path        string
	Generated   bool
}
