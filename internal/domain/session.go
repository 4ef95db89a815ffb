package domain

import (
	"fmt"
	"time"
)

type InvocationStatus string

const (
	StatusPending  InvocationStatus = "pending"
	StatusRunning  InvocationStatus = "running"
	StatusComplete InvocationStatus = "complete"
	StatusError    InvocationStatus = "error"
)

func (s InvocationStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

func (s InvocationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusComplete, StatusError:
		return true
	default:
		return false
	}
}

// CanTransition reports whether an invocation may move from s to next.
func (s InvocationStatus) CanTransition(next InvocationStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusRunning || next == StatusError
	case StatusRunning:
		return next == StatusComplete || next == StatusError
	default:
		return false
	}
}

func ParseInvocationStatus(raw string) (InvocationStatus, error) {
	status := InvocationStatus(raw)
	if !status.Valid() {
		return "", fmt.Errorf("unknown invocation status %q", raw)
	}
	return status, nil
}

type Invocation struct {
	SessionID  string
	AgentID    AgentID
	Task       string
	Engine     Engine
	StartedAt  time.Time
	FinishedAt time.Time
	Status     InvocationStatus
	Dir        string
	StatusPath string
	ResultPath string
	Detail     string
}

type Session struct {
	ID           string
	CreatedAt    time.Time
	Task         string
	WorkspaceDir string
	Invocations  []Invocation
}

// Outcome is what a reader observed for one invocation; it adds the synthetic timeout.
type Outcome string

const (
	OutcomeComplete Outcome = "complete"
	OutcomeError    Outcome = "error"
	OutcomeTimeout  Outcome = "timeout"
)

type InvocationResult struct {
	Invocation Invocation
	Outcome    Outcome
	Text       string
}

// Counts tallies invocation outcomes by status.
func (s Session) Counts() map[InvocationStatus]int {
	counts := make(map[InvocationStatus]int, 4)
	for _, inv := range s.Invocations {
		counts[inv.Status]++
	}
	return counts
}
