package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/hivemind/internal/domain"
)

type manifestSchema struct {
	ID           string               `json:"id"`
	Task         string               `json:"task"`
	CreatedAt    time.Time            `json:"createdAt"`
	WorkspaceDir string               `json:"workspaceDir"`
	Invocations  []invocationManifest `json:"invocations"`
}

type invocationManifest struct {
	AgentID    string     `json:"agentId"`
	Task       string     `json:"task"`
	Engine     string     `json:"engine,omitempty"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Status     string     `json:"status"`
	Dir        string     `json:"dir"`
	ResultPath string     `json:"resultPath"`
	Detail     string     `json:"detail,omitempty"`
}

func manifestFromSession(session domain.Session) manifestSchema {
	out := manifestSchema{
		ID:           session.ID,
		Task:         session.Task,
		CreatedAt:    session.CreatedAt.UTC(),
		WorkspaceDir: session.WorkspaceDir,
		Invocations:  make([]invocationManifest, 0, len(session.Invocations)),
	}
	for _, inv := range session.Invocations {
		out.Invocations = append(out.Invocations, invocationToManifest(inv))
	}
	return out
}

func invocationToManifest(inv domain.Invocation) invocationManifest {
	m := invocationManifest{
		AgentID:    string(inv.AgentID),
		Task:       inv.Task,
		Engine:     string(inv.Engine),
		StartedAt:  inv.StartedAt.UTC(),
		Status:     string(inv.Status),
		Dir:        inv.Dir,
		ResultPath: inv.ResultPath,
		Detail:     inv.Detail,
	}
	if !inv.FinishedAt.IsZero() {
		finished := inv.FinishedAt.UTC()
		m.FinishedAt = &finished
	}
	return m
}

func (m manifestSchema) toDomain(statusFile string) domain.Session {
	session := domain.Session{
		ID:           m.ID,
		Task:         m.Task,
		CreatedAt:    m.CreatedAt,
		WorkspaceDir: m.WorkspaceDir,
		Invocations:  make([]domain.Invocation, 0, len(m.Invocations)),
	}
	for _, raw := range m.Invocations {
		inv := domain.Invocation{
			SessionID:  m.ID,
			AgentID:    domain.AgentID(raw.AgentID),
			Task:       raw.Task,
			Engine:     domain.Engine(raw.Engine),
			StartedAt:  raw.StartedAt,
			Status:     domain.InvocationStatus(raw.Status),
			Dir:        raw.Dir,
			ResultPath: raw.ResultPath,
			Detail:     raw.Detail,
		}
		if raw.Dir != "" {
			inv.StatusPath = filepath.Join(raw.Dir, statusFile)
		}
		if raw.FinishedAt != nil {
			inv.FinishedAt = *raw.FinishedAt
		}
		session.Invocations = append(session.Invocations, inv)
	}
	return session
}

func readManifest(path string) (manifestSchema, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return manifestSchema{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return manifestSchema{}, fmt.Errorf("read session manifest: %w", err)
	}

	var m manifestSchema
	if err := json.Unmarshal(data, &m); err != nil {
		return manifestSchema{}, fmt.Errorf("decode session manifest %s: %w", path, err)
	}
	return m, nil
}
