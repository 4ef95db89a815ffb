// Package workspace keeps the per-run session directories: one manifest per
// session and one status/result pair per agent invocation.
package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bnema/hivemind/internal/adapters/fsutil"
	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

const (
	StatusFile  = "status.txt"
	ResultFile  = "result.md"
	sessionsDir = "_sessions"
	fileMode    = 0o600

	DefaultPollInterval = 250 * time.Millisecond
)

var _ ports.Workspace = (*Manager)(nil)

type Manager struct {
	root         string
	clock        ports.Clock
	pollInterval time.Duration
	logger       *zap.Logger
}

type Option func(*Manager)

func WithClock(clock ports.Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func WithPollInterval(interval time.Duration) Option {
	return func(m *Manager) {
		if interval > 0 {
			m.pollInterval = interval
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func NewManager(root string, opts ...Option) *Manager {
	m := &Manager{
		root:         root,
		clock:        ports.SystemClock{},
		pollInterval: DefaultPollInterval,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Root() string {
	return m.root
}

// NewSessionID formats ids as YYYYMMDD-HHMMSS-<8 hex>; they sort by creation time.
func NewSessionID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return now.UTC().Format("20060102-150405") + "-" + suffix
}

func (m *Manager) CreateSession(ctx context.Context, task string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	now := m.clock.Now().UTC()
	session := domain.Session{
		ID:           NewSessionID(now),
		CreatedAt:    now,
		Task:         task,
		WorkspaceDir: m.root,
	}

	path := m.manifestPath(session.ID)
	unlock, err := fsutil.Exclusive(path)
	if err != nil {
		return domain.Session{}, err
	}
	defer unlock()

	if err := m.writeManifest(path, manifestFromSession(session)); err != nil {
		return domain.Session{}, err
	}

	m.logger.Debug("session created", zap.String("session", session.ID))
	return session, nil
}

func (m *Manager) RecordInvocation(ctx context.Context, session domain.Session, agentID domain.AgentID, task string) (domain.Invocation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Invocation{}, err
	}
	if strings.TrimSpace(string(agentID)) == "" || strings.ContainsAny(string(agentID), `/\.`) {
		return domain.Invocation{}, fmt.Errorf("invalid agent id %q", agentID)
	}

	dir := filepath.Join(m.root, string(agentID), session.ID)
	if err := os.MkdirAll(dir, fsutil.DirMode); err != nil {
		return domain.Invocation{}, fmt.Errorf("create invocation directory: %w", err)
	}

	inv := domain.Invocation{
		SessionID:  session.ID,
		AgentID:    agentID,
		Task:       task,
		StartedAt:  m.clock.Now().UTC(),
		Status:     domain.StatusPending,
		Dir:        dir,
		StatusPath: filepath.Join(dir, StatusFile),
		ResultPath: filepath.Join(dir, ResultFile),
	}

	if err := fsutil.WriteFileAtomic(inv.ResultPath, nil, fileMode); err != nil {
		return domain.Invocation{}, err
	}
	if err := fsutil.WriteFileAtomic(inv.StatusPath, []byte(domain.StatusPending), fileMode); err != nil {
		return domain.Invocation{}, err
	}

	if err := m.updateManifest(session.ID, func(doc *manifestSchema) {
		doc.Invocations = append(doc.Invocations, invocationToManifest(inv))
	}); err != nil {
		return domain.Invocation{}, err
	}

	return inv, nil
}

func (m *Manager) MarkRunning(ctx context.Context, inv domain.Invocation, engine domain.Engine) (domain.Invocation, error) {
	inv.Engine = engine
	return m.transition(ctx, inv, domain.StatusRunning, nil, "")
}

func (m *Manager) Complete(ctx context.Context, inv domain.Invocation, result string) (domain.Invocation, error) {
	return m.transition(ctx, inv, domain.StatusComplete, []byte(result), "")
}

// Fail moves inv to error; result.md receives the detail so readers see why.
func (m *Manager) Fail(ctx context.Context, inv domain.Invocation, detail string) (domain.Invocation, error) {
	return m.transition(ctx, inv, domain.StatusError, []byte(detail), detail)
}

func (m *Manager) transition(ctx context.Context, inv domain.Invocation, next domain.InvocationStatus, result []byte, detail string) (domain.Invocation, error) {
	if err := ctx.Err(); err != nil {
		return domain.Invocation{}, err
	}

	unlock, err := fsutil.Exclusive(inv.StatusPath)
	if err != nil {
		return domain.Invocation{}, err
	}
	defer unlock()

	current, err := readStatus(inv.StatusPath)
	if err != nil {
		return domain.Invocation{}, err
	}
	if current.Terminal() {
		return domain.Invocation{}, fmt.Errorf("%w: agent %s is %s", domain.ErrTerminalStatus, inv.AgentID, current)
	}
	if !current.CanTransition(next) {
		return domain.Invocation{}, fmt.Errorf("agent %s: invalid status transition %s -> %s", inv.AgentID, current, next)
	}

	// Result before status: a reader that sees a terminal status always finds its result.
	if next.Terminal() {
		if err := fsutil.WriteFileAtomic(inv.ResultPath, result, fileMode); err != nil {
			return domain.Invocation{}, err
		}
		inv.FinishedAt = m.clock.Now().UTC()
	}
	if err := fsutil.WriteFileAtomic(inv.StatusPath, []byte(next), fileMode); err != nil {
		return domain.Invocation{}, err
	}

	inv.Status = next
	inv.Detail = detail

	if err := m.updateManifest(inv.SessionID, func(doc *manifestSchema) {
		for i := range doc.Invocations {
			if doc.Invocations[i].AgentID == string(inv.AgentID) {
				doc.Invocations[i] = invocationToManifest(inv)
				return
			}
		}
	}); err != nil {
		return domain.Invocation{}, err
	}

	m.logger.Debug("invocation status changed",
		zap.String("session", inv.SessionID),
		zap.String("agent", string(inv.AgentID)),
		zap.String("from", string(current)),
		zap.String("to", string(next)),
	)
	return inv, nil
}

// ReadResult blocks until inv reaches a terminal status or timeout elapses.
// It wakes on filesystem events for the invocation directory and on a poll
// ticker, so a missed event only delays the answer by one interval.
func (m *Manager) ReadResult(ctx context.Context, inv domain.Invocation, timeout time.Duration) (domain.InvocationResult, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		m.logger.Debug("fsnotify unavailable, polling only", zap.Error(err))
	} else {
		defer watcher.Close()
		if err := watcher.Add(inv.Dir); err != nil {
			m.logger.Debug("watch invocation directory failed, polling only", zap.String("dir", inv.Dir), zap.Error(err))
		}
	}

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher != nil {
		events = watcher.Events
		errs = watcher.Errors
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		result, done, err := m.checkResult(inv)
		if err != nil {
			return domain.InvocationResult{}, err
		}
		if done {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return domain.InvocationResult{}, ctx.Err()
		case <-deadline:
			return domain.InvocationResult{Invocation: inv, Outcome: domain.OutcomeTimeout},
				&domain.InvocationTimeoutError{AgentID: inv.AgentID, Timeout: timeout}
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		case werr, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			m.logger.Debug("workspace watcher error", zap.Error(werr))
		case <-ticker.C:
		}
	}
}

func (m *Manager) checkResult(inv domain.Invocation) (domain.InvocationResult, bool, error) {
	mu := fsutil.LockForPath(inv.StatusPath)
	mu.RLock()
	defer mu.RUnlock()

	status, err := readStatus(inv.StatusPath)
	if err != nil {
		return domain.InvocationResult{}, false, err
	}
	if !status.Terminal() {
		return domain.InvocationResult{}, false, nil
	}

	data, err := os.ReadFile(inv.ResultPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.InvocationResult{}, false, fmt.Errorf("read result: %w", err)
	}

	inv.Status = status
	outcome := domain.OutcomeComplete
	if status == domain.StatusError {
		outcome = domain.OutcomeError
		if inv.Detail == "" {
			inv.Detail = strings.TrimSpace(string(data))
		}
	}
	return domain.InvocationResult{Invocation: inv, Outcome: outcome, Text: string(data)}, true, nil
}

func (m *Manager) WriteSummary(ctx context.Context, session domain.Session, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := filepath.Join(m.root, sessionsDir, session.ID+".md")
	if err := fsutil.WriteFileAtomic(path, []byte(text), fileMode); err != nil {
		return "", err
	}
	return path, nil
}

// LoadSession reads the manifest of id. Invocation statuses come from the
// status files, which stay authoritative if the manifest lags behind.
func (m *Manager) LoadSession(ctx context.Context, id string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" || strings.ContainsAny(id, `/\`) {
		return domain.Session{}, fmt.Errorf("%w: %q", domain.ErrSessionNotFound, id)
	}

	path := m.manifestPath(id)
	mu := fsutil.LockForPath(path)
	mu.RLock()
	doc, err := readManifest(path)
	mu.RUnlock()
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.Session{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
	}
	if err != nil {
		return domain.Session{}, err
	}

	session := doc.toDomain(StatusFile)
	for i := range session.Invocations {
		inv := &session.Invocations[i]
		if inv.StatusPath == "" {
			continue
		}
		if status, err := readStatus(inv.StatusPath); err == nil {
			inv.Status = status
		}
	}
	return session, nil
}

// ListSessions returns every recorded session, newest first.
func (m *Manager) ListSessions(ctx context.Context) ([]domain.Session, error) {
	entries, err := os.ReadDir(filepath.Join(m.root, sessionsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	sessions := make([]domain.Session, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}

		session, err := m.LoadSession(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			m.logger.Warn("skipping unreadable session manifest", zap.String("file", name), zap.Error(err))
			continue
		}
		sessions = append(sessions, session)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID > sessions[j].ID
	})
	return sessions, nil
}

// RemoveSession deletes the manifest, summary and every invocation directory
// of id. Agent directories left empty are removed too.
func (m *Manager) RemoveSession(ctx context.Context, id string) error {
	session, err := m.LoadSession(ctx, id)
	if err != nil {
		return err
	}

	for _, inv := range session.Invocations {
		if inv.Dir == "" || !strings.HasPrefix(inv.Dir, m.root) {
			continue
		}
		if err := os.RemoveAll(inv.Dir); err != nil {
			return fmt.Errorf("remove invocation directory: %w", err)
		}
		// Only succeeds when empty.
		_ = os.Remove(filepath.Dir(inv.Dir))
	}

	path := m.manifestPath(session.ID)
	unlock, err := fsutil.Exclusive(path)
	if err != nil {
		return err
	}
	defer unlock()

	for _, file := range []string{path, filepath.Join(m.root, sessionsDir, session.ID+".md"), path + ".lock"} {
		if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", filepath.Base(file), err)
		}
	}
	return nil
}

func (m *Manager) manifestPath(id string) string {
	return filepath.Join(m.root, sessionsDir, id+".json")
}

func (m *Manager) updateManifest(id string, fn func(doc *manifestSchema)) error {
	path := m.manifestPath(id)
	unlock, err := fsutil.Exclusive(path)
	if err != nil {
		return err
	}
	defer unlock()

	doc, err := readManifest(path)
	if err != nil {
		return fmt.Errorf("session %s: %w", id, err)
	}
	fn(&doc)
	return m.writeManifest(path, doc)
}

func (m *Manager) writeManifest(path string, doc manifestSchema) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session manifest: %w", err)
	}
	return fsutil.WriteFileAtomic(path, append(data, '\n'), fileMode)
}

func readStatus(path string) (domain.InvocationStatus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read status: %w", err)
	}
	return domain.ParseInvocationStatus(strings.TrimSpace(string(data)))
}
