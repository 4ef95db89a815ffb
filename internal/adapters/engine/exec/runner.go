// Package exec runs the external coding-assistant CLIs. The prompt goes in on
// stdin and the answer is whatever the process prints on stdout.
package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	osexec "os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

const DefaultWaitDelay = 5 * time.Second

// EngineConfig is the command line used for one engine.
type EngineConfig struct {
	Binary string
	Args   []string
}

// DefaultEngines are the non-interactive invocations of each CLI.
func DefaultEngines() map[domain.Engine]EngineConfig {
	return map[domain.Engine]EngineConfig{
		domain.EngineCodex:  {Binary: "codex", Args: []string{"exec", "-"}},
		domain.EngineClaude: {Binary: "claude", Args: []string{"-p"}},
	}
}

type lookPathFunc func(file string) (string, error)

type Runner struct {
	engines   map[domain.Engine]EngineConfig
	lookPath  lookPathFunc
	waitDelay time.Duration
	logger    *zap.Logger
}

var _ ports.EngineRunner = (*Runner)(nil)

type Option func(*Runner)

func WithWaitDelay(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.waitDelay = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRunner(engines map[domain.Engine]EngineConfig, opts ...Option) *Runner {
	if len(engines) == 0 {
		engines = DefaultEngines()
	}

	r := &Runner{
		engines:   engines,
		lookPath:  osexec.LookPath,
		waitDelay: DefaultWaitDelay,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether the engine's binary can be found.
func (r *Runner) Available(engine domain.Engine) error {
	_, _, err := r.resolve(engine)
	return err
}

func (r *Runner) Run(ctx context.Context, req ports.EngineRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, cfg, err := r.resolve(req.Engine)
	if err != nil {
		return "", err
	}

	cmd := osexec.CommandContext(ctx, path, cfg.Args...)
	cmd.Stdin = strings.NewReader(req.Prompt)
	cmd.Dir = req.Dir
	cmd.Env = append(os.Environ(), req.Env...)
	cmd.WaitDelay = r.waitDelay

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err = cmd.Run()
	r.logger.Debug("engine finished",
		zap.String("engine", string(req.Engine)),
		zap.String("binary", cfg.Binary),
		zap.Duration("elapsed", time.Since(started)),
		zap.Error(err),
	)

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("engine %s: %w", req.Engine, ctxErr)
	}
	if err != nil {
		return "", formatError(req.Engine, err, strings.TrimSpace(stderr.String()))
	}

	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return "", fmt.Errorf("engine %s produced no output", req.Engine)
	}
	return out, nil
}

func (r *Runner) resolve(engine domain.Engine) (string, EngineConfig, error) {
	cfg, ok := r.engines[engine]
	if !ok || strings.TrimSpace(cfg.Binary) == "" {
		return "", EngineConfig{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedEngine, engine)
	}

	path, err := r.lookPath(cfg.Binary)
	if err != nil {
		if errors.Is(err, osexec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return "", EngineConfig{}, &domain.ExternalEngineMissingError{Engine: engine, Binary: cfg.Binary}
		}
		return "", EngineConfig{}, fmt.Errorf("locate %s: %w", cfg.Binary, err)
	}
	return path, cfg, nil
}

func formatError(engine domain.Engine, err error, stderr string) error {
	if stderr == "" {
		return fmt.Errorf("engine %s: %w", engine, err)
	}

	// Keep the tail, starting on a rune boundary.
	const maxStderr = 512
	if len(stderr) > maxStderr {
		cut := len(stderr) - maxStderr
		for cut < len(stderr) && !utf8.RuneStart(stderr[cut]) {
			cut++
		}
		stderr = stderr[cut:]
	}
	return fmt.Errorf("engine %s: %w: %s", engine, err, stderr)
}
