package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

var engineEnvVars = map[domain.Engine]string{
	domain.EngineCodex:  "OPENAI_API_KEY",
	domain.EngineClaude: "ANTHROPIC_API_KEY",
}

type CredentialService struct {
	store  ports.CredentialStore
	getenv func(string) string
	logger *zap.Logger
}

func NewCredentialService(store ports.CredentialStore, logger *zap.Logger) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{store: store, getenv: os.Getenv, logger: logger}
}

func CredentialKey(engine domain.Engine) string {
	return "engines/" + string(engine) + "/api_key"
}

func EngineEnvVar(engine domain.Engine) (string, error) {
	name, ok := engineEnvVars[engine]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedEngine, engine)
	}
	return name, nil
}

func (s *CredentialService) Set(ctx context.Context, engine domain.Engine, value string) error {
	if _, err := EngineEnvVar(engine); err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("api key is empty")
	}
	if err := s.store.Put(ctx, CredentialKey(engine), value); err != nil {
		return fmt.Errorf("store %s api key: %w", engine, err)
	}
	return nil
}

func (s *CredentialService) Remove(ctx context.Context, engine domain.Engine) error {
	if _, err := EngineEnvVar(engine); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, CredentialKey(engine)); err != nil {
		return fmt.Errorf("remove %s api key: %w", engine, err)
	}
	return nil
}

func (s *CredentialService) Source(ctx context.Context, engine domain.Engine) string {
	name, err := EngineEnvVar(engine)
	if err != nil {
		return ""
	}
	if s.getenv(name) != "" {
		return "env"
	}
	if _, err := s.store.Get(ctx, CredentialKey(engine)); err == nil {
		return "store"
	}
	return ""
}

// Env returns the extra environment for an engine process. A key already in
// the environment wins over the stored one. Lookup failures are logged and
// leave the engine to its own login.
func (s *CredentialService) Env(ctx context.Context, engine domain.Engine) []string {
	name, err := EngineEnvVar(engine)
	if err != nil || s.getenv(name) != "" {
		return nil
	}

	value, err := s.store.Get(ctx, CredentialKey(engine))
	if err != nil {
		if !errors.Is(err, domain.ErrCredentialNotFound) {
			s.logger.Debug("credential lookup failed", zap.String("engine", string(engine)), zap.Error(err))
		}
		return nil
	}
	return []string{name + "=" + value}
}
