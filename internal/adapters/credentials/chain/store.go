// Package chain keeps engine API keys in pass and falls back to the
// plaintext file store when pass is missing or fails.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	filestore "github.com/bnema/hivemind/internal/adapters/credentials/file"
	passstore "github.com/bnema/hivemind/internal/adapters/credentials/pass"
	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

// Store serves keys named engines/<engine>/api_key. A key written to pass
// removes any file copy so an older key cannot come back through the
// fallback.
type Store struct {
	pass ports.CredentialStore
	file ports.CredentialStore
}

var _ ports.CredentialStore = (*Store)(nil)

var (
	errNilPassStore = errors.New("pass credential store is nil")
	errNilFileStore = errors.New("file credential store is nil")
)

func NewStore(pass ports.CredentialStore, file ports.CredentialStore) *Store {
	store, err := NewStoreChecked(pass, file)
	if err != nil {
		panic(err)
	}
	return store
}

func NewStoreChecked(pass ports.CredentialStore, file ports.CredentialStore) (*Store, error) {
	if pass == nil {
		return nil, errNilPassStore
	}
	if file == nil {
		return nil, errNilFileStore
	}
	return &Store{pass: pass, file: file}, nil
}

func NewPassFirstWithFileFallback(passPrefix, fileRoot string) (*Store, error) {
	return NewStoreChecked(passstore.NewStore(passPrefix), filestore.NewStore(fileRoot))
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	engine, err := engineForKey(key)
	if err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s api key is blank", domain.ErrInvalidCredential, engine)
	}

	passErr := s.pass.Put(ctx, key, value)
	if passErr == nil {
		if err := s.file.Delete(ctx, key); err != nil {
			return fmt.Errorf("%s api key stored in pass, but the file copy could not be cleared: %w", engine, err)
		}
		return nil
	}
	if isContextError(passErr) {
		return passErr
	}

	if fileErr := s.file.Put(ctx, key, value); fileErr != nil {
		return fmt.Errorf("store %s api key: pass: %w; file: %w", engine, passErr, fileErr)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	engine, err := engineForKey(key)
	if err != nil {
		return "", err
	}

	value, passErr := s.pass.Get(ctx, key)
	if passErr == nil {
		return value, nil
	}
	if isContextError(passErr) {
		return "", passErr
	}

	value, fileErr := s.file.Get(ctx, key)
	if fileErr == nil {
		return value, nil
	}
	return "", fmt.Errorf("read %s api key: pass: %w; file: %w", engine, passErr, fileErr)
}

// Delete clears both backends; it succeeds when either one did.
func (s *Store) Delete(ctx context.Context, key string) error {
	engine, err := engineForKey(key)
	if err != nil {
		return err
	}

	passErr := s.pass.Delete(ctx, key)
	if isContextError(passErr) {
		return passErr
	}

	fileErr := s.file.Delete(ctx, key)
	if passErr == nil || fileErr == nil {
		return nil
	}
	return fmt.Errorf("remove %s api key: pass: %w; file: %w", engine, passErr, fileErr)
}

func engineForKey(key string) (domain.Engine, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 3 || parts[0] != "engines" || parts[2] != "api_key" {
		return "", fmt.Errorf("%w: key %q is not engines/<engine>/api_key", domain.ErrInvalidCredential, key)
	}
	switch engine := domain.Engine(parts[1]); engine {
	case domain.EngineCodex, domain.EngineClaude:
		return engine, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedEngine, parts[1])
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
