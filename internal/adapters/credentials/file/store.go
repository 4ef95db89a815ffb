// Package file keeps engine credentials as 0600 files under <home>/credentials.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/hivemind/internal/adapters/fsutil"
	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

const secretFileMode = 0o600

type Store struct {
	root string
}

var _ ports.CredentialStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	unlock, err := fsutil.Exclusive(path)
	if err != nil {
		return err
	}
	defer unlock()

	if err := fsutil.WriteFileAtomic(path, []byte(value), secretFileMode); err != nil {
		return fmt.Errorf("write credential %q: %w", key, err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := s.pathForKey(key)
	if err != nil {
		return "", err
	}

	mu := fsutil.LockForPath(path)
	mu.RLock()
	defer mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("credential %q: %w", key, domain.ErrCredentialNotFound)
		}
		return "", fmt.Errorf("read credential %q: %w", key, err)
	}

	return strings.TrimRight(string(data), "\r\n"), nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForKey(key)
	if err != nil {
		return err
	}

	unlock, err := fsutil.Exclusive(path)
	if err != nil {
		return err
	}
	defer unlock()

	for _, p := range []string{path, path + ".lock"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete credential %q: %w", key, err)
		}
	}

	return nil
}

func (s *Store) pathForKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", errors.New("credential key is empty")
	}

	cleaned := filepath.Clean(trimmed)
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") || cleaned == "." {
		return "", fmt.Errorf("invalid credential key %q", key)
	}

	return filepath.Join(s.root, cleaned), nil
}
