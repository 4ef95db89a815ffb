// Package fsutil holds the file discipline shared by every on-disk adapter:
// one lock per path inside the process, an advisory lock across processes,
// and temp-file-then-rename writes.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const DirMode = 0o700

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

// LockForPath returns the process-wide lock for path. Paths are compared after
// filepath.Abs so two spellings of one file share a lock.
func LockForPath(path string) *sync.RWMutex {
	key := path
	if abs, err := filepath.Abs(path); err == nil {
		key = filepath.Clean(abs)
	}

	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[key]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[key] = mu
	return mu
}

// Exclusive takes the in-process write lock and the advisory file lock for
// path, in that order. The returned func releases both.
func Exclusive(path string) (func(), error) {
	mu := LockForPath(path)
	mu.Lock()

	release, err := lockFile(path)
	if err != nil {
		mu.Unlock()
		return nil, err
	}

	return func() {
		release()
		mu.Unlock()
	}, nil
}

// WriteFileAtomic replaces path with data. A crash leaves either the old or the
// new content, never a partial file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirMode); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}

	if err := tempFile.Chmod(perm); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}

	cleanup = false
	return nil
}
