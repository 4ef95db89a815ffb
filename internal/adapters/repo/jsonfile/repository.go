// Package jsonfile persists memory entries as one JSON document per
// (scope, category) under <home>/memory.
package jsonfile

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

	"go.uber.org/zap"

	"github.com/bnema/hivemind/internal/adapters/fsutil"
	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

const fileMode = 0o600

var _ ports.MemoryRepository = (*Repository)(nil)

type Repository struct {
	root   string
	logger *zap.Logger
}

func NewRepository(root string, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repository{root: root, logger: logger}
}

func (r *Repository) Root() string {
	return r.root
}

// PathFor returns the store file for a (scope, category) pair.
func (r *Repository) PathFor(scope domain.MemoryScope, category string) string {
	return filepath.Join(r.root, scope.Dir(), strings.TrimSpace(category)+".json")
}

func (r *Repository) Append(ctx context.Context, entry domain.MemoryEntry) (domain.MemoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.MemoryEntry{}, err
	}
	entry.Category = strings.TrimSpace(entry.Category)
	if err := entry.Validate(); err != nil {
		return domain.MemoryEntry{}, err
	}

	path := r.PathFor(entry.Scope, entry.Category)
	unlock, err := fsutil.Exclusive(path)
	if err != nil {
		return domain.MemoryEntry{}, err
	}
	defer unlock()

	doc, err := r.readForWrite(path)
	if err != nil {
		return domain.MemoryEntry{}, err
	}
	if doc.indexOf(entry.ID) >= 0 {
		return domain.MemoryEntry{}, fmt.Errorf("memory entry %s already exists in %s", entry.ID, filepath.Base(path))
	}

	if last, ok := lastCreatedAt(doc); ok && !entry.CreatedAt.After(last) {
		entry.CreatedAt = last.Add(time.Nanosecond)
	}

	doc.Entries = append(doc.Entries, toSchema(entry))
	if err := r.write(path, doc); err != nil {
		return domain.MemoryEntry{}, err
	}

	r.logger.Debug("memory entry stored",
		zap.String("id", entry.ID),
		zap.String("scope", string(entry.Scope)),
		zap.String("category", entry.Category),
	)
	return entry, nil
}

func (r *Repository) List(ctx context.Context, scopes ...domain.MemoryScope) ([]domain.StoredEntry, error) {
	if len(scopes) == 0 {
		scopes = domain.MemoryScopes
	}

	var out []domain.StoredEntry
	for _, scope := range scopes {
		paths, err := r.storeFiles(scope)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			mu := fsutil.LockForPath(path)
			mu.RLock()
			doc := r.readRecovering(path)
			mu.RUnlock()

			category := strings.TrimSuffix(filepath.Base(path), ".json")
			for _, raw := range doc.Entries {
				entry, err := raw.toDomain(scope, category)
				if err != nil {
					r.logger.Warn("skipping unreadable memory entry", zap.String("path", path), zap.Error(err))
					continue
				}
				out = append(out, domain.StoredEntry{Entry: entry, Weight: doc.weightOf(raw.ID)})
			}
		}
	}

	return out, nil
}

func (r *Repository) Remove(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := r.mutateByID(ctx, id, func(doc *fileSchema, idx int) {
		doc.Entries = append(doc.Entries[:idx], doc.Entries[idx+1:]...)
		delete(doc.Weights, id)
		removed = true
	})
	return removed, err
}

// ScaleWeight multiplies the recall weight of id by factor, clamped to
// [floor, ceiling].
func (r *Repository) ScaleWeight(ctx context.Context, id string, factor, floor, ceiling float64) (float64, bool, error) {
	var (
		weight float64
		found  bool
	)
	err := r.mutateByID(ctx, id, func(doc *fileSchema, _ int) {
		next := doc.weightOf(id) * factor
		if next < floor {
			next = floor
		}
		if ceiling > 0 && next > ceiling {
			next = ceiling
		}
		if doc.Weights == nil {
			doc.Weights = map[string]float64{}
		}
		doc.Weights[id] = next
		weight = next
		found = true
	})
	return weight, found, err
}

func (r *Repository) Stats(ctx context.Context) ([]domain.CategoryStats, error) {
	var stats []domain.CategoryStats
	for _, scope := range domain.MemoryScopes {
		paths, err := r.storeFiles(scope)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			mu := fsutil.LockForPath(path)
			mu.RLock()
			doc := r.readRecovering(path)
			mu.RUnlock()

			stats = append(stats, domain.CategoryStats{
				Scope:    scope,
				Category: strings.TrimSuffix(filepath.Base(path), ".json"),
				Entries:  len(doc.Entries),
			})
		}
	}
	return stats, nil
}

// mutateByID finds the file holding id and applies fn under its exclusive lock.
// The file is rewritten only when fn ran.
func (r *Repository) mutateByID(ctx context.Context, id string, fn func(doc *fileSchema, idx int)) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}

	for _, scope := range domain.MemoryScopes {
		paths, err := r.storeFiles(scope)
		if err != nil {
			return err
		}
		for _, path := range paths {
			if err := ctx.Err(); err != nil {
				return err
			}

			done, err := r.mutateFile(path, id, fn)
			if err != nil || done {
				return err
			}
		}
	}
	return nil
}

func (r *Repository) mutateFile(path, id string, fn func(doc *fileSchema, idx int)) (bool, error) {
	unlock, err := fsutil.Exclusive(path)
	if err != nil {
		return false, err
	}
	defer unlock()

	doc := r.readRecovering(path)
	idx := doc.indexOf(id)
	if idx < 0 {
		return false, nil
	}

	fn(&doc, idx)
	if err := r.write(path, doc); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repository) storeFiles(scope domain.MemoryScope) ([]string, error) {
	dir := filepath.Join(r.root, scope.Dir())
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read memory directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// errNewerSchema marks a store file written by a newer release. It is read as
// empty and never rewritten.
var errNewerSchema = errors.New("memory store has a newer schema version")

// readRecovering loads path for reading. Missing, corrupt and unreadable files
// are logged and treated as empty.
func (r *Repository) readRecovering(path string) fileSchema {
	doc, err := readFile(path)
	if err == nil {
		return doc
	}

	var corrupt *domain.MemoryStoreCorruptError
	switch {
	case errors.Is(err, errNewerSchema):
		r.logger.Warn("memory store from a newer version, skipping", zap.String("path", path), zap.Error(err))
	case errors.As(err, &corrupt):
		r.logger.Warn("memory store corrupt, treating as empty", zap.String("path", path), zap.Error(err))
	default:
		r.logger.Warn("memory store unreadable, treating as empty", zap.String("path", path), zap.Error(err))
	}
	return fileSchema{Version: currentSchemaVersion}
}

// readForWrite loads path ahead of a rewrite. A corrupt file is moved to
// <path>.corrupt first so the rewrite cannot destroy it; a newer-schema or
// unreadable file refuses the write.
func (r *Repository) readForWrite(path string) (fileSchema, error) {
	doc, err := readFile(path)
	var corrupt *domain.MemoryStoreCorruptError
	if err == nil || !errors.As(err, &corrupt) {
		return doc, err
	}

	aside, moveErr := moveAside(path)
	if moveErr != nil {
		return fileSchema{}, fmt.Errorf("%w; keep it by moving it aside: %w", err, moveErr)
	}
	r.logger.Warn("memory store corrupt, moved aside", zap.String("path", path), zap.String("moved_to", aside), zap.Error(err))
	return fileSchema{Version: currentSchemaVersion}, nil
}

// moveAside renames path to the first free <path>.corrupt[.N].
func moveAside(path string) (string, error) {
	for n := 0; n < 100; n++ {
		aside := path + ".corrupt"
		if n > 0 {
			aside = fmt.Sprintf("%s.%d", aside, n)
		}
		if _, err := os.Lstat(aside); err == nil {
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		if err := os.Rename(path, aside); err != nil {
			return "", err
		}
		return aside, nil
	}
	return "", fmt.Errorf("too many corrupt copies of %s", filepath.Base(path))
}

func readFile(path string) (fileSchema, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fileSchema{Version: currentSchemaVersion}, nil
	}
	if err != nil {
		return fileSchema{}, fmt.Errorf("read memory store: %w", err)
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return fileSchema{Version: currentSchemaVersion}, nil
	}

	var doc fileSchema
	if err := json.Unmarshal(data, &doc); err != nil {
		return fileSchema{}, &domain.MemoryStoreCorruptError{Path: path, Err: err}
	}
	if doc.Version > currentSchemaVersion {
		return fileSchema{}, fmt.Errorf("%s: %w: %d (this build reads %d)", path, errNewerSchema, doc.Version, currentSchemaVersion)
	}
	doc.Version = currentSchemaVersion
	return doc, nil
}

func (r *Repository) write(path string, doc fileSchema) error {
	doc.Version = currentSchemaVersion
	if doc.Entries == nil {
		doc.Entries = []entrySchema{}
	}
	if len(doc.Weights) == 0 {
		doc.Weights = nil
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode memory store: %w", err)
	}
	data = append(data, '\n')

	return fsutil.WriteFileAtomic(path, data, fileMode)
}

func lastCreatedAt(doc fileSchema) (time.Time, bool) {
	var (
		latest time.Time
		found  bool
	)
	for _, raw := range doc.Entries {
		ts, err := time.Parse(time.RFC3339Nano, raw.CreatedAt)
		if err != nil {
			continue
		}
		if !found || ts.After(latest) {
			latest = ts
			found = true
		}
	}
	return latest, found
}
