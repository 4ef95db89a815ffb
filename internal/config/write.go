package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bnema/hivemind/internal/adapters/fsutil"
)

const configFileMode = 0o600

// Set writes one dotted key into the TOML file at path, keeping every other
// key as it was. The file is created when missing.
func Set(path, key string, value any) error {
	unlock, err := fsutil.Exclusive(path)
	if err != nil {
		return err
	}
	defer unlock()

	doc := map[string]any{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("%w: decode %s: %v", ErrInvalid, path, err)
		}
	}

	parts := strings.Split(key, ".")
	node := doc
	for _, part := range parts[:len(parts)-1] {
		child, ok := node[part].(map[string]any)
		if !ok {
			child = map[string]any{}
			node[part] = child
		}
		node = child
	}
	node[parts[len(parts)-1]] = value

	encoded, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode config file: %w", err)
	}
	return fsutil.WriteFileAtomic(path, encoded, configFileMode)
}
