package registry

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int           `toml:"version"`
	Agents  []agentSchema `toml:"agents"`
}

func (s fileSchema) validateVersion() error {
	if s.Version == 0 {
		return fmt.Errorf("agent table has no version")
	}
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported agent table version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type agentSchema struct {
	ID       string   `toml:"id"`
	Team     string   `toml:"team"`
	Name     string   `toml:"name"`
	Keywords []string `toml:"keywords"`
	Prompt   string   `toml:"prompt"`
}
