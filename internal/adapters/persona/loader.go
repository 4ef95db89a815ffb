// Package persona loads the markdown persona of each agent and scaffolds
// the default persona files.
package persona

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/hivemind/internal/adapters/fsutil"
	"github.com/bnema/hivemind/internal/domain"
	"github.com/bnema/hivemind/internal/ports"
)

type Loader struct{}

var _ ports.PersonaLoader = Loader{}

func NewLoader() Loader {
	return Loader{}
}

// Load reads the persona at path. A missing file yields a generated persona
// built from the agent table entry.
func (Loader) Load(agent domain.Agent, path string) (domain.Persona, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Generate(agent, path), nil
	}
	if err != nil {
		return domain.Persona{}, fmt.Errorf("read persona %s: %w", agent.ID, err)
	}

	fm, body, err := parseFrontMatter(data)
	if err != nil {
		return domain.Persona{}, fmt.Errorf("persona %s: %w", agent.ID, err)
	}

	persona := domain.Persona{
		AgentID:     agent.ID,
		Name:        strings.TrimSpace(fm.Name),
		Description: strings.TrimSpace(fm.Description),
		Body:        strings.TrimSpace(string(body)),
		Path:        path,
	}
	if persona.Name == "" {
		persona.Name = agent.Name
	}

	if raw := strings.ToLower(strings.TrimSpace(fm.Engine)); raw != "" {
		engine := domain.Engine(raw)
		if engine != domain.EngineCodex && engine != domain.EngineClaude {
			return domain.Persona{}, fmt.Errorf("persona %s: %w: %q", agent.ID, domain.ErrUnsupportedEngine, fm.Engine)
		}
		persona.Engine = engine
	}

	if persona.Body == "" {
		generated := Generate(agent, path)
		persona.Body = generated.Body
	}
	return persona, nil
}

// Generate builds the fallback persona for agent.
func Generate(agent domain.Agent, path string) domain.Persona {
	return domain.Persona{
		AgentID:     agent.ID,
		Name:        agent.Name,
		Description: fmt.Sprintf("%s on the %s team", agent.Name, agent.Team.Label()),
		Body:        defaultBody(agent),
		Path:        path,
		Generated:   true,
	}
}

func defaultBody(agent domain.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s)\n\n", agent.Name, agent.ID)
	fmt.Fprintf(&b, "You are the %s of the %s team.\n", agent.Name, agent.Team.Label())
	fmt.Fprintf(&b, "Your focus areas: %s.\n\n", strings.Join(agent.Keywords, ", "))
	b.WriteString("Answer from your specialty only. Be concrete: name files, commands and trade-offs.\n")
	b.WriteString("Flag risks you see outside your specialty in one line instead of solving them.\n")
	return b.String()
}

// Scaffold writes a persona file for every agent under dir. Existing files
// are kept unless overwrite is set. It returns the paths written.
func Scaffold(dir string, agents []domain.Agent, overwrite bool) ([]string, error) {
	var written []string
	for _, agent := range agents {
		path := agent.PromptPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}

		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				continue
			}
		}

		generated := Generate(agent, path)
		data, err := writeFrontMatter(frontMatter{
			Name:        generated.Name,
			Description: generated.Description,
		}, []byte(generated.Body))
		if err != nil {
			return written, err
		}

		if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
			return written, fmt.Errorf("scaffold persona %s: %w", agent.ID, err)
		}
		written = append(written, path)
	}
	return written, nil
}
