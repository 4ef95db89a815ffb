package persona

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var ErrMalformedFrontMatter = errors.New("persona: malformed front matter")

type frontMatter struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Engine      string `yaml:"engine,omitempty"`
}

// parseFrontMatter splits an optional leading `---` YAML block from the body.
// Documents without the opening fence are all body.
func parseFrontMatter(content []byte) (frontMatter, []byte, error) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return frontMatter{}, normalized, nil
	}

	rest := normalized[4:]
	var meta, body []byte
	switch {
	case bytes.HasPrefix(rest, []byte("---\n")):
		body = rest[4:]
	default:
		parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
		if len(parts) < 2 {
			if !bytes.HasSuffix(rest, []byte("\n---")) {
				return frontMatter{}, nil, ErrMalformedFrontMatter
			}
			parts = [][]byte{bytes.TrimSuffix(rest, []byte("\n---")), nil}
		}
		meta, body = parts[0], parts[1]
	}

	var fm frontMatter
	if err := yaml.Unmarshal(meta, &fm); err != nil {
		return frontMatter{}, nil, fmt.Errorf("persona: parse front matter: %w", err)
	}
	return fm, bytes.TrimLeft(body, "\n"), nil
}

func writeFrontMatter(fm frontMatter, body []byte) ([]byte, error) {
	data, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("persona: encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}
