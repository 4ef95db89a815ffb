package render

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type Setting struct {
	Key   string
	Value string
}

// Config renders the resolved configuration as aligned key/value lines.
func Config(source string, settings []Setting) (string, error) {
	return run(func(s styles) string { return configView(source, settings, s) })
}

func configView(source string, settings []Setting, s styles) string {
	width := 0
	for _, setting := range settings {
		if len(setting.Key) > width {
			width = len(setting.Key)
		}
	}

	lines := []string{
		s.title.Render("HIVEMIND configuration"),
		s.header.Render(source),
		"",
	}
	for _, setting := range settings {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
			s.key.Render(fmt.Sprintf("%-*s", width, setting.Key)),
			"  ",
			s.detail.Render(setting.Value),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
