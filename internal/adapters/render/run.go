package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/hivemind/internal/application"
	"github.com/bnema/hivemind/internal/domain"
)

// Agents renders the per-agent outcome list of a run.
func Agents(report application.RunReport) (string, error) {
	return run(func(s styles) string { return agentsView(report, s) })
}

func agentsView(report application.RunReport, s styles) string {
	lines := []string{s.header.Render(fmt.Sprintf("session %s", report.Session.ID))}
	for _, out := range report.Agents {
		mark := s.ok.Render("✓")
		note := ""
		switch out.Outcome {
		case domain.OutcomeComplete:
		case domain.OutcomeTimeout:
			mark = s.warning.Render("⏱")
			note = out.Detail
		default:
			mark = s.warning.Render("✗")
			note = firstLine(out.Detail)
		}

		line := lipgloss.JoinHorizontal(lipgloss.Top,
			mark, " ",
			s.key.Render(string(out.Agent.ID)), " ",
			s.detail.Render(fmt.Sprintf("%s via %s", out.Agent.Name, out.Engine)),
		)
		if note != "" {
			line += " " + s.empty.Render(note)
		}
		lines = append(lines, line)
	}
	for _, id := range report.Skipped {
		lines = append(lines, s.warning.Render("✗")+" "+s.key.Render(string(id))+" "+s.empty.Render("not resolved"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Markdown renders md for the terminal. It falls back to the raw text when
// glamour cannot build a renderer.
func Markdown(md string, width int) string {
	if width <= 0 {
		width = 80
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
