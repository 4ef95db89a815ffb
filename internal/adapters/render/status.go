package render

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/hivemind/internal/application"
	"github.com/bnema/hivemind/internal/domain"
)

type RenderOptions struct {
	Now time.Time
}

// Status renders the `--status` view.
func Status(report application.StatusReport, opts RenderOptions) (string, error) {
	return run(func(s styles) string { return statusView(report, opts, s) })
}

func statusView(report application.StatusReport, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("HIVEMIND status"),
		s.header.Render(fmt.Sprintf("preset: %s  agents: %d", report.Preset, report.Agents)),
		s.section.Render(enginesBlock(report.Engines, s)),
		s.section.Render(memoryBlock(report, s)),
		s.section.Render(sessionsBlock(report, opts, s)),
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func enginesBlock(engines []application.EngineStatus, s styles) string {
	parts := []string{s.heading.Render("Engines")}
	for _, e := range engines {
		state := s.ok.Render("ready")
		if !e.Available {
			state = s.warning.Render("missing")
		}

		key := e.KeySource
		if key == "" {
			key = "none"
		}

		line := lipgloss.JoinHorizontal(lipgloss.Top,
			s.key.Render(fmt.Sprintf("%-7s", e.Engine)),
			" ", state,
			" ", s.detail.Render(fmt.Sprintf("teams: %s  key: %s", teamList(e.Teams), key)),
		)
		parts = append(parts, line)
		if !e.Available && e.Detail != "" {
			parts = append(parts, s.empty.Render("  "+e.Detail))
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func teamList(teams []domain.Team) string {
	if len(teams) == 0 {
		return "-"
	}
	names := make([]string, 0, len(teams))
	for _, t := range teams {
		names = append(names, string(t))
	}
	return strings.Join(names, ",")
}

func memoryBlock(report application.StatusReport, s styles) string {
	parts := []string{s.heading.Render(fmt.Sprintf("Memory (%d entries)", report.Memories))}
	if len(report.Memory) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, append(parts, s.empty.Render("No memories stored."))...)
	}

	for _, st := range report.Memory {
		share := 0.0
		if report.Memories > 0 {
			share = float64(st.Entries) / float64(report.Memories) * 100
		}
		parts = append(parts, lipgloss.JoinHorizontal(lipgloss.Top,
			s.key.Render(fmt.Sprintf("%-24s", st.Scope.Dir()+"/"+st.Category)),
			" ", renderProgressBar(share, 16, s),
			" ", s.detail.Render(fmt.Sprintf("%d", st.Entries)),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func sessionsBlock(report application.StatusReport, opts RenderOptions, s styles) string {
	sessions := report.Sessions
	parts := []string{
		s.heading.Render("Sessions"),
		s.detail.Render(fmt.Sprintf("workspace: %d  in flight: %d  failed invocations: %d  archived: %d",
			sessions.Total, sessions.Running, sessions.Failed, report.Archived)),
	}
	if len(sessions.Recent) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, append(parts, s.empty.Render("No sessions yet."))...)
	}

	for _, session := range sessions.Recent {
		parts = append(parts, sessionLine(session, opts.Now, s))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func sessionLine(session domain.Session, now time.Time, s styles) string {
	counts := session.Counts()
	summary := fmt.Sprintf("%d/%d complete", counts[domain.StatusComplete], len(session.Invocations))
	if n := counts[domain.StatusError]; n > 0 {
		summary += s.warning.Render(fmt.Sprintf(" %d failed", n))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		s.key.Render(session.ID),
		" ", s.detail.Render(truncate(session.Task, 40)),
		" ", s.header.Render("("+formatAge(session.CreatedAt, now)+")"),
		" ", summary,
	)
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatAge(at, now time.Time) string {
	if at.IsZero() {
		return "unknown"
	}
	if now.IsZero() {
		return at.Format(time.RFC3339)
	}

	elapsed := now.Sub(at)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return plural(int(elapsed.Minutes()), "minute") + " ago"
	case elapsed < 24*time.Hour:
		return plural(int(elapsed.Hours()), "hour") + " ago"
	default:
		return plural(int(elapsed.Hours()/24), "day") + " ago"
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func truncate(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
