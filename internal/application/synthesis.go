package application

import (
	"fmt"
	"strings"

	"github.com/bnema/hivemind/internal/domain"
)

// BuildPrompt assembles what an engine receives on stdin: the persona, any
// recalled memory, then the task.
func BuildPrompt(persona domain.Persona, agent domain.Agent, task string, memories []domain.ScoredEntry) string {
	var b strings.Builder

	body := strings.TrimSpace(persona.Body)
	if body == "" {
		body = fmt.Sprintf("You are the %s (%s).", agent.Name, agent.ID)
	}
	b.WriteString(body)
	b.WriteString("\n\n")

	if len(memories) > 0 {
		b.WriteString("## Relevant memory\n")
		for _, m := range memories {
			fmt.Fprintf(&b, "- [%s] %s\n", m.Entry.Type, m.Entry.Content)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Task\n")
	b.WriteString(strings.TrimSpace(task))
	b.WriteString("\n")
	return b.String()
}

// Synthesize merges the agent answers, in route order, into one first-person
// markdown answer. Missing expertise is called out at the end.
func Synthesize(task string, outcomes []AgentOutcome, skipped []domain.AgentID) string {
	var (
		answered    []AgentOutcome
		unavailable []string
	)
	for _, out := range outcomes {
		if out.Outcome == domain.OutcomeComplete && strings.TrimSpace(out.Text) != "" {
			answered = append(answered, out)
			continue
		}
		unavailable = append(unavailable, fmt.Sprintf("%s (%s): %s", out.Agent.Name, out.Agent.ID, reason(out)))
	}
	for _, id := range skipped {
		unavailable = append(unavailable, fmt.Sprintf("%s: could not be resolved", id))
	}

	var b strings.Builder
	switch len(answered) {
	case 0:
		fmt.Fprintf(&b, "I could not get an answer for %q from any specialist.\n", strings.TrimSpace(task))
	case 1:
		fmt.Fprintf(&b, "I looked at this as %s.\n", label(answered[0].Agent))
	default:
		names := make([]string, 0, len(answered))
		for _, out := range answered {
			names = append(names, label(out.Agent))
		}
		fmt.Fprintf(&b, "I looked at this from %d angles: %s.\n", len(answered), joinList(names))
	}

	for _, out := range answered {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", out.Agent.Name, strings.TrimSpace(out.Text))
	}

	if len(unavailable) > 0 {
		b.WriteString("\n---\n\n")
		b.WriteString("Some expertise was unavailable for this answer:\n\n")
		for _, line := range unavailable {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	return b.String()
}

func reason(out AgentOutcome) string {
	switch {
	case out.Outcome == domain.OutcomeTimeout:
		if out.Detail != "" {
			return out.Detail
		}
		return "timed out"
	case out.EngineMissing:
		return fmt.Sprintf("%s (%s)", firstLine(out.Detail), installHint)
	case out.Detail != "":
		return firstLine(out.Detail)
	default:
		return "no answer"
	}
}

func label(agent domain.Agent) string {
	return fmt.Sprintf("the %s (%s)", strings.ToLower(agent.Name), agent.ID)
}

func joinList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return items[0] + " and " + items[1]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(s), "\n")
	return line
}
