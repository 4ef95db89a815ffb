package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/hivemind/internal/domain"
)

func newSessionCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect sessions in the workspace",
	}

	cmd.AddCommand(newSessionListCmd(c), newSessionShowCmd(c))
	return cmd
}

type invocationJSON struct {
	Agent      string     `json:"agent"`
	Engine     string     `json:"engine,omitempty"`
	Status     string     `json:"status"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Detail     string     `json:"detail,omitempty"`
	Result     string     `json:"result,omitempty"`
}

type sessionJSON struct {
	ID          string           `json:"id"`
	Task        string           `json:"task"`
	CreatedAt   time.Time        `json:"createdAt"`
	Invocations []invocationJSON `json:"invocations"`
}

func toSessionJSON(session domain.Session) sessionJSON {
	view := sessionJSON{ID: session.ID, Task: session.Task, CreatedAt: session.CreatedAt, Invocations: []invocationJSON{}}
	for _, inv := range session.Invocations {
		item := invocationJSON{
			Agent:     string(inv.AgentID),
			Engine:    string(inv.Engine),
			Status:    string(inv.Status),
			StartedAt: inv.StartedAt,
			Detail:    inv.Detail,
		}
		if !inv.FinishedAt.IsZero() {
			finished := inv.FinishedAt
			item.FinishedAt = &finished
		}
		view.Invocations = append(view.Invocations, item)
	}
	return view
}

func newSessionListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := c.app.workspace.ListSessions(cmd.Context())
			if err != nil {
				return err
			}

			if c.opts.asJSON {
				views := make([]sessionJSON, 0, len(sessions))
				for _, s := range sessions {
					views = append(views, toSessionJSON(s))
				}
				return writeJSON(cmd.OutOrStdout(), views)
			}

			out := cmd.OutOrStdout()
			if len(sessions) == 0 {
				_, err := fmt.Fprintln(out, "No sessions.")
				return err
			}
			for _, s := range sessions {
				counts := s.Counts()
				fmt.Fprintf(out, "%s  %d/%d complete  %s\n", s.ID, counts[domain.StatusComplete], len(s.Invocations), sanitizeForTerminal(s.Task))
			}
			return nil
		},
	}
}

func newSessionShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session with each agent's status and result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := c.app.workspace.LoadSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			view := toSessionJSON(session)
			for i, inv := range session.Invocations {
				if !inv.Status.Terminal() {
					continue
				}
				res, err := c.app.workspace.ReadResult(cmd.Context(), inv, time.Second)
				if err != nil && !errors.Is(err, domain.ErrInvocationTimeout) {
					return err
				}
				if res.Outcome == domain.OutcomeComplete {
					view.Invocations[i].Result = res.Text
				}
			}

			if c.opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", view.ID, sanitizeForTerminal(view.Task))
			fmt.Fprintf(out, "created %s\n", view.CreatedAt.Local().Format(time.RFC3339))
			for _, inv := range view.Invocations {
				fmt.Fprintf(out, "\n## %s (%s, %s)\n", inv.Agent, inv.Status, orDash(inv.Engine))
				switch {
				case inv.Result != "":
					fmt.Fprintln(out, strings.TrimRight(inv.Result, "\n"))
				case inv.Detail != "":
					fmt.Fprintln(out, inv.Detail)
				}
			}
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
