package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type routeJSON struct {
	Agent    string   `json:"agent"`
	Name     string   `json:"name"`
	Team     string   `json:"team"`
	Engine   string   `json:"engine"`
	Keywords []string `json:"keywords,omitempty"`
}

func newRouteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "route <task...>",
		Short: "Show which agents a task would be sent to, without running them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			task := strings.Join(args, " ")
			matched := map[string][]string{}
			for _, m := range c.app.router.Explain(task) {
				matched[string(m.Agent.ID)] = m.Keywords
			}

			planned, skipped := c.app.orchestrator.Plan(task)
			views := make([]routeJSON, 0, len(planned))
			for _, p := range planned {
				views = append(views, routeJSON{
					Agent:    string(p.Agent.ID),
					Name:     p.Agent.Name,
					Team:     string(p.Agent.Team),
					Engine:   string(p.Engine),
					Keywords: matched[string(p.Agent.ID)],
				})
			}

			if c.opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), views)
			}

			out := cmd.OutOrStdout()
			if len(matched) == 0 {
				fmt.Fprintln(out, "No keyword matched; using the default agents.")
			}
			for _, v := range views {
				line := fmt.Sprintf("%s  %-28s %-6s %s", v.Agent, v.Name, v.Engine, strings.Join(v.Keywords, ", "))
				fmt.Fprintln(out, strings.TrimRight(line, " "))
			}
			for _, id := range skipped {
				fmt.Fprintf(out, "%s  (not resolvable)\n", id)
			}
			return nil
		},
	}
}
