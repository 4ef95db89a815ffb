package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/hivemind/internal/adapters/persona"
	"github.com/bnema/hivemind/internal/domain"
)

func newAgentsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect the agent table",
	}

	cmd.AddCommand(newAgentsListCmd(c), newAgentsShowCmd(c))
	return cmd
}

type agentJSON struct {
	ID       string   `json:"id"`
	Team     string   `json:"team"`
	Name     string   `json:"name"`
	Engine   string   `json:"engine"`
	Keywords []string `json:"keywords"`
	Prompt   string   `json:"prompt"`
}

func newAgentsListCmd(c *cli) *cobra.Command {
	var team string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every agent, optionally for one team",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter := domain.Team(strings.ToUpper(strings.TrimSpace(team)))
			if filter != "" && !filter.Valid() {
				return fmt.Errorf("unsupported team %q", team)
			}

			var views []agentJSON
			for _, agent := range c.app.registry.All() {
				if filter != "" && agent.Team != filter {
					continue
				}
				views = append(views, agentJSON{
					ID:       string(agent.ID),
					Team:     string(agent.Team),
					Name:     agent.Name,
					Engine:   string(c.app.preset.EngineFor(agent.Team)),
					Keywords: agent.Keywords,
					Prompt:   agent.PromptPath,
				})
			}

			if c.opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), views)
			}

			out := cmd.OutOrStdout()
			current := domain.Team("")
			for _, v := range views {
				if t := domain.Team(v.Team); t != current {
					if current != "" {
						fmt.Fprintln(out)
					}
					fmt.Fprintf(out, "%s (%s)\n", t.Label(), t)
					current = t
				}
				fmt.Fprintf(out, "  %s  %-28s %s\n", v.ID, v.Name, v.Engine)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&team, "team", "", "Team filter: DEV, SEC, INF or QA")
	return cmd
}

func newAgentsShowCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one agent with its resolved persona",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.AgentID(strings.ToUpper(strings.TrimSpace(args[0])))
			agent, ok := c.app.registry.Get(id)
			if !ok {
				return &domain.UnknownAgentError{ID: id}
			}

			path, err := c.app.resolver.Resolve(id)
			if err != nil {
				return err
			}
			p, err := persona.NewLoader().Load(agent, path)
			if err != nil {
				return err
			}

			engine := p.Engine
			if engine == "" {
				engine = c.app.preset.EngineFor(agent.Team)
			}

			if c.opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					agentJSON
					PersonaPath string `json:"personaPath"`
					Generated   bool   `json:"generated"`
					Persona     string `json:"persona"`
				}{
					agentJSON: agentJSON{
						ID: string(agent.ID), Team: string(agent.Team), Name: agent.Name,
						Engine: string(engine), Keywords: agent.Keywords, Prompt: agent.PromptPath,
					},
					PersonaPath: p.Path,
					Generated:   p.Generated,
					Persona:     p.Body,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s  %s\n", agent.ID, agent.Name)
			fmt.Fprintf(out, "team:     %s\n", agent.Team.Label())
			fmt.Fprintf(out, "engine:   %s\n", engine)
			fmt.Fprintf(out, "keywords: %s\n", strings.Join(agent.Keywords, ", "))
			source := p.Path
			if p.Generated {
				source += " (missing, built-in persona)"
			}
			fmt.Fprintf(out, "persona:  %s\n\n", source)

			body := p.Body
			if c.opts.pretty {
				body = renderMarkdown(body)
			}
			_, err = fmt.Fprintln(out, strings.TrimRight(body, "\n"))
			return err
		},
	}
}
