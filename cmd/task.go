package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/hivemind/internal/adapters/render"
	"github.com/bnema/hivemind/internal/application"
)

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run <task...>",
		Short: "Route a task to the matching agents and print the merged answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(cmd, c, strings.Join(args, " "))
		},
	}
}

func runTask(cmd *cobra.Command, c *cli, task string) error {
	task = strings.TrimSpace(task)
	if task == "" {
		return errors.New("task is empty")
	}

	var report application.RunReport
	work := func(ctx context.Context) error {
		var err error
		report, err = c.app.orchestrator.Run(ctx, task)
		return err
	}

	var err error
	if c.opts.asJSON {
		err = work(cmd.Context())
	} else {
		label := fmt.Sprintf("Consulting %d agent(s)...", len(c.app.router.Route(task)))
		err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), label, work)
	}
	if err != nil {
		return err
	}

	return writeRunOutput(cmd, c, report)
}

func writeRunOutput(cmd *cobra.Command, c *cli, report application.RunReport) error {
	if c.opts.asJSON {
		return writeJSON(cmd.OutOrStdout(), runView(report))
	}

	summary, err := render.Agents(report)
	if err != nil {
		return fmt.Errorf("render agents: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.ErrOrStderr(), summary); err != nil {
		return err
	}

	text := report.Text
	if c.opts.pretty {
		text = renderMarkdown(text)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(text, "\n"))
	return err
}

// runREPL reads one task per line until EOF, "exit" or "quit". A failed task
// is reported and the loop continues.
func runREPL(cmd *cobra.Command, c *cli) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	prompt(out)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			prompt(out)
			continue
		case "exit", "quit":
			return nil
		}

		if err := runTask(cmd, c, line); err != nil {
			c.app.logger.Sugar().Warnw("task failed", "error", err)
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		prompt(out)
	}
	return scanner.Err()
}

func prompt(out io.Writer) {
	fmt.Fprint(out, "hivemind> ")
}

type runAgentJSON struct {
	Agent   string `json:"agent"`
	Name    string `json:"name"`
	Engine  string `json:"engine"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
	Result  string `json:"result,omitempty"`
}

type runJSON struct {
	Session    string         `json:"session"`
	Task       string         `json:"task"`
	Degraded   bool           `json:"degraded"`
	Agents     []runAgentJSON `json:"agents"`
	Skipped    []string       `json:"skipped,omitempty"`
	Remembered int            `json:"remembered"`
	Summary    string         `json:"summaryPath,omitempty"`
	Answer     string         `json:"answer"`
}

func runView(report application.RunReport) runJSON {
	view := runJSON{
		Session:    report.Session.ID,
		Task:       report.Session.Task,
		Degraded:   report.Degraded(),
		Remembered: len(report.Remembered),
		Summary:    report.SummaryPath,
		Answer:     report.Text,
	}
	for _, out := range report.Agents {
		view.Agents = append(view.Agents, runAgentJSON{
			Agent:   string(out.Agent.ID),
			Name:    out.Agent.Name,
			Engine:  string(out.Engine),
			Outcome: string(out.Outcome),
			Detail:  out.Detail,
			Result:  out.Text,
		})
	}
	for _, id := range report.Skipped {
		view.Skipped = append(view.Skipped, string(id))
	}
	return view
}
