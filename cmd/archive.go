package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newArchiveCmd(c *cli) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Move finished sessions into the archive database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			age := c.app.cfg.ArchiveAge
			if cmd.Flags().Changed("older-than") {
				age = olderThan
			}

			svc, err := c.app.archiveService()
			if err != nil {
				return err
			}
			report, err := svc.ArchiveOlderThan(cmd.Context(), age)
			if err != nil {
				return err
			}

			if c.opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "archived %d session(s) older than %s\n", len(report.Archived), age)
			if len(report.Active) > 0 {
				fmt.Fprintf(out, "kept %d session(s) with unfinished agents\n", len(report.Active))
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Minimum session age (default from archive.older_than)")
	cmd.AddCommand(newArchiveListCmd(c))
	return cmd
}

func newArchiveListCmd(c *cli) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived sessions, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := c.app.archiveService()
			if err != nil {
				return err
			}
			archived, err := svc.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if c.opts.asJSON {
				return writeJSON(cmd.OutOrStdout(), archived)
			}
			out := cmd.OutOrStdout()
			if len(archived) == 0 {
				_, err := fmt.Fprintln(out, "Archive is empty.")
				return err
			}
			for _, a := range archived {
				fmt.Fprintf(out, "%s  %d agent(s), %d failed  archived %s  %s\n",
					a.ID, a.Invocations, a.Failed, a.ArchivedAt.Local().Format("2006-01-02 15:04"), sanitizeForTerminal(a.Task))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Max sessions (0 = all)")
	return cmd
}
