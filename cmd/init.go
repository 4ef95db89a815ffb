package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/hivemind/internal/adapters/persona"
	"github.com/bnema/hivemind/internal/config"
)

func newInitCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write config.toml and a persona file for every agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if !c.app.cfg.FileFound {
				if err := config.Set(c.app.cfg.File, config.KeyPreset, string(c.app.preset.Name)); err != nil {
					return err
				}
				fmt.Fprintf(out, "wrote %s\n", c.app.cfg.File)
			}

			written, err := persona.Scaffold(c.app.cfg.Paths.Agents, c.app.registry.All(), force)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "wrote %d persona file(s) under %s\n", len(written), c.app.cfg.Paths.Agents)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing persona files")
	return cmd
}
