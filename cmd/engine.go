package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/hivemind/internal/domain"
)

func newEngineCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Manage engine credentials",
	}

	key := &cobra.Command{
		Use:   "key",
		Short: "Store or remove the API key handed to an engine",
	}
	key.AddCommand(newEngineKeySetCmd(c), newEngineKeyRemoveCmd(c))

	cmd.AddCommand(key)
	return cmd
}

func newEngineKeySetCmd(c *cli) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set <engine>",
		Short: "Store an API key (pass first, file fallback); read from stdin without --value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := domain.Engine(strings.ToLower(args[0]))
			if !cmd.Flags().Changed("value") {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read api key from stdin: %w", err)
				}
				value = line
			}

			if err := c.app.credentials.Set(cmd.Context(), engine, value); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "stored api key for %s\n", engine)
			return err
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "API key value")
	return cmd
}

func newEngineKeyRemoveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <engine>",
		Short: "Remove a stored API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := domain.Engine(strings.ToLower(args[0]))
			if err := c.app.credentials.Remove(cmd.Context(), engine); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "removed api key for %s\n", engine)
			return err
		},
	}
}
