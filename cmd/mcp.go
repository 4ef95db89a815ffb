package cmd

import (
	"github.com/spf13/cobra"

	mcpadapter "github.com/bnema/hivemind/internal/adapters/mcp"
	"github.com/bnema/hivemind/internal/version"
)

func newMCPCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the memory and route tools over MCP (stdio)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := mcpadapter.New(version.Version, c.app.memory, c.app.router)
			c.app.logger.Info("mcp server started")
			return mcpadapter.Serve(cmd.Context(), s, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
