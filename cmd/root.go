package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bnema/hivemind/internal/config"
	"github.com/bnema/hivemind/internal/domain"
)

type rootOptions struct {
	showConfig bool
	showStatus bool
	preset     string
	asJSON     bool
	verbose    bool
	pretty     bool
}

// cli holds the lazily wired application shared by every subcommand.
type cli struct {
	opts rootOptions
	app  *app
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   "hivemind [task...]",
		Short: "HIVEMIND: route a task to specialist agents and merge their answers",
		Long: "hivemind routes a natural-language task to a team of specialist agents, runs them in parallel " +
			"through the codex and claude CLIs, and prints one consolidated answer. Without a task it starts an interactive prompt.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationNoWire] == "true" {
				return nil
			}
			return c.wire()
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if c.app == nil {
				return nil
			}
			return c.app.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case c.opts.showConfig:
				return writeConfigOutput(cmd, c.app, c.opts.asJSON)
			case c.opts.showStatus:
				return writeStatusOutput(cmd, c.app, c.opts.asJSON)
			case len(args) > 0:
				return runTask(cmd, c, strings.Join(args, " "))
			case c.opts.preset != "":
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "preset set to %s\n", c.app.preset.Name)
				return err
			default:
				return runREPL(cmd, c)
			}
		},
	}

	flags := rootCmd.Flags()
	flags.BoolVar(&c.opts.showConfig, "config", false, "Print the resolved configuration")
	flags.BoolVar(&c.opts.showStatus, "status", false, "Print engines, memory and session state")
	flags.StringVar(&c.opts.preset, "preset", "", "Persist the engine preset ("+strings.Join(domain.PresetNames(), ", ")+")")
	rootCmd.MarkFlagsMutuallyExclusive("config", "status")

	persistent := rootCmd.PersistentFlags()
	persistent.BoolVar(&c.opts.asJSON, "json", false, "Output JSON")
	persistent.BoolVar(&c.opts.verbose, "verbose", false, "Debug logging, mirrored to stderr")
	persistent.BoolVar(&c.opts.pretty, "pretty", false, "Render markdown answers for the terminal")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(c),
		newRouteCmd(c),
		newAgentsCmd(c),
		newMemoryCmd(c),
		newSessionCmd(c),
		newArchiveCmd(c),
		newEngineCmd(c),
		newInitCmd(c),
		newMCPCmd(c),
	)

	rootCmd.SetHelpCommand(newHelpCmd(c))
	rootCmd.InitDefaultHelpCmd()
	rootCmd.InitDefaultCompletionCmd()
	for _, sub := range rootCmd.Commands() {
		routeStrayTasks(sub, c)
	}

	return rootCmd
}

const annotationNoWire = "hivemind/no-wire"

func (c *cli) wire() error {
	if c.app != nil {
		return nil
	}
	if c.opts.preset != "" {
		if err := persistPreset(c.opts.preset); err != nil {
			return err
		}
	}
	a, err := wireApp(&c.opts)
	if err != nil {
		return err
	}
	c.app = a
	return nil
}

// routeStrayTasks lets an unquoted task that starts with a command name
// ("hivemind session handling for login") run as a task. A command whose own
// argument check fails on a non-empty argument list hands the whole line to
// the orchestrator; groups without a matching child do the same.
func routeStrayTasks(cmd *cobra.Command, c *cli) {
	for _, sub := range cmd.Commands() {
		routeStrayTasks(sub, c)
	}

	if !cmd.Runnable() {
		cmd.Args = cobra.ArbitraryArgs
		cmd.RunE = func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runStrayTask(cmd, c, args)
		}
		return
	}

	validate := cmd.Args
	run := cmd.RunE
	if validate == nil || run == nil {
		return
	}

	stray := false
	cmd.Args = func(cmd *cobra.Command, args []string) error {
		err := validate(cmd, args)
		if err == nil || len(args) == 0 {
			return err
		}
		stray = true
		return nil
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if stray {
			return runStrayTask(cmd, c, args)
		}
		return run(cmd, args)
	}
}

func runStrayTask(cmd *cobra.Command, c *cli, args []string) error {
	changed := ""
	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Changed && changed == "" {
			changed = f.Name
		}
	})
	if changed != "" {
		return fmt.Errorf("%s does not take arguments with --%s: quote the task or use \"hivemind run\"", cmd.CommandPath(), changed)
	}

	if err := c.wire(); err != nil {
		return err
	}
	words := append(strings.Fields(cmd.CommandPath())[1:], args...)
	return runTask(cmd, c, strings.Join(words, " "))
}

func newHelpCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:         "help [command]",
		Short:       "Help about any command",
		Annotations: map[string]string{annotationNoWire: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, rest, err := cmd.Root().Find(args)
			if err == nil && len(rest) == 0 {
				return target.Help()
			}
			// "hivemind help me size the cluster" is a task, not a help topic.
			return runStrayTask(cmd, c, args)
		},
	}
}

func persistPreset(name string) error {
	preset, err := domain.LookupPreset(name)
	if err != nil {
		return err
	}
	home, err := config.ResolveHome()
	if err != nil {
		return err
	}
	return config.Set(config.FilePath(home), config.KeyPreset, string(preset.Name))
}

// ExitCode maps an error to the process exit status: 2 for configuration
// problems, 3 when no engine could run, 1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, config.ErrInvalid), errors.Is(err, domain.ErrUnknownPreset):
		return 2
	case errors.Is(err, domain.ErrNoEngineAvailable):
		return 3
	default:
		return 1
	}
}
