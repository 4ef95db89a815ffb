package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/hivemind/internal/adapters/render"
	"github.com/bnema/hivemind/internal/config"
	"github.com/bnema/hivemind/internal/domain"
)

func writeStatusOutput(cmd *cobra.Command, app *app, asJSON bool) error {
	report, err := app.statusService().Status(cmd.Context())
	if err != nil {
		return err
	}

	if asJSON {
		return writeJSON(cmd.OutOrStdout(), report)
	}

	rendered, err := app.statusRender(report, render.RenderOptions{Now: app.now()})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func writeConfigOutput(cmd *cobra.Command, app *app, asJSON bool) error {
	cfg := app.cfg
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), cfg)
	}

	source := cfg.File
	if !cfg.FileFound {
		source += " (not found, defaults)"
	}

	rendered, err := render.Config(source, configSettings(cfg))
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}

func configSettings(cfg config.Config) []render.Setting {
	agentTable := cfg.AgentTable
	if agentTable == "" {
		agentTable = "(built-in)"
	}

	settings := []render.Setting{
		{Key: "home", Value: cfg.Home},
		{Key: config.KeyPreset, Value: string(cfg.Preset)},
		{Key: config.KeyDefaultAgents, Value: strings.Join(cfg.DefaultAgents, ", ")},
		{Key: config.KeyAgentTable, Value: agentTable},
		{Key: config.KeyTimeout, Value: cfg.Timeout.String()},
		{Key: config.KeyParallelism, Value: strconv.Itoa(cfg.Parallelism)},
		{Key: config.KeyPollInterval, Value: cfg.PollInterval.String()},
		{Key: config.KeyWaitDelay, Value: cfg.KillGrace.String()},
		{Key: config.KeyRecallLimit, Value: strconv.Itoa(cfg.RecallLimit)},
		{Key: config.KeyArchiveAge, Value: cfg.ArchiveAge.String()},
		{Key: config.KeyPassPrefix, Value: cfg.PassPrefix},
	}
	for _, engine := range []domain.Engine{domain.EngineCodex, domain.EngineClaude} {
		e := cfg.Engines[engine]
		settings = append(settings, render.Setting{
			Key:   fmt.Sprintf("engines.%s", engine),
			Value: strings.TrimSpace(e.Binary + " " + strings.Join(e.Args, " ")),
		})
	}
	settings = append(settings,
		render.Setting{Key: config.KeyAgentsDir, Value: cfg.Paths.Agents},
		render.Setting{Key: config.KeyMemoryDir, Value: cfg.Paths.Memory},
		render.Setting{Key: config.KeyWorkspaceDir, Value: cfg.Paths.Workspace},
		render.Setting{Key: config.KeyArchivePath, Value: cfg.Paths.Archive},
		render.Setting{Key: config.KeyLogsDir, Value: cfg.Paths.Logs},
		render.Setting{Key: config.KeyCredentials, Value: cfg.Paths.Credentials},
	)
	return settings
}
