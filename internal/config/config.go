// Package config resolves the hivemind home directory and reads config.toml,
// environment overrides (HIVEMIND_*) and .env files into a Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/bnema/hivemind/internal/domain"
)

const (
	configName = "config"
	configType = "toml"
	envPrefix  = "HIVEMIND"
	homeEnv    = "HIVEMIND_HOME"
	defaultDir = ".hivemind"

	KeyPreset        = "preset"
	KeyDefaultAgents = "router.default_agents"
	KeyAgentTable    = "router.agent_table"
	KeyTimeout       = "orchestrator.timeout"
	KeyParallelism   = "orchestrator.parallelism"
	KeyPollInterval  = "orchestrator.poll_interval"
	KeyWaitDelay     = "orchestrator.kill_grace"
	KeyRecallLimit   = "orchestrator.recall_limit"
	KeyAgentsDir     = "paths.agents"
	KeyMemoryDir     = "paths.memory"
	KeyWorkspaceDir  = "paths.workspace"
	KeyArchivePath   = "paths.archive"
	KeyLogsDir       = "paths.logs"
	KeyCredentials   = "paths.credentials"
	KeyPassPrefix    = "credentials.pass_prefix"
	KeyArchiveAge    = "archive.older_than"
)

// ErrInvalid marks configuration problems; the CLI maps it to exit code 2.
var ErrInvalid = errors.New("invalid configuration")

type EngineSettings struct {
	Binary string   `json:"binary"`
	Args   []string `json:"args"`
}

type Paths struct {
	Agents      string `json:"agents"`
	Memory      string `json:"memory"`
	Workspace   string `json:"workspace"`
	Archive     string `json:"archive"`
	Logs        string `json:"logs"`
	Credentials string `json:"credentials"`
}

type Config struct {
	Home          string                           `json:"home"`
	File          string                           `json:"file"`
	FileFound     bool                             `json:"fileFound"`
	Preset        domain.PresetName                `json:"preset"`
	DefaultAgents []string                         `json:"defaultAgents"`
	AgentTable    string                           `json:"agentTable,omitempty"`
	Timeout       time.Duration                    `json:"timeout"`
	Parallelism   int                              `json:"parallelism"`
	PollInterval  time.Duration                    `json:"pollInterval"`
	KillGrace     time.Duration                    `json:"killGrace"`
	RecallLimit   int                              `json:"recallLimit"`
	ArchiveAge    time.Duration                    `json:"archiveOlderThan"`
	PassPrefix    string                           `json:"passPrefix"`
	Engines       map[domain.Engine]EngineSettings `json:"engines"`
	Paths         Paths                            `json:"paths"`
}

// ResolveHome returns $HIVEMIND_HOME, or ~/.hivemind.
func ResolveHome() (string, error) {
	if home := strings.TrimSpace(os.Getenv(homeEnv)); home != "" {
		return normalizePath(home)
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(userHome, defaultDir), nil
}

// FilePath is the config.toml location under home.
func FilePath(home string) string {
	return filepath.Join(home, configName+"."+configType)
}

// Load reads the configuration rooted at home. A missing config.toml is not
// an error; defaults apply.
func Load(home string, cfg *viper.Viper) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	home, err := normalizePath(home)
	if err != nil {
		return Config{}, err
	}

	loadDotEnv(filepath.Join(home, ".env"), ".env")
	setDefaults(cfg, home)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(home)
	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	found := true
	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("%w: read config file: %v", ErrInvalid, err)
		}
		found = false
	}

	out := Config{
		Home:          home,
		File:          FilePath(home),
		FileFound:     found,
		Preset:        domain.PresetName(strings.ToLower(strings.TrimSpace(cfg.GetString(KeyPreset)))),
		DefaultAgents: cfg.GetStringSlice(KeyDefaultAgents),
		AgentTable:    cfg.GetString(KeyAgentTable),
		Timeout:       cfg.GetDuration(KeyTimeout),
		Parallelism:   cfg.GetInt(KeyParallelism),
		PollInterval:  cfg.GetDuration(KeyPollInterval),
		KillGrace:     cfg.GetDuration(KeyWaitDelay),
		RecallLimit:   cfg.GetInt(KeyRecallLimit),
		ArchiveAge:    cfg.GetDuration(KeyArchiveAge),
		PassPrefix:    cfg.GetString(KeyPassPrefix),
		Engines:       map[domain.Engine]EngineSettings{},
		Paths: Paths{
			Agents:      cfg.GetString(KeyAgentsDir),
			Memory:      cfg.GetString(KeyMemoryDir),
			Workspace:   cfg.GetString(KeyWorkspaceDir),
			Archive:     cfg.GetString(KeyArchivePath),
			Logs:        cfg.GetString(KeyLogsDir),
			Credentials: cfg.GetString(KeyCredentials),
		},
	}

	for _, engine := range []domain.Engine{domain.EngineCodex, domain.EngineClaude} {
		out.Engines[engine] = EngineSettings{
			Binary: cfg.GetString(engineKey(engine, "binary")),
			Args:   cfg.GetStringSlice(engineKey(engine, "args")),
		}
	}

	if out.AgentTable != "" {
		if out.AgentTable, err = resolveIn(home, out.AgentTable); err != nil {
			return Config{}, err
		}
	}
	for _, p := range []*string{&out.Paths.Agents, &out.Paths.Memory, &out.Paths.Workspace, &out.Paths.Archive, &out.Paths.Logs, &out.Paths.Credentials} {
		if *p, err = resolveIn(home, *p); err != nil {
			return Config{}, err
		}
	}

	if err := out.Validate(); err != nil {
		return Config{}, err
	}
	return out, nil
}

func (c Config) Validate() error {
	var problems []string
	if _, err := domain.LookupPreset(string(c.Preset)); err != nil {
		problems = append(problems, err.Error())
	}
	if c.Timeout <= 0 {
		problems = append(problems, fmt.Sprintf("%s must be positive", KeyTimeout))
	}
	if c.Parallelism < 1 {
		problems = append(problems, fmt.Sprintf("%s must be at least 1", KeyParallelism))
	}
	if c.PollInterval <= 0 {
		problems = append(problems, fmt.Sprintf("%s must be positive", KeyPollInterval))
	}
	for engine, settings := range c.Engines {
		if strings.TrimSpace(settings.Binary) == "" {
			problems = append(problems, fmt.Sprintf("engines.%s.binary is empty", engine))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func setDefaults(cfg *viper.Viper, home string) {
	cfg.SetDefault(KeyPreset, string(domain.PresetRecommended))
	cfg.SetDefault(KeyDefaultAgents, []string{"DEV-001"})
	cfg.SetDefault(KeyAgentTable, "")
	cfg.SetDefault(KeyTimeout, "10m")
	cfg.SetDefault(KeyParallelism, 4)
	cfg.SetDefault(KeyPollInterval, "500ms")
	cfg.SetDefault(KeyWaitDelay, "5s")
	cfg.SetDefault(KeyRecallLimit, 5)
	cfg.SetDefault(KeyArchiveAge, "168h")
	cfg.SetDefault(KeyPassPrefix, "hivemind")
	cfg.SetDefault(engineKey(domain.EngineCodex, "binary"), "codex")
	cfg.SetDefault(engineKey(domain.EngineCodex, "args"), []string{"exec", "-"})
	cfg.SetDefault(engineKey(domain.EngineClaude, "binary"), "claude")
	cfg.SetDefault(engineKey(domain.EngineClaude, "args"), []string{"-p"})
	cfg.SetDefault(KeyAgentsDir, filepath.Join(home, "agents"))
	cfg.SetDefault(KeyMemoryDir, filepath.Join(home, "memory"))
	cfg.SetDefault(KeyWorkspaceDir, filepath.Join(home, "workspace"))
	cfg.SetDefault(KeyArchivePath, filepath.Join(home, "archive.db"))
	cfg.SetDefault(KeyLogsDir, filepath.Join(home, "logs"))
	cfg.SetDefault(KeyCredentials, filepath.Join(home, "credentials"))
}

func engineKey(engine domain.Engine, field string) string {
	return "engines." + string(engine) + "." + field
}

// loadDotEnv loads the files that exist. Variables already set win.
func loadDotEnv(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

func resolveIn(home, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	if !filepath.IsAbs(path) && !strings.HasPrefix(path, "~") {
		path = filepath.Join(home, path)
	}
	return normalizePath(path)
}

func normalizePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: path is empty", ErrInvalid)
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(userHome, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return filepath.Clean(abs), nil
}
