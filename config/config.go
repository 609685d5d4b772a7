package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/clai-dev/clai/errors"
	"gopkg.in/yaml.v3"
)

// Permissions controls which tool invocations are approved without asking.
type Permissions struct {
	// AutoApprove lists tool names that never prompt. "*" approves everything.
	AutoApprove []string `yaml:"auto_approve"`
	// AlwaysDeny lists tool names that are rejected without prompting.
	AlwaysDeny []string `yaml:"always_deny"`
	// AutoApproveReads approves read-risk tools (read_file, glob_files,
	// search_content) without prompting.
	AutoApproveReads bool `yaml:"auto_approve_reads"`
	// SafeCommandClasses are command prefixes that share one session-level
	// approval. Approving "git status" under allow-session covers "git diff".
	SafeCommandClasses []string `yaml:"safe_command_classes"`
}

// Security holds the validator's configurable inputs. The deny-lists
// themselves are immutable; only the allowed roots are user-supplied.
type Security struct {
	// AllowedRoots restricts paths containing traversal markers to these
	// directories. Empty means traversal alone is not rejected.
	AllowedRoots []string `yaml:"allowed_roots"`
}

// Limits are per-tool resource ceilings. Zero values fall back to defaults.
type Limits struct {
	CommandTimeoutSeconds int `yaml:"command_timeout_seconds"`
	FetchTimeoutSeconds   int `yaml:"fetch_timeout_seconds"`
	FetchMaxChars         int `yaml:"fetch_max_chars"`
	MaxGlobResults        int `yaml:"max_glob_results"`
	MaxSearchResults      int `yaml:"max_search_results"`
}

// Context bounds the transcript sent to the model.
type Context struct {
	// MaxTokens is the context budget used for automatic compaction.
	MaxTokens int `yaml:"max_tokens"`
	// CompactionThreshold is the fraction of MaxTokens at which the
	// transcript is compacted automatically.
	CompactionThreshold float64 `yaml:"compaction_threshold"`
	// RetainMessages is how many trailing messages compaction keeps
	// (plus the leading system message).
	RetainMessages int `yaml:"retain_messages"`
	// MaxTurns bounds the model->tool->model chain for one user input.
	MaxTurns int `yaml:"max_turns"`
}

type Config struct {
	LLMClient   string      `yaml:"llm"`
	Model       string      `yaml:"model"`
	Permissions Permissions `yaml:"permissions"`
	Security    Security    `yaml:"security"`
	Limits      Limits      `yaml:"limits"`
	Context     Context     `yaml:"context"`
}

// DefaultSafeCommandClasses collapse a session approval for one command into
// an approval for its whole class. The boundaries are a policy choice, not
// an invariant, which is why they live in config.
var DefaultSafeCommandClasses = []string{
	"git", "go", "npm", "npx", "pnpm", "yarn", "pip", "cargo",
	"make", "ls", "cat", "grep",
}

func defaults() *Config {
	return &Config{
		LLMClient: "openai",
		Model:     "gpt-4o",
		Permissions: Permissions{
			SafeCommandClasses: append([]string(nil), DefaultSafeCommandClasses...),
		},
		Limits: Limits{
			CommandTimeoutSeconds: 120,
			FetchTimeoutSeconds:   30,
			FetchMaxChars:         50000,
			MaxGlobResults:        100,
			MaxSearchResults:      50,
		},
		Context: Context{
			MaxTokens:           128000,
			CompactionThreshold: 0.8,
			RetainMessages:      20,
			MaxTurns:            40,
		},
	}
}

// Default returns the built-in configuration, without reading any files.
func Default() *Config {
	return defaults()
}

// LoadConfig loads configuration from the user's home directory and the
// current working directory, with the latter taking precedence.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	// Load user-level config first
	home, err := os.UserHomeDir()
	if err == nil {
		userConfigPath := filepath.Join(home, ".clai", "config.yaml")
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := loadFromFile(userConfigPath, cfg); err != nil {
				return nil, errors.Wrapf(err, "error loading user config")
			}
		}
	}

	// Load project-level config, overriding user-level
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	projectConfigPath := filepath.Join(wd, ".clai", "config.yaml")
	if _, err := os.Stat(projectConfigPath); err == nil {
		if err := loadFromFile(projectConfigPath, cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading project config")
		}
	}

	cfg.normalize()
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Unmarshal overwrites fields present in the YAML, which gives a simple
	// merge where project-level config replaces user-level.
	return yaml.Unmarshal(data, cfg)
}

// normalize backfills zero values so callers never re-check defaults.
func (c *Config) normalize() {
	d := defaults()
	if c.LLMClient == "" {
		c.LLMClient = d.LLMClient
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if len(c.Permissions.SafeCommandClasses) == 0 {
		c.Permissions.SafeCommandClasses = d.Permissions.SafeCommandClasses
	}
	if c.Limits.CommandTimeoutSeconds <= 0 {
		c.Limits.CommandTimeoutSeconds = d.Limits.CommandTimeoutSeconds
	}
	if c.Limits.FetchTimeoutSeconds <= 0 {
		c.Limits.FetchTimeoutSeconds = d.Limits.FetchTimeoutSeconds
	}
	if c.Limits.FetchMaxChars <= 0 {
		c.Limits.FetchMaxChars = d.Limits.FetchMaxChars
	}
	if c.Limits.MaxGlobResults <= 0 {
		c.Limits.MaxGlobResults = d.Limits.MaxGlobResults
	}
	if c.Limits.MaxSearchResults <= 0 {
		c.Limits.MaxSearchResults = d.Limits.MaxSearchResults
	}
	if c.Context.MaxTokens <= 0 {
		c.Context.MaxTokens = d.Context.MaxTokens
	}
	if c.Context.CompactionThreshold <= 0 || c.Context.CompactionThreshold > 1 {
		c.Context.CompactionThreshold = d.Context.CompactionThreshold
	}
	if c.Context.RetainMessages <= 0 {
		c.Context.RetainMessages = d.Context.RetainMessages
	}
	if c.Context.MaxTurns <= 0 {
		c.Context.MaxTurns = d.Context.MaxTurns
	}
}

// CommandTimeout returns the execute tool's timeout as a duration.
func (c *Config) CommandTimeout() time.Duration {
	return time.Duration(c.Limits.CommandTimeoutSeconds) * time.Second
}

// FetchTimeout returns the fetch tool's request timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Limits.FetchTimeoutSeconds) * time.Second
}
