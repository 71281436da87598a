package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"autoskip/internal/paths"
)

// CurrentVersion is the only supported config schema version
const CurrentVersion = 1

// PyprojectFile is the file whose [tool.autoskip] table is read as config
const PyprojectFile = "pyproject.toml"

// EnvPrefix prefixes environment overrides, e.g. AUTOSKIP_BASE_REF
const EnvPrefix = "AUTOSKIP"

// Config represents the complete autoskip configuration
type Config struct {
	Version int `json:"version" mapstructure:"version"`

	// Enabled turns skip evaluation on. When false every test runs.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// BaseRef is the comparison point for the changed-file diff
	BaseRef string `json:"base_ref" mapstructure:"base_ref"`

	// SafeMode forces a run whenever a dependency name cannot be resolved
	SafeMode bool `json:"safe_mode" mapstructure:"safe_mode"`

	// IncludeUncommitted adds working-tree, staged and untracked changes
	IncludeUncommitted bool `json:"include_uncommitted" mapstructure:"include_uncommitted"`

	// SearchPaths are repo-relative (or absolute) import roots, like PYTHONPATH
	SearchPaths []string `json:"search_paths" mapstructure:"search_paths"`

	// Ignore lists extra module names never traversed (a package covers its submodules)
	Ignore []string `json:"ignore" mapstructure:"ignore"`

	Interpreter InterpreterConfig `json:"interpreter" mapstructure:"interpreter"`
	Discovery   DiscoveryConfig   `json:"discovery" mapstructure:"discovery"`
	Pytest      PytestConfig      `json:"pytest" mapstructure:"pytest"`
	Resolver    ResolverConfig    `json:"resolver" mapstructure:"resolver"`
	Git         GitConfig         `json:"git" mapstructure:"git"`
	History     HistoryConfig     `json:"history" mapstructure:"history"`
	Logging     LoggingConfig     `json:"logging" mapstructure:"logging"`
}

// InterpreterConfig controls querying a Python interpreter for sys.path
type InterpreterConfig struct {
	Enabled bool     `json:"enabled" mapstructure:"enabled"`
	Command []string `json:"command" mapstructure:"command"`
}

// DiscoveryConfig controls how test modules are found
type DiscoveryConfig struct {
	TestPaths []string `json:"test_paths" mapstructure:"test_paths"`
	Patterns  []string `json:"patterns" mapstructure:"patterns"`
	Exclude   []string `json:"exclude" mapstructure:"exclude"`
}

// PytestConfig controls how `autoskip run` invokes pytest
type PytestConfig struct {
	Command []string `json:"command" mapstructure:"command"`
}

// ResolverConfig contains module resolver settings
type ResolverConfig struct {
	CacheSize int `json:"cache_size" mapstructure:"cache_size"`
}

// GitConfig contains git backend settings
type GitConfig struct {
	TimeoutMs int `json:"timeout_ms" mapstructure:"timeout_ms"`
}

// HistoryConfig controls recording of session decisions
type HistoryConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:            CurrentVersion,
		Enabled:            true,
		BaseRef:            "origin/master",
		SafeMode:           false,
		IncludeUncommitted: false,
		SearchPaths:        []string{"."},
		Ignore:             []string{},
		Interpreter: InterpreterConfig{
			Enabled: true,
			Command: []string{"python3"},
		},
		Discovery: DiscoveryConfig{
			TestPaths: []string{"."},
			Patterns:  []string{"test_*.py", "*_test.py"},
			Exclude:   []string{".git", ".tox", ".venv", "venv", "__pycache__", "node_modules", "build", "dist", "site-packages"},
		},
		Pytest: PytestConfig{
			Command: []string{"python3", "-m", "pytest"},
		},
		Resolver: ResolverConfig{
			CacheSize: 4096,
		},
		Git: GitConfig{
			TimeoutMs: 30000,
		},
		History: HistoryConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// defaultsMap flattens DefaultConfig into viper keys so that every key is
// known to viper (required for environment overrides to apply on Unmarshal).
func defaultsMap() map[string]interface{} {
	d := DefaultConfig()
	return map[string]interface{}{
		"version":              d.Version,
		"enabled":              d.Enabled,
		"base_ref":             d.BaseRef,
		"safe_mode":            d.SafeMode,
		"include_uncommitted":  d.IncludeUncommitted,
		"search_paths":         d.SearchPaths,
		"ignore":               d.Ignore,
		"interpreter.enabled":  d.Interpreter.Enabled,
		"interpreter.command":  d.Interpreter.Command,
		"discovery.test_paths": d.Discovery.TestPaths,
		"discovery.patterns":   d.Discovery.Patterns,
		"discovery.exclude":    d.Discovery.Exclude,
		"pytest.command":       d.Pytest.Command,
		"resolver.cache_size":  d.Resolver.CacheSize,
		"git.timeout_ms":       d.Git.TimeoutMs,
		"history.enabled":      d.History.Enabled,
		"logging.format":       d.Logging.Format,
		"logging.level":        d.Logging.Level,
	}
}

// LoadConfig loads configuration for repoRoot. Sources, lowest precedence first:
// built-in defaults, [tool.autoskip] in pyproject.toml, .autoskip/config.json,
// AUTOSKIP_* environment variables. CLI flags are applied by the caller.
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	for key, value := range defaultsMap() {
		v.SetDefault(key, value)
	}

	table, err := readPyprojectTable(filepath.Join(repoRoot, PyprojectFile))
	if err != nil {
		return nil, err
	}
	if table != nil {
		if err := v.MergeConfigMap(table); err != nil {
			return nil, &ConfigError{Field: "tool.autoskip", Message: err.Error()}
		}
	}

	configPath := paths.GetConfigPath(repoRoot)
	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		v.SetConfigType("json")
		if err := v.MergeInConfig(); err != nil {
			return nil, &ConfigError{Field: configPath, Message: err.Error()}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigError{Field: "config", Message: err.Error()}
	}

	return &cfg, nil
}

// pyproject mirrors only the part of pyproject.toml we read.
type pyproject struct {
	Tool struct {
		Autoskip map[string]interface{} `toml:"autoskip"`
	} `toml:"tool"`
}

// readPyprojectTable returns the [tool.autoskip] table with dashed keys
// normalized to underscores, or nil when the file or table is absent.
func readPyprojectTable(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", PyprojectFile, err)
	}

	var doc pyproject
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{Field: PyprojectFile, Message: err.Error()}
	}
	if doc.Tool.Autoskip == nil {
		return nil, nil
	}
	return normalizeKeys(doc.Tool.Autoskip), nil
}

func normalizeKeys(table map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(table))
	for k, val := range table {
		if nested, ok := val.(map[string]interface{}); ok {
			val = normalizeKeys(nested)
		}
		out[strings.ReplaceAll(k, "-", "_")] = val
	}
	return out
}

// Save writes the configuration to .autoskip/config.json
func (c *Config) Save(repoRoot string) error {
	if _, err := paths.EnsureDataDir(repoRoot); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(paths.GetConfigPath(repoRoot), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Enabled && strings.TrimSpace(c.BaseRef) == "" {
		return &ConfigError{Field: "base_ref", Message: "must not be empty when enabled"}
	}
	if c.Resolver.CacheSize <= 0 {
		return &ConfigError{Field: "resolver.cache_size", Message: "must be positive"}
	}
	if c.Git.TimeoutMs <= 0 {
		return &ConfigError{Field: "git.timeout_ms", Message: "must be positive"}
	}
	if len(c.Discovery.Patterns) == 0 {
		return &ConfigError{Field: "discovery.patterns", Message: "at least one pattern is required"}
	}
	for _, p := range c.Discovery.Patterns {
		if _, err := filepath.Match(p, "x"); err != nil {
			return &ConfigError{Field: "discovery.patterns", Message: fmt.Sprintf("bad pattern %q", p)}
		}
	}
	if len(c.Pytest.Command) == 0 {
		return &ConfigError{Field: "pytest.command", Message: "must not be empty"}
	}
	if c.Interpreter.Enabled && len(c.Interpreter.Command) == 0 {
		return &ConfigError{Field: "interpreter.command", Message: "must not be empty when enabled"}
	}
	switch c.Logging.Format {
	case "human", "json":
	default:
		return &ConfigError{Field: "logging.format", Message: "must be human or json"}
	}
	return nil
}

// ResolvePaths returns dirs made absolute against repoRoot, in order, without duplicates.
func ResolvePaths(repoRoot string, dirs []string) []string {
	seen := make(map[string]bool, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if !filepath.IsAbs(d) {
			d = filepath.Join(repoRoot, d)
		}
		d = filepath.Clean(d)
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
