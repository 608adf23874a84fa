// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// ConfigurationError reports a missing or invalid setting (credential, binary,
// bound). It is a structured failure returned to the caller, never a crash.
type ConfigurationError struct {
	Setting string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Setting, e.Reason)
}

// Config holds the entire application configuration.
type Config struct {
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Runner RunnerConfig `mapstructure:"runner" yaml:"runner"`
	Oracle OracleConfig `mapstructure:"oracle" yaml:"oracle"`
	Patch  PatchConfig  `mapstructure:"patch" yaml:"patch"`
	Loop   LoopConfig   `mapstructure:"loop" yaml:"loop"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// RunnerConfig configures the external PHPUnit invocation.
type RunnerConfig struct {
	// Binary overrides auto-detection (vendor/bin/phpunit, then PATH).
	Binary  string        `mapstructure:"binary" yaml:"binary"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// OracleProvider identifies a supported fixing-oracle backend.
type OracleProvider string

const (
	ProviderClaude OracleProvider = "claude"
	ProviderGemini OracleProvider = "gemini"
)

// OracleConfig configures the LLM oracle.
type OracleConfig struct {
	Provider  OracleProvider `mapstructure:"provider" yaml:"provider"`
	Model     string         `mapstructure:"model" yaml:"model"`
	APIKey    string         `mapstructure:"api_key" yaml:"-"`
	Timeout   time.Duration  `mapstructure:"timeout" yaml:"timeout"`
	MaxTokens int            `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// PatchConfig configures the patch engine.
type PatchConfig struct {
	// ProtectedDirs are project-relative subtrees that are never read for
	// context and never writable.
	ProtectedDirs []string `mapstructure:"protected_dirs" yaml:"protected_dirs"`
	// SyntaxChecker selects "php" (external `php -l`) or "treesitter"
	// (in-process parse).
	SyntaxChecker string        `mapstructure:"syntax_checker" yaml:"syntax_checker"`
	PHPBinary     string        `mapstructure:"php_binary" yaml:"php_binary"`
	LintTimeout   time.Duration `mapstructure:"lint_timeout" yaml:"lint_timeout"`
	// Force commits edits that still fail validation after self-repair.
	Force bool `mapstructure:"force" yaml:"force"`
}

// LoopConfig bounds the iteration controller.
type LoopConfig struct {
	MaxErrorsPerBatch int `mapstructure:"max_errors_per_batch" yaml:"max_errors_per_batch"`
	MaxIterations     int `mapstructure:"max_iterations" yaml:"max_iterations"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "remedy")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	// -- Runner --
	v.SetDefault("runner.timeout", "10m")

	// -- Oracle --
	v.SetDefault("oracle.provider", "claude")
	v.SetDefault("oracle.model", "")
	v.SetDefault("oracle.timeout", "5m")
	v.SetDefault("oracle.max_tokens", 8192)

	// -- Patch --
	v.SetDefault("patch.protected_dirs", []string{"vendor"})
	v.SetDefault("patch.syntax_checker", "php")
	v.SetDefault("patch.php_binary", "php")
	v.SetDefault("patch.lint_timeout", "30s")
	v.SetDefault("patch.force", false)

	// -- Loop --
	v.SetDefault("loop.max_errors_per_batch", 3)
	v.SetDefault("loop.max_iterations", 10)
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	// Only the generic variable is bound here; the provider-native variables
	// are consulted per provider below, so a Gemini key is never handed to
	// the Claude client or vice versa.
	_ = v.BindEnv("oracle.api_key", "REMEDY_ORACLE_API_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Oracle.APIKey == "" {
		switch cfg.Oracle.Provider {
		case ProviderClaude:
			cfg.Oracle.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case ProviderGemini:
			cfg.Oracle.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks bounds and enumerations. Credential presence is checked at
// oracle construction, not here, so that dry runs work without a key.
func (c *Config) Validate() error {
	switch c.Oracle.Provider {
	case ProviderClaude, ProviderGemini:
	default:
		return &ConfigurationError{
			Setting: "oracle.provider",
			Reason:  fmt.Sprintf("unsupported provider %q (supported: claude, gemini)", c.Oracle.Provider),
		}
	}
	switch c.Patch.SyntaxChecker {
	case "php", "treesitter":
	default:
		return &ConfigurationError{
			Setting: "patch.syntax_checker",
			Reason:  fmt.Sprintf("unsupported checker %q (supported: php, treesitter)", c.Patch.SyntaxChecker),
		}
	}
	if c.Loop.MaxErrorsPerBatch <= 0 {
		return &ConfigurationError{Setting: "loop.max_errors_per_batch", Reason: "must be a positive integer"}
	}
	if c.Loop.MaxIterations <= 0 {
		return &ConfigurationError{Setting: "loop.max_iterations", Reason: "must be a positive integer"}
	}
	return nil
}
