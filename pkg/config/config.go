package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config represents the application configuration.
// Repository information is derived from jj, not configuration.
// The toml tags keep go-toml output (config init/show) aligned with the
// mapstructure keys viper reads.
type Config struct {
	GitHub   GitHubConfig    `mapstructure:"github" toml:"github"`
	AI       AIConfig        `mapstructure:"ai" toml:"ai"`
	Bookmark BookmarkConfig  `mapstructure:"bookmark" toml:"bookmark"`
	JJ       JJConfig        `mapstructure:"jj" toml:"jj"`
	Jira     JiraConfig      `mapstructure:"jira" toml:"jira"`
	History  HistoryConfig   `mapstructure:"history" toml:"history"`
	Projects []ProjectConfig `mapstructure:"projects" toml:"projects,omitempty"`
}

// GitHubConfig holds GitHub integration configuration
type GitHubConfig struct {
	AuthMethod string `mapstructure:"auth_method" toml:"auth_method"` // "token", "oauth", "gh_cli"
	ClientID   string `mapstructure:"client_id" toml:"client_id"`     // OAuth app client ID (for device flow)
	Token      string `mapstructure:"token" toml:"token"`             // For token auth (JIB_GITHUB_TOKEN env var takes precedence)
	Remote     string `mapstructure:"remote" toml:"remote"`           // Git remote jj pushes to
}

// AIConfig holds AI provider configuration
type AIConfig struct {
	Enabled  bool   `mapstructure:"enabled" toml:"enabled"`
	Provider string `mapstructure:"provider" toml:"provider"`   // "anthropic", "gemini", "ollama"
	Model    string `mapstructure:"model" toml:"model"`         // Empty means use per-provider default
	APIKey   string `mapstructure:"api_key" toml:"api_key"`     // Provider API key (env var takes precedence)
	Role     string `mapstructure:"role" toml:"role"`           // Default conversation role
	RolesDir string `mapstructure:"roles_dir" toml:"roles_dir"` // Directory of role definition files

	// Per-provider default models (used when Model is empty)
	AnthropicModel string `mapstructure:"anthropic_model" toml:"anthropic_model"`
	OllamaModel    string `mapstructure:"ollama_model" toml:"ollama_model"`
	OllamaEndpoint string `mapstructure:"ollama_endpoint" toml:"ollama_endpoint"`
	GeminiModel    string `mapstructure:"gemini_model" toml:"gemini_model"`
}

// BookmarkConfig holds bookmark naming configuration
type BookmarkConfig struct {
	Template string `mapstructure:"template" toml:"template"` // Supports {change_id} and {user}
}

// JJConfig holds configuration for the jj binary itself
type JJConfig struct {
	Binary     string `mapstructure:"binary" toml:"binary"`
	MinVersion string `mapstructure:"min_version" toml:"min_version"`
}

// JiraConfig holds JIRA integration configuration
type JiraConfig struct {
	Enabled        bool   `mapstructure:"enabled" toml:"enabled"`
	BaseURL        string `mapstructure:"base_url" toml:"base_url"`                 // e.g., "https://your-domain.atlassian.net"
	Email          string `mapstructure:"email" toml:"email"`                       // User email for Basic Auth
	Token          string `mapstructure:"token" toml:"token"`                       // API token (JIRA_TOKEN env var takes precedence)
	InReviewStatus string `mapstructure:"in_review_status" toml:"in_review_status"` // Status to transition to after PR create; empty disables
}

// HistoryConfig holds sync history configuration
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled" toml:"enabled"`
	DatabasePath string `mapstructure:"database_path" toml:"database_path"`
}

// ProjectConfig holds per-project reviewer and role configuration.
// Paths are stored with the home directory abbreviated to "~" so one
// config file works across machines.
type ProjectConfig struct {
	Path      string   `mapstructure:"path" toml:"path"`
	Reviewers []string `mapstructure:"reviewers" toml:"reviewers"`
	Role      string   `mapstructure:"role" toml:"role,omitempty"`
}

// SecurityWarning represents a configuration security issue
type SecurityWarning struct {
	Field   string
	Message string
}

// ValidProviders is the list of supported AI providers.
var ValidProviders = []string{"anthropic", "gemini", "ollama"}

// Load loads the configuration from file and environment variables
func Load() (*Config, error) {
	config := &Config{}

	// Set defaults
	setDefaults()

	// Unmarshal the config
	if err := viper.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	// Expand paths
	if err := expandPaths(config); err != nil {
		return nil, errors.Wrap(err, "failed to expand paths")
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return config, nil
}

// Default returns the built-in configuration: the values Load yields when no
// config file or environment overrides are present. Per-user paths come back
// abbreviated to "~" so a file written from the result ports across machines.
func Default() (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal default config")
	}

	config.AI.RolesDir = NormalizeProjectPath(config.AI.RolesDir)
	config.History.DatabasePath = NormalizeProjectPath(config.History.DatabasePath)

	return config, nil
}

// Redacted returns a copy of the configuration with secret values masked,
// suitable for printing.
func (c *Config) Redacted() *Config {
	out := *c
	if out.GitHub.Token != "" {
		out.GitHub.Token = "<redacted>"
	}
	if out.AI.APIKey != "" {
		out.AI.APIKey = "<redacted>"
	}
	if out.Jira.Token != "" {
		out.Jira.Token = "<redacted>"
	}
	return &out
}

// CheckSecurityWarnings returns warnings for insecure configuration practices.
// Call this when loading config to warn users about tokens stored in config files.
func CheckSecurityWarnings(config *Config) []SecurityWarning {
	var warnings []SecurityWarning

	if config.GitHub.Token != "" && os.Getenv("JIB_GITHUB_TOKEN") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "github.token",
			Message: "GitHub token is set in config file. For security, use JIB_GITHUB_TOKEN environment variable or 'gh auth login' instead.",
		})
	}

	if config.Jira.Token != "" && os.Getenv("JIB_JIRA_TOKEN") == "" && os.Getenv("JIRA_TOKEN") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "jira.token",
			Message: "Jira token is set in config file. For security, use JIB_JIRA_TOKEN or JIRA_TOKEN environment variable instead.",
		})
	}

	if config.AI.APIKey != "" && os.Getenv("JIB_AI_API_KEY") == "" &&
		os.Getenv("ANTHROPIC_API_KEY") == "" && os.Getenv("GEMINI_API_KEY") == "" {
		warnings = append(warnings, SecurityWarning{
			Field:   "ai.api_key",
			Message: "AI API key is set in config file. For security, use environment variables (ANTHROPIC_API_KEY, GEMINI_API_KEY, or JIB_AI_API_KEY) instead.",
		})
	}

	return warnings
}

// Validate validates the configuration and returns any validation errors.
func (c *Config) Validate() error {
	if err := validateProvider(c.AI.Provider); err != nil {
		return errors.Wrap(err, "ai.provider")
	}
	if !strings.Contains(c.Bookmark.Template, "{change_id}") {
		return errors.Newf("bookmark template %q must contain {change_id} so names stay unique per change", c.Bookmark.Template)
	}
	return nil
}

// validateProvider validates that an AI provider is supported.
func validateProvider(provider string) error {
	if provider == "" {
		return nil // Empty is allowed, will use default
	}
	for _, valid := range ValidProviders {
		if provider == valid {
			return nil
		}
	}
	return errors.Newf("invalid AI provider %q: must be one of: anthropic, gemini, ollama", provider)
}

// ReviewersFor returns the configured reviewers for a project path.
// The lookup normalizes both sides with NormalizeProjectPath, so config
// entries written on one machine match checkouts on another.
func (c *Config) ReviewersFor(projectPath string) []string {
	if p := c.projectFor(projectPath); p != nil {
		return p.Reviewers
	}
	return nil
}

// RoleFor returns the conversation role for a project path, falling back
// to the global ai.role default.
func (c *Config) RoleFor(projectPath string) string {
	if p := c.projectFor(projectPath); p != nil && p.Role != "" {
		return p.Role
	}
	return c.AI.Role
}

// projectFor finds the project entry matching a path, or nil.
func (c *Config) projectFor(projectPath string) *ProjectConfig {
	want := NormalizeProjectPath(projectPath)
	for i := range c.Projects {
		if NormalizeProjectPath(c.Projects[i].Path) == want {
			return &c.Projects[i]
		}
	}
	return nil
}

// NormalizeProjectPath substitutes the user's home directory with "~" and
// cleans the result. Paths outside the home directory are only cleaned.
func NormalizeProjectPath(path string) string {
	if path == "" {
		return ""
	}

	cleaned := filepath.Clean(path)

	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return cleaned
	}
	homeDir = filepath.Clean(homeDir)

	if cleaned == homeDir {
		return "~"
	}
	if rest, ok := strings.CutPrefix(cleaned, homeDir+string(filepath.Separator)); ok {
		return "~" + string(filepath.Separator) + rest
	}
	return cleaned
}

// setDefaults sets default configuration values on the global viper.
func setDefaults() {
	applyDefaults(viper.GetViper())
}

// applyDefaults registers the default configuration values on a viper
// instance. Load uses the global instance; Default uses a fresh one.
func applyDefaults(v *viper.Viper) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fall back to current directory if home dir can't be determined
		homeDir = "."
	}

	// GitHub defaults
	v.SetDefault("github.auth_method", "gh_cli") // Prefer gh CLI auth
	v.SetDefault("github.client_id", "")         // OAuth app client ID for device flow
	v.SetDefault("github.token", "")
	v.SetDefault("github.remote", "origin")

	// AI defaults
	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.provider", "anthropic")
	v.SetDefault("ai.model", "") // Empty means use per-provider default
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.role", "describe")
	v.SetDefault("ai.roles_dir", filepath.Join(homeDir, ".config", "jib", "roles"))

	// Per-provider AI model defaults (configurable)
	v.SetDefault("ai.anthropic_model", "claude-sonnet-4-20250514")
	v.SetDefault("ai.ollama_model", "llama3.2")
	v.SetDefault("ai.ollama_endpoint", "http://localhost:11434")
	v.SetDefault("ai.gemini_model", "")

	// Bookmark defaults
	v.SetDefault("bookmark.template", "push-{change_id}")

	// jj defaults
	v.SetDefault("jj.binary", "jj")
	v.SetDefault("jj.min_version", "0.14.0")

	// JIRA defaults
	v.SetDefault("jira.enabled", true)
	v.SetDefault("jira.base_url", "")
	v.SetDefault("jira.email", "")
	v.SetDefault("jira.token", "")
	v.SetDefault("jira.in_review_status", "")

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.database_path", filepath.Join(homeDir, ".local", "share", "jib", "history.db"))

	// Projects default to none configured
	v.SetDefault("projects", []ProjectConfig{})
}

// expandPaths expands ~ in paths
func expandPaths(config *Config) error {
	var err error

	config.History.DatabasePath, err = expandPath(config.History.DatabasePath)
	if err != nil {
		return err
	}

	config.AI.RolesDir, err = expandPath(config.AI.RolesDir)
	if err != nil {
		return err
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) (string, error) {
	if len(path) == 0 || path[0] != '~' {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(homeDir, path[1:]), nil
}
