// Package config provides layered settings for pr-creator. Values are
// resolved with increasing precedence: built-in defaults, then PR_CREATOR_*
// environment variables, then .github/pr-creator.yaml, then CLI flags (applied
// by the caller).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/pr-creator/pr-creator/pkg/github"
)

const (
	// ConfigDir is the directory holding the configuration file
	ConfigDir = ".github"
	// ConfigFile is the name of the configuration file
	ConfigFile = "pr-creator.yaml"
	// ConfigPath is the config file path relative to the repository root
	ConfigPath = ConfigDir + "/" + ConfigFile

	// EnvPrefix is the prefix for environment variable overrides
	EnvPrefix = "PR_CREATOR_"
)

// GitSettings locates the repository and branches to operate on.
type GitSettings struct {
	// RepoPath is the local repository directory (default ".").
	RepoPath string `yaml:"repo_path,omitempty"`

	// BaseBranch is the branch pull requests target (default "main").
	BaseBranch string `yaml:"base_branch,omitempty"`

	// BranchName is the head branch; empty means the current branch.
	BranchName string `yaml:"branch_name,omitempty"`

	// Remote is the git remote name (default "origin").
	Remote string `yaml:"remote,omitempty"`
}

// GitHubSettings configures the pull-request host.
type GitHubSettings struct {
	// Token authenticates API calls. Falls back to GITHUB_TOKEN / GH_TOKEN.
	Token string `yaml:"token,omitempty"`

	// Repo is the "owner/name" repository to open pull requests against.
	Repo string `yaml:"repo,omitempty"`

	// Draft opens pull requests as drafts.
	Draft bool `yaml:"draft,omitempty"`
}

// AISettings selects and authenticates the language-model provider.
type AISettings struct {
	// Provider is one of: openai, claude, gemini.
	Provider string `yaml:"provider,omitempty"`

	APIKey string `yaml:"api_key,omitempty"`
}

// TicketSettings selects and authenticates the project-management provider.
type TicketSettings struct {
	// Provider is one of: clickup, jira. Empty disables ticket lookup.
	Provider string `yaml:"provider,omitempty"`

	APIKey string `yaml:"api_key,omitempty"`

	// BaseURL is the service endpoint (required for jira, e.g.
	// https://yourteam.atlassian.net).
	BaseURL string `yaml:"base_url,omitempty"`

	// Username is the account email for providers using basic auth (jira).
	Username string `yaml:"username,omitempty"`
}

// Settings is the full configuration for a pr-creator run.
type Settings struct {
	Git     GitSettings    `yaml:"git,omitempty"`
	GitHub  GitHubSettings `yaml:"github,omitempty"`
	AI      AISettings     `yaml:"ai,omitempty"`
	Tickets TicketSettings `yaml:"tickets,omitempty"`

	// Labels maps changed-file patterns to labels added to created PRs.
	Labels []github.LabelRule `yaml:"labels,omitempty"`

	// LogLevel is the log verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty"`
}

// Defaults returns the built-in settings.
func Defaults() *Settings {
	return &Settings{
		Git: GitSettings{
			RepoPath:   ".",
			BaseBranch: "main",
			Remote:     "origin",
		},
		AI:       AISettings{Provider: "openai"},
		LogLevel: "info",
	}
}

// Load resolves settings for the repository at dir: defaults, overlaid with
// environment variables, overlaid with .github/pr-creator.yaml found in dir
// or its parents. A missing config file is not an error.
func Load(dir string) (*Settings, error) {
	s := Defaults()
	s.applyEnv()

	configPath, err := findConfigPath(dir)
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		return s, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
	}

	return s, nil
}

// findConfigPath searches dir and its parents for the config file.
// It returns the full path, or empty string if not found.
func findConfigPath(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	for {
		configPath := filepath.Join(absDir, ConfigPath)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}

		parentDir := filepath.Dir(absDir)
		if parentDir == absDir {
			return "", nil
		}
		absDir = parentDir
	}
}

// applyEnv overlays PR_CREATOR_* environment variables, with GITHUB_TOKEN and
// GH_TOKEN as fallbacks for the GitHub token.
func (s *Settings) applyEnv() {
	setFromEnv(&s.Git.RepoPath, "REPO_PATH")
	setFromEnv(&s.Git.BaseBranch, "BASE_BRANCH")
	setFromEnv(&s.Git.BranchName, "BRANCH_NAME")
	setFromEnv(&s.Git.Remote, "REMOTE")

	setFromEnv(&s.GitHub.Token, "GITHUB_TOKEN")
	if s.GitHub.Token == "" {
		if v := os.Getenv("GITHUB_TOKEN"); v != "" {
			s.GitHub.Token = v
		} else if v := os.Getenv("GH_TOKEN"); v != "" {
			s.GitHub.Token = v
		}
	}
	setFromEnv(&s.GitHub.Repo, "GITHUB_REPO")

	setFromEnv(&s.AI.Provider, "AI_PROVIDER")
	setFromEnv(&s.AI.APIKey, "AI_API_KEY")

	setFromEnv(&s.Tickets.Provider, "TICKET_PROVIDER")
	setFromEnv(&s.Tickets.APIKey, "TICKET_API_KEY")
	setFromEnv(&s.Tickets.BaseURL, "TICKET_BASE_URL")
	setFromEnv(&s.Tickets.Username, "TICKET_USERNAME")

	setFromEnv(&s.LogLevel, "LOG_LEVEL")
}

func setFromEnv(dst *string, suffix string) {
	if v := os.Getenv(EnvPrefix + suffix); v != "" {
		*dst = v
	}
}

// ResolveString returns the effective value for a string field.
// Precedence: cliValue > configValue > defaultValue.
// Returns the effective value and its source ("cli", "config", or "default").
func ResolveString(cliValue, configValue, defaultValue string) (string, string) {
	if cliValue != "" {
		return cliValue, "cli"
	}
	if configValue != "" {
		return configValue, "config"
	}
	return defaultValue, "default"
}

// Validate reports configuration errors that would make a run impossible.
func (s *Settings) Validate() error {
	if s.GitHub.Token == "" {
		return fmt.Errorf("github token is required (set %sGITHUB_TOKEN, GITHUB_TOKEN, or github.token in %s)", EnvPrefix, ConfigPath)
	}
	if s.GitHub.Repo == "" {
		return fmt.Errorf("github repository is required (owner/name)")
	}
	if _, _, err := github.ParseRepo(s.GitHub.Repo); err != nil {
		return err
	}
	if s.Tickets.Provider == "jira" {
		if s.Tickets.BaseURL == "" {
			return fmt.Errorf("tickets.base_url is required for the jira provider")
		}
		if s.Tickets.Username == "" {
			return fmt.Errorf("tickets.username is required for the jira provider")
		}
	}
	return nil
}
