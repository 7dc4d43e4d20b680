package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pr-creator/pr-creator/pkg/agent"
	"github.com/pr-creator/pr-creator/pkg/ai"
	"github.com/pr-creator/pr-creator/pkg/config"
	"github.com/pr-creator/pr-creator/pkg/git"
	"github.com/pr-creator/pr-creator/pkg/github"
	"github.com/pr-creator/pr-creator/pkg/log"
	"github.com/pr-creator/pr-creator/pkg/prompt"
	"github.com/pr-creator/pr-creator/pkg/tickets"
)

var (
	runRepoPath       string
	runBaseBranch     string
	runBranch         string
	runGitHubToken    string
	runGitHubRepo     string
	runAIProvider     string
	runAIKey          string
	runTicketProvider string
	runTicketKey      string
	runTicketBaseURL  string
	runTicketUsername string
	runDraft          bool
	runLogLevel       string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Create a pull request for the current (or named) branch",
	Long: `Create a pull request for a branch.

The workflow:
1. Check whether the branch is behind the remote base branch; if so, fetch
   and merge the base (a merge conflict stops the run without creating a PR)
2. Skip if an open PR already exists for the branch
3. Collect the branch's commits and any ticket referenced in its name
4. Ask the configured AI provider for a title and description
5. Open the pull request and apply configured labels

Settings are resolved from built-in defaults, PR_CREATOR_* environment
variables, .github/pr-creator.yaml, and flags, in that order (flags win).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		log.SetLevel(settings.LogLevel)

		if err := settings.Validate(); err != nil {
			return err
		}

		owner, repo, err := github.ParseRepo(settings.GitHub.Repo)
		if err != nil {
			return err
		}

		aiClient, err := ai.New(ai.Type(settings.AI.Provider), settings.AI.APIKey)
		if err != nil {
			return err
		}

		gitOpts := git.DefaultClientOptions()
		gitOpts.CIEnvironment = os.Getenv("GITHUB_ACTIONS") == "true"
		gitOpts.CIRef = os.Getenv("GITHUB_REF")
		gitClient := git.NewClientWithOptions(settings.Git.RepoPath, gitOpts)

		if !gitClient.IsRepo(cmd.Context()) {
			return fmt.Errorf("%s is not a git repository", settings.Git.RepoPath)
		}

		var ticketProvider tickets.Provider
		if settings.Tickets.Provider != "" {
			var opts []tickets.Option
			if settings.Tickets.BaseURL != "" {
				opts = append(opts, tickets.WithBaseURL(settings.Tickets.BaseURL))
			}
			ticketProvider, err = tickets.New(tickets.Type(settings.Tickets.Provider), tickets.Credentials{
				APIKey:   settings.Tickets.APIKey,
				Username: settings.Tickets.Username,
			}, opts...)
			if err != nil {
				return err
			}
		}

		compiler, err := prompt.NewCompiler()
		if err != nil {
			return err
		}

		a, err := agent.New(agent.Options{
			Git:        gitClient,
			GitHub:     github.NewClient(settings.GitHub.Token),
			AI:         aiClient,
			Tickets:    ticketProvider,
			TicketType: tickets.Type(settings.Tickets.Provider),
			Compiler:   compiler,
			Owner:      owner,
			Repo:       repo,
			RepoPath:   settings.Git.RepoPath,
			Branch:     settings.Git.BranchName,
			BaseBranch: settings.Git.BaseBranch,
			Remote:     settings.Git.Remote,
			Draft:      settings.GitHub.Draft,
			Labels:     settings.Labels,
		})
		if err != nil {
			return err
		}

		pr, err := a.Run(cmd.Context())
		if err != nil {
			return err
		}
		if pr == nil {
			fmt.Println("No pull request created.")
			return nil
		}

		fmt.Println(pr.URL)
		return nil
	},
}

// loadSettings resolves configuration and overlays the run command's flags,
// which take precedence over every other source.
func loadSettings(cmd *cobra.Command) (*config.Settings, error) {
	dir := runRepoPath
	if dir == "" {
		dir = "."
	}

	settings, err := config.Load(dir)
	if err != nil {
		return nil, err
	}

	if runRepoPath != "" {
		settings.Git.RepoPath = runRepoPath
	}
	if runBaseBranch != "" {
		settings.Git.BaseBranch = runBaseBranch
	}
	if runBranch != "" {
		settings.Git.BranchName = runBranch
	}
	if runGitHubToken != "" {
		settings.GitHub.Token = runGitHubToken
	}
	if runGitHubRepo != "" {
		settings.GitHub.Repo = runGitHubRepo
	}
	if runAIProvider != "" {
		settings.AI.Provider = runAIProvider
	}
	if runAIKey != "" {
		settings.AI.APIKey = runAIKey
	}
	if runTicketProvider != "" {
		settings.Tickets.Provider = runTicketProvider
	}
	if runTicketKey != "" {
		settings.Tickets.APIKey = runTicketKey
	}
	if runTicketBaseURL != "" {
		settings.Tickets.BaseURL = runTicketBaseURL
	}
	if runTicketUsername != "" {
		settings.Tickets.Username = runTicketUsername
	}
	if cmd.Flags().Changed("draft") {
		settings.GitHub.Draft = runDraft
	}
	if runLogLevel != "" {
		settings.LogLevel = runLogLevel
	}

	return settings, nil
}

func init() {
	runCmd.Flags().StringVar(&runRepoPath, "repo-path", "", "Path to the local git repository (default \".\")")
	runCmd.Flags().StringVar(&runBaseBranch, "base-branch", "", "Base branch for the pull request (default \"main\")")
	runCmd.Flags().StringVar(&runBranch, "branch", "", "Head branch (default: currently checked-out branch)")
	runCmd.Flags().StringVar(&runGitHubToken, "github-token", "", "GitHub API token (default: GITHUB_TOKEN env)")
	runCmd.Flags().StringVar(&runGitHubRepo, "github-repo", "", "GitHub repository as owner/name")
	runCmd.Flags().StringVar(&runAIProvider, "ai-provider", "", "AI provider: openai, claude, or gemini (default \"openai\")")
	runCmd.Flags().StringVar(&runAIKey, "ai-api-key", "", "AI provider API key")
	runCmd.Flags().StringVar(&runTicketProvider, "ticket-provider", "", "Ticket provider: clickup or jira (default: none)")
	runCmd.Flags().StringVar(&runTicketKey, "ticket-api-key", "", "Ticket provider API key")
	runCmd.Flags().StringVar(&runTicketBaseURL, "ticket-base-url", "", "Ticket service base URL (required for jira)")
	runCmd.Flags().StringVar(&runTicketUsername, "ticket-username", "", "Ticket service account email (jira basic auth)")
	runCmd.Flags().BoolVar(&runDraft, "draft", false, "Open the pull request as a draft")
	runCmd.Flags().StringVar(&runLogLevel, "log-level", "", "Log level: debug, info, warn, error (default \"info\")")
	rootCmd.AddCommand(runCmd)
}
