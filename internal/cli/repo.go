package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tkc/taskdeck/internal/tracker"
	"github.com/tkc/taskdeck/internal/tracker/github"
	"github.com/tkc/taskdeck/internal/tracker/jsonl"
)

var repoCmd = &cobra.Command{
	Use:   "repo",
	Short: "Manage issue tracker repositories",
}

var (
	githubOwner string
	githubRepo  string
	githubToken string
)

var repoAddGitHubCmd = &cobra.Command{
	Use:   "add-github",
	Short: "Add a GitHub repository as an issue tracker",
	Long: `Add a GitHub repository as an issue tracker.

The token needs the 'repo' scope for private repositories.
Create one at: https://github.com/settings/tokens`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if githubOwner == "" || githubRepo == "" || githubToken == "" {
			return fmt.Errorf("--owner, --repo and --token are required")
		}

		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		repo := github.New(githubOwner, githubRepo, githubToken)
		h.mgr.SetRepositories(append(h.mgr.Repositories(), repo))

		fmt.Printf("✓ Added repository %s\n", repo.Name())
		return nil
	},
}

var (
	jsonlName string
	jsonlPath string
)

var repoAddJSONLCmd = &cobra.Command{
	Use:   "add-jsonl",
	Short: "Add a JSONL file as an issue tracker",
	Long: `Add a local JSONL file as an issue tracker.

The file holds one JSON issue per line:
  {"id":"PROJ-1","title":"...","status":"open","updated_at":"..."}`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		if jsonlName == "" || jsonlPath == "" {
			return fmt.Errorf("--name and --path are required")
		}

		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		repo := jsonl.New(jsonlName, jsonlPath)
		h.mgr.SetRepositories(append(h.mgr.Repositories(), repo))

		fmt.Printf("✓ Added repository %s\n", repo.Name())
		return nil
	},
}

var repoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured repositories",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		repos := h.mgr.Repositories()
		if len(repos) == 0 {
			fmt.Println("No repositories configured")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tURL\tCONFIGURED")
		fmt.Fprintln(w, "----\t----\t---\t----------")
		for _, r := range repos {
			configured := "yes"
			if !r.IsConfigured() {
				configured = "no"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name(), r.Type(), r.URL(), configured)
		}
		return w.Flush()
	},
}

var repoRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		var kept []tracker.Repository
		removed := false
		for _, r := range h.mgr.Repositories() {
			if r.Name() == args[0] {
				removed = true
				continue
			}
			kept = append(kept, r)
		}
		if !removed {
			return fmt.Errorf("repository not found: %s", args[0])
		}
		h.mgr.SetRepositories(kept)

		fmt.Printf("✓ Removed repository %s\n", args[0])
		return nil
	},
}

var repoTestCmd = &cobra.Command{
	Use:   "test <name>",
	Short: "Test the connection to a repository",
	Long: `Test the connection to a repository.

Press Ctrl+C to cancel a test in progress.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		var target tracker.Repository
		for _, r := range h.mgr.Repositories() {
			if r.Name() == args[0] {
				target = r
				break
			}
		}
		if target == nil {
			return fmt.Errorf("repository not found: %s", args[0])
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Connecting to %s...\n", target.URL())
		switch err := h.mgr.TestConnection(ctx, target); {
		case err == nil:
			fmt.Println("✓ Connection is successful")
			return nil
		case errors.Is(err, context.Canceled):
			fmt.Println("Cancelled")
			return nil
		default:
			return err
		}
	},
}

func init() {
	repoAddGitHubCmd.Flags().StringVar(&githubOwner, "owner", "", "Repository owner (user or org)")
	repoAddGitHubCmd.Flags().StringVar(&githubRepo, "repo", "", "Repository name")
	repoAddGitHubCmd.Flags().StringVar(&githubToken, "token", "", "Personal access token")

	repoAddJSONLCmd.Flags().StringVar(&jsonlName, "name", "", "Display name")
	repoAddJSONLCmd.Flags().StringVar(&jsonlPath, "path", "", "Path to the JSONL file")

	repoCmd.AddCommand(repoAddGitHubCmd)
	repoCmd.AddCommand(repoAddJSONLCmd)
	repoCmd.AddCommand(repoListCmd)
	repoCmd.AddCommand(repoRemoveCmd)
	repoCmd.AddCommand(repoTestCmd)
}
