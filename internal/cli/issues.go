package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "Query remote issues",
}

var (
	issuesQuery string
	issuesMax   int
	issuesForce bool
)

var issuesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch issues from all configured repositories",
	Long: `Fetch issues from all configured repositories.

Repositories that failed recently are skipped unless --force is given.
When nothing can be fetched, cached issues from the last successful
request are shown instead.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		issues := h.mgr.Issues(ctx, issuesQuery, issuesMax, time.Time{}, issuesForce, cfg.SearchClosedTasks)
		if len(issues) == 0 {
			fmt.Println("No issues found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSUMMARY\tREPOSITORY\tUPDATED")
		fmt.Fprintln(w, "--\t-------\t----------\t-------")
		for _, issue := range issues {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", issue.ID, truncate(issue.Summary, 50), issue.Repository, issue.Updated.Format("2006-01-02"))
		}
		w.Flush()

		fmt.Println()
		fmt.Printf("Total: %d issues\n", len(issues))
		return nil
	},
}

var issuesUpdateCmd = &cobra.Command{
	Use:   "update <issue-id>",
	Short: "Refresh a single issue and merge it into the local task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		task := h.mgr.UpdateIssue(ctx, args[0])
		if task == nil {
			return fmt.Errorf("issue not found in any repository: %s", args[0])
		}

		printTaskDetail(task)
		return nil
	},
}

func init() {
	issuesListCmd.Flags().StringVarP(&issuesQuery, "query", "q", "", "Filter issues by text")
	issuesListCmd.Flags().IntVar(&issuesMax, "max", 50, "Maximum issues per repository")
	issuesListCmd.Flags().BoolVar(&issuesForce, "force", false, "Retry repositories that failed recently")

	issuesCmd.AddCommand(issuesListCmd)
	issuesCmd.AddCommand(issuesUpdateCmd)
}
