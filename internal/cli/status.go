package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active task and repository health",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		active := h.mgr.ActiveTask()
		fmt.Printf("Active task: %s %s\n", active.ID, active.Summary)
		if active.TimeSpent > 0 {
			fmt.Printf("Time spent:  %s\n", active.TimeSpent.Round(time.Second))
		}

		tasks := h.mgr.LocalTasks(true)
		fmt.Printf("Tasks:       %d\n", len(tasks))

		if total := h.mgr.TotalTimeSpent(); total > 0 {
			fmt.Printf("Total time:  %s\n", total.Round(time.Second))
		}

		repos := h.mgr.Repositories()
		if len(repos) == 0 {
			fmt.Println()
			fmt.Println("No repositories configured. Run: taskdeck repo add-github")
			return nil
		}

		bad := make(map[string]bool)
		for _, r := range h.mgr.BadRepositories() {
			bad[r.Name()] = true
		}

		fmt.Println()
		fmt.Println("Repositories:")
		for _, r := range repos {
			state := "✓"
			switch {
			case bad[r.Name()]:
				state = "✗ unreachable"
			case !r.IsConfigured():
				state = "? not configured"
			}
			fmt.Printf("  %s %s (%s)\n", state, r.Name(), r.Type())
		}
		return nil
	},
}
