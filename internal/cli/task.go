package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkc/taskdeck/internal/domain"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage local tasks",
}

var taskListAll bool

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List local tasks",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		tasks := h.mgr.LocalTasks(taskListAll)
		if len(tasks) == 0 {
			fmt.Println("No tasks found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\tID\tSUMMARY\tUPDATED")
		fmt.Fprintln(w, "\t--\t-------\t-------")
		for _, t := range tasks {
			marker := " "
			if t.Active {
				marker = "▶"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, t.ID, truncate(t.Summary, 50), t.Updated.Format("2006-01-02 15:04"))
		}
		w.Flush()

		fmt.Println()
		fmt.Printf("Total: %d tasks\n", len(tasks))
		return nil
	},
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		task := h.mgr.FindTask(args[0])
		if task == nil {
			return fmt.Errorf("task not found: %s", args[0])
		}

		printTaskDetail(task)
		return nil
	},
}

var taskCreateActivate bool

var taskCreateCmd = &cobra.Command{
	Use:   "create <summary>",
	Short: "Create a local task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		task := h.mgr.CreateLocalTask(args[0])
		if taskCreateActivate {
			h.mgr.ActivateTask(task, cfg.ClearContext, cfg.CreateChangelist)
		}

		fmt.Printf("✓ Created task %s\n", task.ID)
		return nil
	},
}

var taskActivateCmd = &cobra.Command{
	Use:   "activate <task-id>",
	Short: "Activate a task",
	Long: `Activate a task. Exactly one task is active at a time.

The id may be a local task id or the id of a cached remote issue;
remote issues are adopted into the local registry first.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		task := h.mgr.FindTask(args[0])
		if task == nil {
			// キャッシュ済みの課題から探して取り込む
			for _, issue := range h.mgr.CachedIssues(true) {
				if issue.ID == args[0] {
					task = h.mgr.ActivateIssue(issue, cfg.ClearContext, cfg.CreateChangelist)
					fmt.Printf("✓ Activated %s\n", task.ID)
					return nil
				}
			}
			return fmt.Errorf("task not found: %s", args[0])
		}

		h.mgr.ActivateTask(task, cfg.ClearContext, cfg.CreateChangelist)
		fmt.Printf("✓ Activated %s\n", task.ID)
		return nil
	},
}

var taskRemoveCmd = &cobra.Command{
	Use:   "remove <task-id>",
	Short: "Remove a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		task := h.mgr.FindTask(args[0])
		if task == nil {
			return fmt.Errorf("task not found: %s", args[0])
		}
		if task.IsDefault() {
			return fmt.Errorf("the default task cannot be removed")
		}

		h.mgr.RemoveTask(task)
		fmt.Printf("✓ Removed task %s\n", task.ID)
		return nil
	},
}

func printTaskDetail(t *domain.LocalTask) {
	fmt.Printf("Task: %s\n", t.Summary)
	fmt.Printf("ID:      %s\n", t.ID)
	fmt.Printf("Created: %s\n", t.Created.Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated: %s\n", t.Updated.Format("2006-01-02 15:04:05"))

	if t.Active {
		fmt.Println("Active:  yes")
	}
	if t.Closed {
		fmt.Println("Closed:  yes")
	}
	if t.FromIssue {
		fmt.Printf("Issue:   %s\n", t.IssueURL)
	}
	if t.TimeSpent > 0 {
		fmt.Printf("Time spent: %s\n", t.TimeSpent.Round(time.Second))
	}

	if len(t.ChangeLists) > 0 {
		fmt.Println()
		fmt.Println("Changelists:")
		for _, cl := range t.ChangeLists {
			fmt.Printf("  %s (%s)\n", cl.Name, cl.ID)
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	taskListCmd.Flags().BoolVarP(&taskListAll, "all", "a", false, "Include locally closed tasks")
	taskCreateCmd.Flags().BoolVar(&taskCreateActivate, "activate", false, "Activate the task after creating it")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskActivateCmd)
	taskCmd.AddCommand(taskRemoveCmd)
}
