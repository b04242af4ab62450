package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var changelistCmd = &cobra.Command{
	Use:     "changelist",
	Aliases: []string{"cl"},
	Short:   "Manage VCS changelists",
}

var changelistListCmd = &cobra.Command{
	Use:   "list",
	Short: "List changelists and their associated tasks",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\tNAME\tTASK\tID")
		fmt.Fprintln(w, "\t----\t----\t--")
		for _, cl := range h.clm.ChangeLists() {
			marker := " "
			if cl.Default {
				marker = "▶"
			}
			taskID := "-"
			if task := h.mgr.AssociatedTask(cl.ID); task != nil {
				taskID = task.ID
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", marker, cl.Name, taskID, cl.ID)
		}
		return w.Flush()
	},
}

var changelistTrack bool

var changelistAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a changelist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		cl, err := h.clm.AddChangeList(args[0], "")
		if err != nil {
			return err
		}
		fmt.Printf("✓ Added changelist %s\n", cl.Name)

		if changelistTrack {
			task := h.mgr.TrackChangeList(cl)
			fmt.Printf("✓ Tracking as task %s\n", task.ID)
		}
		return nil
	},
}

var changelistRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a changelist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(false)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		if err := h.clm.RemoveChangeList(args[0]); err != nil {
			return err
		}
		fmt.Printf("✓ Removed changelist %s\n", args[0])
		return nil
	},
}

func init() {
	changelistAddCmd.Flags().BoolVar(&changelistTrack, "track", false, "Create a local task linked to the changelist")

	changelistCmd.AddCommand(changelistListCmd)
	changelistCmd.AddCommand(changelistAddCmd)
	changelistCmd.AddCommand(changelistRemoveCmd)
}
