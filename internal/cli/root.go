package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tkc/taskdeck/internal/config"
)

var (
	cfg     *config.Config
	verbose bool
)

// rootCmd はルートコマンド
var rootCmd = &cobra.Command{
	Use:   "taskdeck",
	Short: "Local task registry synchronized with remote issue trackers",
	Long: `taskdeck keeps a local registry of tasks, each optionally bound to a
remote issue and to VCS changelists.

It polls configured issue trackers in the background, tracks which task
is active, and switches changelists when the active task changes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

// Execute はCLIを実行する
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(issuesCmd)
	rootCmd.AddCommand(changelistCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
}
