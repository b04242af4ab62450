package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tkc/taskdeck/internal/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the sync engine in the foreground",
	Long: `Run the sync engine in the foreground.

Issues are refreshed from all configured repositories at the configured
interval and merged into local tasks. Task lifecycle events are printed
as they happen.

Press Ctrl+C to stop.`,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		h, err := newHost(true)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, h.close()) }()

		h.mgr.AddTaskListener(&printingListener{})

		fmt.Printf("👀 Watching %d repositories...\n", len(h.mgr.Repositories()))
		fmt.Printf("   Interval: %dm\n", cfg.RefreshInterval)
		fmt.Println("   Press Ctrl+C to stop")
		fmt.Println()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		fmt.Println("\n👋 Stopping...")
		return nil
	},
}

// printingListener はタスクイベントを標準出力に流す
type printingListener struct{}

func (l *printingListener) timestamp() string {
	return time.Now().Format("15:04:05")
}

func (l *printingListener) TaskAdded(task *domain.LocalTask) {
	fmt.Printf("[%s] + %s %s\n", l.timestamp(), task.ID, task.Summary)
}

func (l *printingListener) TaskRemoved(task *domain.LocalTask) {
	fmt.Printf("[%s] - %s %s\n", l.timestamp(), task.ID, task.Summary)
}

func (l *printingListener) TaskActivated(task *domain.LocalTask) {
	fmt.Printf("[%s] ▶ %s %s\n", l.timestamp(), task.ID, task.Summary)
}

func (l *printingListener) TaskDeactivated(task *domain.LocalTask) {
	fmt.Printf("[%s] ∥ %s %s\n", l.timestamp(), task.ID, task.Summary)
}
