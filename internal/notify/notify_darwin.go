//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
)

// Send sends a macOS notification using osascript
func Send(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s" sound name "Glass"`, message, title)
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

// SendConnectionFailure sends a notification about a repository connection failure
func SendConnectionFailure(repositoryURL string) error {
	title := "⚠️ taskdeck: Connection Failed"
	message := fmt.Sprintf("Cannot connect to %s. Run: taskdeck repo test", truncate(repositoryURL, 60))
	return Send(title, message)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
