//go:build !darwin

package notify

// Send is a no-op on non-darwin platforms
func Send(title, message string) error {
	return nil
}

// SendConnectionFailure is a no-op on non-darwin platforms
func SendConnectionFailure(repositoryURL string) error {
	return nil
}
