package dispatch

// Launcher abstracts the external host editor. The real implementation
// shells out to the editor CLI (internal/vscode); tests substitute fakes.
type Launcher interface {
	// IsOpen reports, best effort, whether a host window already has the
	// given workspace configuration open.
	IsOpen(configPath string) (bool, error)

	// Focus brings an already-open workspace window to the foreground.
	Focus(configPath string) error

	// OpenWorkspace launches the host editor against the configuration.
	OpenWorkspace(configPath string) error

	// SendInstruction delivers an instruction to the chat interface of
	// the window holding the configuration, optionally forwarding
	// attachment file paths.
	SendInstruction(configPath, instruction string, attachments ...string) error
}
