// Package vscode wraps the VS Code CLI as the dispatch launcher.
//
// Everything here is best effort at the process boundary: the CLI forks the
// editor and returns, window probing greps `code --status`, and chat
// delivery relies on the `code chat` subcommand. The dispatcher treats these
// as the external collaborator contract and compensates with its own
// filesystem-level readiness probe.
package vscode

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Wrapper for exec to allow testing.
var execCommand = exec.Command

// CLI drives a VS Code compatible editor binary.
type CLI struct {
	command string
}

// New creates a CLI for the given editor command (typically "code").
func New(command string) *CLI {
	if command == "" {
		command = "code"
	}
	return &CLI{command: command}
}

// OpenWorkspace launches the editor against a workspace configuration in a
// new window. The CLI forks and returns once the window is requested.
func (c *CLI) OpenWorkspace(configPath string) error {
	return c.run("--new-window", configPath)
}

// Focus raises the window holding the configuration. Opening an
// already-open workspace re-focuses its window rather than duplicating it.
func (c *CLI) Focus(configPath string) error {
	return c.run(configPath)
}

// IsOpen reports whether a window for the configuration appears in the
// editor's status output. Best effort: a failing status command means "not
// known to be open".
func (c *CLI) IsOpen(configPath string) (bool, error) {
	out, err := c.output("--status")
	if err != nil {
		return false, err
	}
	return strings.Contains(out, configPath), nil
}

// SendInstruction delivers an instruction to the chat interface of the
// window holding the configuration, forwarding attachments as chat context.
func (c *CLI) SendInstruction(configPath, instruction string, attachments ...string) error {
	args := []string{"chat", "--reuse-window"}
	for _, a := range attachments {
		args = append(args, "--add-file", a)
	}
	args = append(args, instruction)
	return c.run(args...)
}

func (c *CLI) run(args ...string) error {
	cmd := execCommand(c.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", c.command, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (c *CLI) output(args ...string) (string, error) {
	cmd := execCommand(c.command, args...)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", c.command, strings.Join(args, " "), err)
	}
	return string(out), nil
}
