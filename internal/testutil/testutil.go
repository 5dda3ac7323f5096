// Package testutil provides testing utilities for codeslot tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"codeslot/internal/logging"
	"codeslot/internal/slot"
	"codeslot/internal/workspace"
)

// SetupPool creates a temporary pool root with count provisioned slots and
// returns its path. The pool is cleaned up when the test completes.
func SetupPool(t *testing.T, count int) string {
	t.Helper()

	root := t.TempDir()
	_, err := slot.Provision(root, count, workspace.DefaultTemplate(), slot.ProvisionOptions{}, logging.NopLogger())
	if err != nil {
		t.Fatalf("failed to provision test pool: %v", err)
	}
	return root
}

// LockSlot creates the lock marker for a slot by name.
func LockSlot(t *testing.T, root, name string) {
	t.Helper()

	if err := slot.Lock(filepath.Join(root, name)); err != nil {
		t.Fatalf("failed to lock %s: %v", name, err)
	}
}

// WriteTemplate writes a workspace template file into a temp directory and
// returns its path.
func WriteTemplate(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "template.code-workspace")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write template: %v", err)
	}
	return path
}
