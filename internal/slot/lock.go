package slot

import (
	"fmt"
	"os"
	"path/filepath"
)

// LockMarkerName is the name of the lock marker file within a slot directory.
// Its presence, not its content, is the signal; it is always zero bytes.
const LockMarkerName = ".locked"

// ReadyMarkerName is the name of the liveness marker the host worker writes
// when asked to confirm it is up. The dispatcher removes it before launching
// the host and polls for it to reappear.
const ReadyMarkerName = ".ready"

// LockPath returns the path of the lock marker for a slot directory.
func LockPath(slotDir string) string {
	return filepath.Join(slotDir, LockMarkerName)
}

// ReadyPath returns the path of the liveness marker for a slot directory.
func ReadyPath(slotDir string) string {
	return filepath.Join(slotDir, ReadyMarkerName)
}

// IsLocked reports whether the slot's lock marker is present.
func IsLocked(slotDir string) bool {
	_, err := os.Stat(LockPath(slotDir))
	return err == nil
}

// Lock creates the lock marker. If the marker already exists the call is a
// no-op: near-simultaneous creations race with last-writer-wins semantics
// and neither caller sees an error.
func Lock(slotDir string) error {
	f, err := os.OpenFile(LockPath(slotDir), os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock marker: %w", err)
	}
	return f.Close()
}

// TryLock attempts to create the lock marker exclusively. It returns true if
// this caller created the marker, false if the marker already existed. Any
// other failure is returned as an error.
func TryLock(slotDir string) (bool, error) {
	f, err := os.OpenFile(LockPath(slotDir), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to create lock marker: %w", err)
	}
	return true, f.Close()
}

// Unlock removes the lock marker. Removing an absent marker is not an error.
func Unlock(slotDir string) error {
	if err := os.Remove(LockPath(slotDir)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock marker: %w", err)
	}
	return nil
}
