package slot

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLockUnlockCycle(t *testing.T) {
	dir := t.TempDir()

	if IsLocked(dir) {
		t.Error("fresh slot should not be locked")
	}

	if err := Lock(dir); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if !IsLocked(dir) {
		t.Error("slot should be locked after Lock")
	}

	// Marker is a zero-byte file; existence is the whole signal.
	info, err := os.Stat(filepath.Join(dir, LockMarkerName))
	if err != nil {
		t.Fatalf("stat marker: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("marker size = %d, want 0", info.Size())
	}

	if err := Unlock(dir); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if IsLocked(dir) {
		t.Error("slot should be unlocked after Unlock")
	}
}

func TestLockIsLastWriterWins(t *testing.T) {
	dir := t.TempDir()

	if err := Lock(dir); err != nil {
		t.Fatalf("first Lock: %v", err)
	}
	// A second Lock racing with the first is a no-op, not an error.
	if err := Lock(dir); err != nil {
		t.Errorf("second Lock: %v", err)
	}
}

func TestUnlockAbsentMarker(t *testing.T) {
	dir := t.TempDir()

	if err := Unlock(dir); err != nil {
		t.Errorf("Unlock of never-locked slot: %v", err)
	}
}

func TestTryLock(t *testing.T) {
	dir := t.TempDir()

	won, err := TryLock(dir)
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if !won {
		t.Fatal("first TryLock should win")
	}

	won, err = TryLock(dir)
	if err != nil {
		t.Fatalf("second TryLock: %v", err)
	}
	if won {
		t.Error("second TryLock should not win")
	}
}
