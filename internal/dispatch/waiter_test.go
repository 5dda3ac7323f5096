package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"codeslot/internal/logging"
	"codeslot/internal/slot"
	"codeslot/internal/testutil"
)

func TestAwaitResponseReadsAndUnlocks(t *testing.T) {
	root := testutil.SetupPool(t, 1)
	testutil.LockSlot(t, root, "slot-1")
	slotDir := filepath.Join(root, "slot-1")
	responsePath := filepath.Join(slotDir, slot.MessagesDirName, "20260826T120000000_res.md")

	d := New(root, &fakeLauncher{}, testConfig(), logging.NopLogger())

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = os.WriteFile(responsePath, []byte("answer"), 0644)
	}()

	content, err := d.AwaitResponse(context.Background(), slotDir, responsePath)
	if err != nil {
		t.Fatalf("AwaitResponse: %v", err)
	}
	if content != "answer" {
		t.Errorf("content = %q, want %q", content, "answer")
	}
	if slot.IsLocked(slotDir) {
		t.Error("slot should be released after the response is read")
	}
}

func TestAwaitResponseCancellation(t *testing.T) {
	root := testutil.SetupPool(t, 1)
	testutil.LockSlot(t, root, "slot-1")
	slotDir := filepath.Join(root, "slot-1")

	d := New(root, &fakeLauncher{}, testConfig(), logging.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := d.AwaitResponse(ctx, slotDir, filepath.Join(slotDir, slot.MessagesDirName, "never_res.md"))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if !slot.IsLocked(slotDir) {
		t.Error("cancellation must not release the slot")
	}
}

func TestAwaitResponseUnreadableLeavesSlotLocked(t *testing.T) {
	root := testutil.SetupPool(t, 1)
	testutil.LockSlot(t, root, "slot-1")
	slotDir := filepath.Join(root, "slot-1")

	// A directory at the response path exists but cannot be read as a file,
	// so every retry fails.
	responsePath := filepath.Join(slotDir, slot.MessagesDirName, "20260826T120000000_res.md")
	if err := os.MkdirAll(responsePath, 0755); err != nil {
		t.Fatal(err)
	}

	d := New(root, &fakeLauncher{}, testConfig(), logging.NopLogger())

	_, err := d.AwaitResponse(context.Background(), slotDir, responsePath)
	if !errors.Is(err, ErrResponseUnreadable) {
		t.Fatalf("err = %v, want ErrResponseUnreadable", err)
	}
	if !slot.IsLocked(slotDir) {
		t.Error("unreadable response must leave the slot locked")
	}
}
