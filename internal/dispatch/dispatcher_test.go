package dispatch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"codeslot/internal/logging"
	"codeslot/internal/slot"
	"codeslot/internal/testutil"
	"codeslot/internal/workspace"
)

// fakeLauncher records launcher calls and lets tests script host behavior.
type fakeLauncher struct {
	mu           sync.Mutex
	open         bool
	instructions []string
	opened       []string
	focused      []string
	onOpen       func(configPath string)
}

func (f *fakeLauncher) IsOpen(configPath string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open, nil
}

func (f *fakeLauncher) Focus(configPath string) error {
	f.mu.Lock()
	f.focused = append(f.focused, configPath)
	f.mu.Unlock()
	return nil
}

func (f *fakeLauncher) OpenWorkspace(configPath string) error {
	f.mu.Lock()
	f.opened = append(f.opened, configPath)
	hook := f.onOpen
	f.mu.Unlock()
	if hook != nil {
		hook(configPath)
	}
	return nil
}

func (f *fakeLauncher) SendInstruction(configPath, instruction string, attachments ...string) error {
	f.mu.Lock()
	f.instructions = append(f.instructions, instruction)
	f.mu.Unlock()
	return nil
}

func (f *fakeLauncher) instructionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.instructions)
}

// readyOnOpen makes the fake host confirm liveness as soon as it is
// launched.
func readyOnOpen(f *fakeLauncher) {
	f.onOpen = func(configPath string) {
		_ = os.WriteFile(filepath.Join(filepath.Dir(configPath), slot.ReadyMarkerName), nil, 0644)
	}
}

func testConfig() Config {
	return Config{
		Template:          workspace.DefaultTemplate(),
		ReadyTimeout:      100 * time.Millisecond,
		ReadyPollInterval: 10 * time.Millisecond,
		PollInterval:      10 * time.Millisecond,
		ReadRetries:       3,
		ReadRetryDelay:    10 * time.Millisecond,
	}
}

func newTestDispatcher(root string, launcher Launcher) *Dispatcher {
	return New(root, launcher, testConfig(), logging.NopLogger())
}

func TestDispatchClaimsFirstFreeSlot(t *testing.T) {
	root := testutil.SetupPool(t, 3)
	testutil.LockSlot(t, root, "slot-1")

	launcher := &fakeLauncher{}
	readyOnOpen(launcher)
	d := newTestDispatcher(root, launcher)

	result, err := d.Dispatch(context.Background(), Request{Prompt: "do the thing"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if result.Slot != "slot-2" {
		t.Errorf("Slot = %q, want slot-2", result.Slot)
	}
	if !slot.IsLocked(result.SlotPath) {
		t.Error("dispatched slot should stay locked in async mode")
	}
	if _, err := os.Stat(result.RequestPath); err != nil {
		t.Errorf("request artifact missing: %v", err)
	}
	if result.SessionID == "" {
		t.Error("result has no session id")
	}
}

func TestDispatchExhaustedPool(t *testing.T) {
	root := testutil.SetupPool(t, 1)
	testutil.LockSlot(t, root, "slot-1")

	d := newTestDispatcher(root, &fakeLauncher{})

	_, err := d.Dispatch(context.Background(), Request{Prompt: "p"})
	if !errors.Is(err, slot.ErrNoAvailableSlot) {
		t.Errorf("err = %v, want ErrNoAvailableSlot", err)
	}
}

func TestRequestArtifactNamesProtocolSteps(t *testing.T) {
	root := testutil.SetupPool(t, 1)

	launcher := &fakeLauncher{}
	readyOnOpen(launcher)
	d := newTestDispatcher(root, launcher)

	result, err := d.Dispatch(context.Background(), Request{Prompt: "summarize the repo"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	data, err := os.ReadFile(result.RequestPath)
	if err != nil {
		t.Fatalf("read request: %v", err)
	}
	body := string(data)

	tempPath := strings.TrimSuffix(result.ResponsePath, responseSuffix) + responseTempSuffix
	for _, fragment := range []string{
		"summarize the repo",
		tempPath,
		result.ResponsePath,
		"rm " + slot.LockPath(result.SlotPath),
	} {
		if !strings.Contains(body, fragment) {
			t.Errorf("request artifact missing %q:\n%s", fragment, body)
		}
	}
}

func TestDispatchMaterializesConfigFresh(t *testing.T) {
	root := testutil.SetupPool(t, 1)
	configPath := filepath.Join(root, "slot-1", "slot-1"+slot.ConfigExtension)
	if err := os.WriteFile(configPath, []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}

	launcher := &fakeLauncher{}
	readyOnOpen(launcher)
	d := newTestDispatcher(root, launcher)

	if _, err := d.Dispatch(context.Background(), Request{Prompt: "p"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "stale" {
		t.Error("configuration was not rewritten at dispatch time")
	}
}

func TestDispatchPurgesStaleArtifacts(t *testing.T) {
	root := testutil.SetupPool(t, 1)
	slotDir := filepath.Join(root, "slot-1")
	stale := []string{
		filepath.Join(slotDir, "prompt-old.md"),
		filepath.Join(slotDir, slot.MessagesDirName, "20200101T000000000_req.md"),
		filepath.Join(slotDir, slot.MessagesDirName, "20200101T000000000_res.md"),
	}
	for _, path := range stale {
		if err := os.WriteFile(path, []byte("old"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	keep := filepath.Join(slotDir, "notes.txt")
	if err := os.WriteFile(keep, []byte("mine"), 0644); err != nil {
		t.Fatal(err)
	}

	launcher := &fakeLauncher{}
	readyOnOpen(launcher)
	d := newTestDispatcher(root, launcher)

	if _, err := d.Dispatch(context.Background(), Request{Prompt: "p"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	for _, path := range stale {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("stale artifact survived: %s", path)
		}
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("unrelated file was purged: %v", err)
	}
}

func TestDispatchStagesPromptArtifact(t *testing.T) {
	root := testutil.SetupPool(t, 1)
	promptFile := filepath.Join(t.TempDir(), "prompt.md")
	if err := os.WriteFile(promptFile, []byte("long prompt"), 0644); err != nil {
		t.Fatal(err)
	}

	launcher := &fakeLauncher{}
	readyOnOpen(launcher)
	d := newTestDispatcher(root, launcher)

	result, err := d.Dispatch(context.Background(), Request{PromptFile: promptFile})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	staged := filepath.Join(result.SlotPath, "prompt-"+result.SessionID+".md")
	data, err := os.ReadFile(staged)
	if err != nil {
		t.Fatalf("staged prompt missing: %v", err)
	}
	if string(data) != "long prompt" {
		t.Errorf("staged prompt = %q", data)
	}
}

func TestPreparationFailureLeavesSlotLocked(t *testing.T) {
	root := testutil.SetupPool(t, 1)

	cfg := testConfig()
	cfg.Template = workspace.Template{Content: []byte("{not json")}
	d := New(root, &fakeLauncher{}, cfg, logging.NopLogger())

	_, err := d.Dispatch(context.Background(), Request{Prompt: "p"})
	if !errors.Is(err, ErrPreparationFailed) {
		t.Fatalf("err = %v, want ErrPreparationFailed", err)
	}
	if !slot.IsLocked(filepath.Join(root, "slot-1")) {
		t.Error("slot should stay locked after a preparation failure")
	}
}

func TestDispatchReusesOpenWindow(t *testing.T) {
	root := testutil.SetupPool(t, 1)

	launcher := &fakeLauncher{open: true}
	d := newTestDispatcher(root, launcher)

	result, err := d.Dispatch(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if len(launcher.opened) != 0 {
		t.Error("open window should not be relaunched")
	}
	if len(launcher.focused) != 1 {
		t.Errorf("focused %d times, want 1", len(launcher.focused))
	}
	if result.Warning != "" {
		t.Errorf("unexpected warning: %q", result.Warning)
	}
	// Only the real instruction, no liveness probe.
	if launcher.instructionCount() != 1 {
		t.Errorf("sent %d instructions, want 1", launcher.instructionCount())
	}
}

func TestHostReadinessTimeoutIsWarningOnly(t *testing.T) {
	root := testutil.SetupPool(t, 1)

	// Host never writes the liveness marker.
	launcher := &fakeLauncher{}
	d := newTestDispatcher(root, launcher)

	result, err := d.Dispatch(context.Background(), Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("Dispatch should proceed past readiness timeout: %v", err)
	}
	if result.Warning == "" {
		t.Error("readiness timeout should surface as a warning")
	}
	if len(launcher.opened) != 1 {
		t.Errorf("opened %d times, want 1", len(launcher.opened))
	}
	// Probe plus real instruction.
	if launcher.instructionCount() != 2 {
		t.Errorf("sent %d instructions, want 2", launcher.instructionCount())
	}
}

func TestDispatchSynchronousWait(t *testing.T) {
	root := testutil.SetupPool(t, 1)

	launcher := &fakeLauncher{}
	readyOnOpen(launcher)
	d := newTestDispatcher(root, launcher)

	// Fix the clock so the response path is known before dispatching.
	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	slotDir := filepath.Join(root, "slot-1")
	paths := newArtifactPaths(filepath.Join(slotDir, slot.MessagesDirName), now)

	// The worker: write the temporary file, then rename it to final.
	go func() {
		time.Sleep(50 * time.Millisecond)
		if err := os.WriteFile(paths.responseTemp, []byte("all done"), 0644); err != nil {
			return
		}
		_ = os.Rename(paths.responseTemp, paths.response)
	}()

	result, err := d.Dispatch(context.Background(), Request{Prompt: "p", Wait: true})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	if result.Response != "all done" {
		t.Errorf("Response = %q, want %q", result.Response, "all done")
	}
	if slot.IsLocked(slotDir) {
		t.Error("slot should be released after a synchronous dispatch")
	}
}
