package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"codeslot/internal/logging"
	"codeslot/internal/slot"
	"codeslot/internal/workspace"
)

// Dispatch errors. Both leave the slot locked: the marker is the record
// that the slot's contents are in an unknown state.
var (
	// ErrPreparationFailed indicates an I/O failure while materializing
	// configuration or staging artifacts after the slot was claimed.
	ErrPreparationFailed = errors.New("slot preparation failed")
	// ErrResponseUnreadable indicates the response artifact appeared but
	// could not be read within the bounded retries.
	ErrResponseUnreadable = errors.New("response file unreadable")
)

// livenessProbe is the low-cost instruction used to confirm the host chat
// worker is up: it just asks for the liveness marker to be touched.
const livenessProbe = "Reply by creating an empty file named %s in the workspace root. Do nothing else."

// Config carries the dispatcher's timing knobs and template. Zero values
// fall back to the defaults in New.
type Config struct {
	Template          workspace.Template
	ReadyTimeout      time.Duration
	ReadyPollInterval time.Duration
	PollInterval      time.Duration
	ReadRetries       int
	ReadRetryDelay    time.Duration
}

// Request describes one dispatch.
type Request struct {
	// Prompt is the instruction text for the worker.
	Prompt string
	// PromptFile optionally names a caller-supplied prompt artifact that
	// is copied into the slot under a fresh session identifier.
	PromptFile string
	// Attachments are file paths forwarded to the host chat interface.
	Attachments []string
	// Wait selects synchronous mode: poll for the response artifact and
	// release the slot once it is read.
	Wait bool
}

// Result is the structured outcome of a dispatch. In asynchronous mode
// Response is empty and the slot stays locked until the worker issues its
// self-unlock.
type Result struct {
	Slot         string `json:"slot"`
	SlotPath     string `json:"slot_path"`
	SessionID    string `json:"session_id"`
	RequestPath  string `json:"request_path"`
	ResponsePath string `json:"response_path"`
	Response     string `json:"response,omitempty"`
	Warning      string `json:"warning,omitempty"`
}

// Dispatcher runs the dispatch protocol against one pool root.
type Dispatcher struct {
	root     string
	launcher Launcher
	cfg      Config
	logger   *logging.Logger
	now      func() time.Time
}

// New creates a Dispatcher. A nil logger is replaced with a no-op one.
func New(root string, launcher Launcher, cfg Config, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if cfg.Template.Content == nil {
		cfg.Template = workspace.DefaultTemplate()
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}
	if cfg.ReadyPollInterval == 0 {
		cfg.ReadyPollInterval = time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.ReadRetries == 0 {
		cfg.ReadRetries = 5
	}
	if cfg.ReadRetryDelay == 0 {
		cfg.ReadRetryDelay = 200 * time.Millisecond
	}
	return &Dispatcher{
		root:     root,
		launcher: launcher,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Dispatch claims the first free slot, prepares it, launches or reuses the
// host editor, issues the instruction, and either returns immediately or
// waits for the response artifact when req.Wait is set.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Result, error) {
	s, err := slot.Claim(d.root)
	if err != nil {
		return nil, err
	}
	log := d.logger.WithSlot(s.Name)
	log.Info("slot claimed")

	sessionID := uuid.NewString()
	log = log.WithSession(sessionID)

	promptFile, err := d.prepare(s, req, sessionID)
	if err != nil {
		// The lock marker stays: the slot is contaminated and must be
		// unlocked explicitly rather than silently reused.
		log.Error("preparation failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPreparationFailed, err)
	}

	warning := d.awaitHostReady(ctx, s, log)

	paths := newArtifactPaths(s.MessagesDir(), d.now())
	spec := requestSpec{
		SessionID:    sessionID,
		Prompt:       req.Prompt,
		PromptFile:   promptFile,
		Attachments:  req.Attachments,
		ResponseTemp: paths.responseTemp,
		Response:     paths.response,
		LockPath:     slot.LockPath(s.Path),
	}
	if err := writeRequest(paths.request, spec); err != nil {
		log.Error("request artifact write failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPreparationFailed, err)
	}

	instruction := fmt.Sprintf("Read and follow the request in `%s`.", paths.request)
	attachments := append([]string{paths.request}, req.Attachments...)
	if err := d.launcher.SendInstruction(s.ConfigPath(), instruction, attachments...); err != nil {
		log.Error("instruction delivery failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrPreparationFailed, err)
	}
	log.Info("dispatched", "request", paths.request, "response", paths.response)

	result := &Result{
		Slot:         s.Name,
		SlotPath:     s.Path,
		SessionID:    sessionID,
		RequestPath:  paths.request,
		ResponsePath: paths.response,
		Warning:      warning,
	}
	if !req.Wait {
		return result, nil
	}

	response, err := d.AwaitResponse(ctx, s.Path, paths.response)
	if err != nil {
		return nil, err
	}
	result.Response = response
	return result, nil
}

// prepare materializes the slot's configuration fresh from the template,
// purges artifacts left by a previous occupant, and stages the optional
// prompt artifact. Returns the staged prompt path, if any.
func (d *Dispatcher) prepare(s slot.Slot, req Request, sessionID string) (string, error) {
	tplDir := d.cfg.Template.Dir
	if tplDir == "" {
		tplDir = s.Path
	}
	configData, err := workspace.Materialize(d.cfg.Template.Content, tplDir)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(s.ConfigPath(), configData, 0644); err != nil {
		return "", fmt.Errorf("failed to write configuration: %w", err)
	}

	if err := purgeStaleArtifacts(s); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.MessagesDir(), 0755); err != nil {
		return "", fmt.Errorf("failed to create messages directory: %w", err)
	}

	if req.PromptFile == "" {
		return "", nil
	}
	dest := filepath.Join(s.Path, "prompt-"+sessionID+".md")
	if err := copyFile(req.PromptFile, dest); err != nil {
		return "", fmt.Errorf("failed to stage prompt artifact: %w", err)
	}
	return dest, nil
}

// awaitHostReady makes sure a host window holds the slot's configuration.
// An already-open window is re-focused. Otherwise the host is launched and
// probed: the liveness marker is cleared, the probe instruction is sent, and
// the marker is polled for up to the configured timeout. Timing out is not a
// failure; the returned warning is surfaced to the caller and the dispatch
// proceeds, since the real instruction may still land once the host is up.
func (d *Dispatcher) awaitHostReady(ctx context.Context, s slot.Slot, log *logging.Logger) string {
	open, err := d.launcher.IsOpen(s.ConfigPath())
	if err != nil {
		log.Debug("host open probe failed", "error", err)
	}
	if open {
		if err := d.launcher.Focus(s.ConfigPath()); err != nil {
			log.Warn("host focus failed", "error", err)
		}
		return ""
	}

	readyPath := slot.ReadyPath(s.Path)
	_ = os.Remove(readyPath)

	if err := d.launcher.OpenWorkspace(s.ConfigPath()); err != nil {
		log.Warn("host launch failed", "error", err)
		return fmt.Sprintf("host launch failed: %v", err)
	}

	probe := fmt.Sprintf(livenessProbe, slot.ReadyMarkerName)
	if err := d.launcher.SendInstruction(s.ConfigPath(), probe); err != nil {
		log.Warn("liveness probe delivery failed", "error", err)
	}

	deadline := d.now().Add(d.cfg.ReadyTimeout)
	ticker := time.NewTicker(d.cfg.ReadyPollInterval)
	defer ticker.Stop()
	for {
		if _, err := os.Stat(readyPath); err == nil {
			log.Debug("host ready")
			return ""
		}
		if d.now().After(deadline) {
			log.Warn("host readiness timed out", "timeout", d.cfg.ReadyTimeout.String())
			return fmt.Sprintf("host did not confirm readiness within %s; dispatching anyway", d.cfg.ReadyTimeout)
		}
		select {
		case <-ctx.Done():
			return "host readiness wait cancelled"
		case <-ticker.C:
		}
	}
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
