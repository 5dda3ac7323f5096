package dispatch

import (
	"context"
	"fmt"
	"os"
	"time"

	"codeslot/internal/slot"
)

// AwaitResponse polls for the final response artifact at the configured
// interval until it appears or ctx is cancelled. There is no timeout: the
// worker's completion time is unknown and caller-controlled. Once the file
// exists it is read with bounded retries to tolerate a writer that still
// holds it. On success the slot is released; if the retries are exhausted
// the slot stays locked and ErrResponseUnreadable is returned.
func (d *Dispatcher) AwaitResponse(ctx context.Context, slotDir, responsePath string) (string, error) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := os.Stat(responsePath); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}

	content, err := d.readWithRetries(responsePath)
	if err != nil {
		d.logger.Error("response unreadable", "path", responsePath, "error", err)
		return "", fmt.Errorf("%w: %s", ErrResponseUnreadable, responsePath)
	}

	if err := slot.Unlock(slotDir); err != nil {
		return "", err
	}
	d.logger.Info("slot released", "path", slotDir)
	return content, nil
}

func (d *Dispatcher) readWithRetries(path string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < d.cfg.ReadRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(d.cfg.ReadRetryDelay)
		}
		data, err := os.ReadFile(path)
		if err == nil {
			return string(data), nil
		}
		lastErr = err
	}
	return "", lastErr
}
