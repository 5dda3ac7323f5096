// Package slot manages the pool of reusable workspace slots and the
// marker-file lock convention that coordinates access to them.
//
// A slot is a directory named slot-N under the pool root. N is assigned
// monotonically and never reused while a higher-numbered slot exists. A slot
// is busy exactly when its lock marker (a zero-byte .locked file) is present.
// The marker is a cooperative convention shared with the external host
// worker, not a mutex: the worker itself removes the marker when it finishes
// an asynchronous dispatch, and an operator can force-remove it with the
// unlock operation.
//
// # Claiming
//
// [Claim] scans slots in ascending ordinal order and takes the first one
// whose marker can be created with O_EXCL. Creating the marker exclusively
// closes the window between "observe unlocked" and "create marker" for two
// racing codeslot processes; the marker-file semantics visible to the host
// are unchanged. [Lock] keeps plain last-writer-wins create semantics for
// callers that already own the slot.
//
// # Provisioning
//
// [Provision] reuses existing unlocked slots before creating new ones, skips
// locked slots unless forced, and backfills missing configuration lazily.
// Ordinal order is the sole priority among existing slots, which keeps both
// reuse and claiming deterministic.
package slot
