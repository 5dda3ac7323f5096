// Package dispatch implements the end-to-end dispatch protocol: claim a
// slot, prepare it, hand it to the external host editor, and observe the
// worker's asynchronous completion through the filesystem.
//
// A dispatch moves through claiming, preparing, awaiting host readiness and
// dispatched; synchronous callers additionally wait for the response
// artifact before the slot is released. The filesystem is the only channel
// back from the worker, so both waits are interval polls, and the response
// wait is deliberately unbounded: completion time belongs to the worker.
//
// Failure handling is asymmetric on purpose. A preparation failure or an
// unreadable response leaves the lock marker in place; the marker is the
// durable record that the slot's contents are suspect and must be unlocked
// explicitly rather than silently reused. A host readiness timeout is only a
// warning, since the instruction may still land once the editor finishes
// starting.
package dispatch
