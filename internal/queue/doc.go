// Package queue decides which pending message is on screen.
//
// A Manager owns a FIFO of message handlers keyed by caller-supplied
// identity values. After every mutation it runs a single selection pass
// that either starts showing the head of the queue, hides the current
// message because a suspend token is outstanding, or does nothing. The
// pass is idempotent, so it is safe to re-run from completion callbacks
// that fire synchronously inside a mutating call.
//
// Nothing in this package is safe for concurrent use. Hosts call it from
// their UI goroutine only, and handlers report completion on that same
// goroutine.
package queue
