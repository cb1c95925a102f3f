// Package gate provides the process-wide single-flight guard: only one
// generation job may run at a time, and callers that find the gate held are
// rejected immediately rather than queued.
package gate

import "context"

// Gate is a one-slot mutual exclusion guard.
type Gate struct {
	slot chan struct{}
}

// New creates a released Gate.
func New() *Gate {
	return &Gate{slot: make(chan struct{}, 1)}
}

// TryAcquire takes the gate without blocking. It returns false if the gate
// is already held.
func (g *Gate) TryAcquire() bool {
	select {
	case g.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

// Acquire blocks until the gate is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case g.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the gate. Calling Release on a released gate panics, which
// surfaces double-release bugs immediately.
func (g *Gate) Release() {
	select {
	case <-g.slot:
	default:
		panic("gate: release of unheld gate")
	}
}

// Held reports whether the gate is currently taken. Use only for
// observability; acquisition decisions must go through TryAcquire.
func (g *Gate) Held() bool {
	return len(g.slot) == 1
}
