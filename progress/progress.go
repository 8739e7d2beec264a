// Package progress reports how many tasks of a batch have completed.
// Reporters share one contract: advance by one per finished task, expose
// elapsed time, render a final state on Finish. The observed count is
// monotonically non-decreasing.
package progress

import (
	"sync"
	"time"
)

type Reporter interface {
	// Advance adds n completed tasks. Safe for concurrent use.
	Advance(n int)
	// Finish freezes the reporter and renders its final state. Further
	// calls are no-ops.
	Finish()
	// Count returns the number of completions observed so far.
	Count() int
	// Elapsed returns time since the reporter started, frozen at Finish.
	Elapsed() time.Duration
}

// Nop discards all updates but still tracks count and elapsed time.
type Nop struct {
	mu         sync.Mutex
	count      int
	start      time.Time
	finishedAt time.Time
}

func NewNop() *Nop {
	return &Nop{start: time.Now()}
}

func (n *Nop) Advance(delta int) {
	if delta <= 0 {
		return
	}
	n.mu.Lock()
	n.count += delta
	n.mu.Unlock()
}

func (n *Nop) Finish() {
	n.mu.Lock()
	if n.finishedAt.IsZero() {
		n.finishedAt = time.Now()
	}
	n.mu.Unlock()
}

func (n *Nop) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.count
}

func (n *Nop) Elapsed() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.finishedAt.IsZero() {
		return n.finishedAt.Sub(n.start)
	}
	return time.Since(n.start)
}
