// Package ratelimit implements fixed-window request admission: a hard
// quota per window, restored by an external timer tick rather than a
// continuously refilling bucket. Exhausted quota drops requests; it
// never queues them.
package ratelimit

import "sync"

// Window is a fixed-window limiter.
type Window struct {
	mu        sync.Mutex
	quota     int
	remaining int
}

// NewWindow creates a limiter admitting quota requests per window.
func NewWindow(quota int) *Window {
	if quota <= 0 {
		quota = 1
	}
	return &Window{quota: quota, remaining: quota}
}

// Allow consumes one slot if any remain.
func (w *Window) Allow() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.remaining > 0 {
		w.remaining--
		return true
	}
	return false
}

// Reset restores the full quota. Called from the periodic timer tick.
func (w *Window) Reset() {
	w.mu.Lock()
	w.remaining = w.quota
	w.mu.Unlock()
}

// Remaining reports the unconsumed slots in the current window.
func (w *Window) Remaining() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.remaining
}
