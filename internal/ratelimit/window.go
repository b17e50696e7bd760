package ratelimit

import (
	"sync"
	"time"
)

// WindowCounter approximates a rolling window quota with two fixed windows:
//
//	effective = current + previous × (time left in current window / window)
//
// A nil *WindowCounter is an unlimited quota.
type WindowCounter struct {
	mu          sync.Mutex
	current     int
	previous    int
	windowStart time.Time
	window      time.Duration
	limit       int
}

// NewWindowCounter returns a counter allowing limit requests per window,
// or nil (unlimited) when limit <= 0.
func NewWindowCounter(limit int, window time.Duration) *WindowCounter {
	if limit <= 0 {
		return nil
	}
	return &WindowCounter{
		windowStart: time.Now(),
		window:      window,
		limit:       limit,
	}
}

// Allow counts a request if the quota permits it.
func (w *WindowCounter) Allow() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.effective() >= float64(w.limit) {
		return false
	}
	w.current++
	return true
}

// Check reports whether a request would be allowed without counting it.
func (w *WindowCounter) Check() bool {
	if w == nil {
		return true
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.effective() < float64(w.limit)
}

// Consume counts a request if still under quota.
func (w *WindowCounter) Consume() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.effective() < float64(w.limit) {
		w.current++
	}
}

// Remaining returns the approximate requests left, or -1 when unlimited.
func (w *WindowCounter) Remaining() int {
	if w == nil {
		return -1
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	return max(0, int(float64(w.limit)-w.effective()))
}

// effective rotates expired windows and returns the weighted count.
// Must be called with mu held.
func (w *WindowCounter) effective() float64 {
	elapsed := time.Since(w.windowStart)
	if elapsed >= w.window {
		passed := int(elapsed / w.window)
		if passed == 1 {
			w.previous = w.current
		} else {
			w.previous = 0
		}
		w.current = 0
		w.windowStart = w.windowStart.Add(time.Duration(passed) * w.window)
		elapsed = time.Since(w.windowStart)
	}

	overlap := float64(w.window-elapsed) / float64(w.window)
	overlap = min(1, max(0, overlap))
	return float64(w.current) + float64(w.previous)*overlap
}
