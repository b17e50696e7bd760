package warmup

import (
	"sync"
	"time"
)

// Readiness phases reported by Gate.Status.
const (
	PhaseWarming  = "warming"
	PhaseReady    = "ready"
	PhaseDegraded = "degraded"  // warm-up finished with an error
	PhaseTimedOut = "timed_out" // serving before warm-up finished
)

// Gate holds webhook traffic back until the first warm-up finishes or the
// grace period runs out, whichever comes first.
type Gate struct {
	started time.Time
	grace   time.Duration

	mu       sync.RWMutex
	finished time.Time
	failure  string
}

// GateStatus is the JSON body of /readyz.
type GateStatus struct {
	Phase          string `json:"phase"`
	Serving        bool   `json:"serving"`
	ElapsedSeconds int    `json:"elapsed_seconds"`
	GraceSeconds   int    `json:"grace_seconds"`
	WarmupSeconds  int    `json:"warmup_seconds,omitempty"`
	Error          string `json:"error,omitempty"`
}

// NewGate starts the grace period now.
func NewGate(grace time.Duration) *Gate {
	return &Gate{started: time.Now(), grace: grace}
}

// Open records the warm-up outcome. Only the first call counts.
func (g *Gate) Open(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.finished.IsZero() {
		return
	}
	g.finished = time.Now()
	if err != nil {
		g.failure = err.Error()
	}
}

// Serving reports whether requests should be let through. A failed warm-up
// still opens the gate; chat then answers from whatever is loaded.
func (g *Gate) Serving() bool {
	return g.Status().Serving
}

// Finished reports whether Open has been called.
func (g *Gate) Finished() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return !g.finished.IsZero()
}

func (g *Gate) Status() GateStatus {
	g.mu.RLock()
	finished, failure := g.finished, g.failure
	g.mu.RUnlock()

	elapsed := time.Since(g.started)
	st := GateStatus{
		ElapsedSeconds: int(elapsed.Seconds()),
		GraceSeconds:   int(g.grace.Seconds()),
	}
	switch {
	case !finished.IsZero():
		st.Serving = true
		st.WarmupSeconds = int(finished.Sub(g.started).Seconds())
		st.Phase = PhaseReady
		if failure != "" {
			st.Phase, st.Error = PhaseDegraded, failure
		}
	case elapsed >= g.grace:
		st.Serving, st.Phase = true, PhaseTimedOut
	default:
		st.Phase = PhaseWarming
	}
	return st
}
