package fileshare

import (
	"sync"
	"time"
)

// RateLimitResult tells the caller whether an upload attempt is allowed
// and, when it is not, how long to wait before trying again.
type RateLimitResult struct {
	Allowed    bool          `json:"allowed"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// RateLimiter bounds upload frequency per session with a sliding
// window: at most max allowed attempts within any window-sized span.
// Allowed attempts are recorded, rejected attempts leave no trace.
type RateLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	history map[string][]time.Time
	now     func() time.Time
}

func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:     max,
		window:  window,
		history: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Check inspects the recent upload timestamps of the session. When the
// attempt is allowed it is recorded immediately, so it counts against
// subsequent calls. Must be called before any storage work happens.
func (rl *RateLimiter) Check(sessionID string) RateLimitResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)

	recent := rl.history[sessionID][:0]
	for _, ts := range rl.history[sessionID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= rl.max {
		rl.history[sessionID] = recent
		// The oldest recorded attempt leaving the window frees a slot.
		return RateLimitResult{
			Allowed:    false,
			RetryAfter: recent[0].Sub(cutoff),
		}
	}

	rl.history[sessionID] = append(recent, now)
	return RateLimitResult{Allowed: true}
}

// Prune drops sessions whose whole history has aged out of the window.
// Called by the cleanup sweep so idle sessions do not accumulate.
func (rl *RateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.window)
	for session, attempts := range rl.history {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(cutoff) {
			delete(rl.history, session)
		}
	}
}
