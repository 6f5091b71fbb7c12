package httpapi

import (
	"sync"
	"time"
)

// loginLimiter is a sliding-window attempt counter keyed by client IP or by
// email. It guards sign-in and two-factor code guesses.
type loginLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	entries map[string][]time.Time
	lastGC  time.Time
}

func newLoginLimiter(limit int, window time.Duration) *loginLimiter {
	return &loginLimiter{
		window:  window,
		limit:   limit,
		entries: make(map[string][]time.Time),
	}
}

func (l *loginLimiter) Allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	if now.Sub(l.lastGC) > l.window {
		l.gcLocked(cutoff)
		l.lastGC = now
	}

	ts := prune(l.entries[key], cutoff)
	if len(ts) >= l.limit {
		l.entries[key] = ts
		return false
	}

	l.entries[key] = append(ts, now)
	return true
}

// Reset forgets the attempts for key, e.g. after a successful sign-in.
func (l *loginLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *loginLimiter) gcLocked(cutoff time.Time) {
	for k, ts := range l.entries {
		ts = prune(ts, cutoff)
		if len(ts) == 0 {
			delete(l.entries, k)
			continue
		}
		l.entries[k] = ts
	}
}

func prune(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
