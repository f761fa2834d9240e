// ABOUTME: Per-sender rate limiting for inbound webhook calls
// ABOUTME: Bounded tracked-sender map to survive rotating sender identities

package webhook

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxTrackedSenders caps the limiter map to prevent memory exhaustion
	// from attackers rotating sender identities.
	maxTrackedSenders = 4096

	// senderRate and senderBurst bound how fast one sender can drive turns.
	senderRate  = rate.Limit(1)
	senderBurst = 5

	// staleAfter is how long an idle sender's limiter is kept around.
	staleAfter = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SenderLimiter rate-limits webhook turns per sender identity.
// Safe for concurrent use.
type SenderLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
}

// NewSenderLimiter creates a bounded per-sender limiter.
func NewSenderLimiter() *SenderLimiter {
	return &SenderLimiter{entries: make(map[string]*limiterEntry)}
}

// Allow reports whether the sender is within rate limits, pruning stale
// entries and enforcing the tracked-sender cap as a side effect.
func (l *SenderLimiter) Allow(sender string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()

	if len(l.entries) >= maxTrackedSenders {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) >= staleAfter {
				delete(l.entries, k)
			}
		}
		// Hard eviction if everyone is recent
		for len(l.entries) >= maxTrackedSenders {
			for k := range l.entries {
				delete(l.entries, k)
				break
			}
		}
	}

	e, ok := l.entries[sender]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(senderRate, senderBurst)}
		l.entries[sender] = e
	}
	e.lastSeen = now

	return e.limiter.Allow()
}
