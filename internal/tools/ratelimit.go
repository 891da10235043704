package tools

import (
	"sync"
	"time"
)

// rateWindow is the fixed window length for per-conversation tool rate
// limits. The window starts at the first call and resets once it has
// fully elapsed; there is no sliding behaviour.
const rateWindow = time.Minute

// bucket tracks calls within one fixed window for a single
// (tool, conversation) key.
type bucket struct {
	mu        sync.Mutex
	count     int
	startedAt time.Time
}

// limiter enforces fixed-window rate limits keyed by tool name and
// conversation ID. Buckets are created lazily on first call and live for
// the process lifetime, returning to baseline when their window expires.
// Per-entry locking keeps different keys from contending.
type limiter struct {
	now func() time.Time // swapped in tests

	mu      sync.RWMutex
	buckets map[string]*bucket
}

func newLimiter() *limiter {
	return &limiter{
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// allow reports whether another call is admitted for the key and, if so,
// counts it. The count observed before this call must be below limit. A
// limit of zero or less means unlimited.
func (l *limiter) allow(tool, conversationID string, limit int) bool {
	if limit <= 0 {
		return true
	}

	key := tool + "\x00" + conversationID
	b := l.bucket(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	if now.Sub(b.startedAt) >= rateWindow {
		b.count = 0
		b.startedAt = now
	}
	if b.count >= limit {
		return false
	}
	b.count++
	return true
}

// bucket returns the state for key, creating it if needed.
func (l *limiter) bucket(key string) *bucket {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.buckets[key]; ok {
		return b
	}
	b = &bucket{}
	l.buckets[key] = b
	return b
}
