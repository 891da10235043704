// Package resilience provides the per-provider circuit breaker used by the
// completion router.
//
// The breaker has two states: closed (eligible for routing) and open
// (temporarily excluded). It opens after a configured number of
// consecutive failures and closes again automatically once its cool-down
// deadline passes — there is no explicit half-open probe state; the first
// call after the deadline is simply allowed through, and its outcome
// either resets the breaker or re-opens it immediately.
//
// All types are safe for concurrent use. [Set] holds one breaker per
// provider with per-entry locking, so breakers for different providers
// never contend.
package resilience

import (
	"log/slog"
	"sync"
	"time"
)

// Config holds tuning knobs for a [Breaker].
type Config struct {
	// Name is a human-readable label used in log messages.
	Name string

	// MaxFailures is the number of consecutive failures before the breaker
	// opens. Default: 5.
	MaxFailures int

	// Cooldown is how long the breaker stays open before calls are allowed
	// through again. Default: 60s.
	Cooldown time.Duration
}

// Breaker tracks consecutive failures for a single provider.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration

	mu              sync.Mutex
	consecutiveFail int
	openUntil       time.Time
}

// New creates a [Breaker] with the supplied configuration. Zero-value
// config fields are replaced with defaults.
func New(cfg Config) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	return &Breaker{
		name:        cfg.Name,
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
	}
}

// Allow reports whether a call may proceed. It returns false only while
// the breaker is open and the cool-down has not yet elapsed.
func (b *Breaker) Allow() bool {
	return !b.IsOpen()
}

// IsOpen reports whether the breaker is currently open and unexpired.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.openUntil.IsZero() && time.Now().Before(b.openUntil)
}

// RecordSuccess resets the consecutive-failure counter and clears any open
// deadline.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.openUntil.IsZero() {
		slog.Info("circuit breaker closed after success", "provider", b.name)
	}
	b.consecutiveFail = 0
	b.openUntil = time.Time{}
}

// RecordFailure increments the consecutive-failure counter and opens the
// breaker once the threshold is reached. A failure on the first call after
// the cool-down re-opens immediately, since the counter is still at the
// threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFail++
	if b.consecutiveFail >= b.maxFailures {
		b.openUntil = time.Now().Add(b.cooldown)
		slog.Warn("circuit breaker opened",
			"provider", b.name,
			"consecutive_failures", b.consecutiveFail,
			"open_until", b.openUntil,
		)
	}
}

// Failures returns the current consecutive-failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consecutiveFail
}

// Set holds one [Breaker] per provider, created lazily on first use.
// Entries live for the process lifetime; a breaker returning to baseline
// (closed, zero failures) is the steady state, not a deletion.
type Set struct {
	cfg Config

	mu       sync.RWMutex
	breakers map[string]*Breaker
}

// NewSet creates an empty [Set]. Each breaker created by [Set.Get]
// inherits cfg with its Name replaced by the provider key.
func NewSet(cfg Config) *Set {
	return &Set{
		cfg:      cfg,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for provider, creating it if needed.
func (s *Set) Get(provider string) *Breaker {
	s.mu.RLock()
	b, ok := s.breakers[provider]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[provider]; ok {
		return b
	}
	cfg := s.cfg
	cfg.Name = provider
	b = New(cfg)
	s.breakers[provider] = b
	return b
}

// AllOpen reports whether every breaker in providers is currently open.
// An empty provider list reports false.
func (s *Set) AllOpen(providers []string) bool {
	if len(providers) == 0 {
		return false
	}
	for _, p := range providers {
		if !s.Get(p).IsOpen() {
			return false
		}
	}
	return true
}
