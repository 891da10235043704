// Package llm defines the Provider interface for remote text-generation
// backends.
//
// A provider wraps a single remote completion API (e.g. OpenAI, Anthropic,
// Gemini, or a local inference server) and exposes a uniform interface so
// the router can dispatch requests and fail over between backends without
// coupling to any specific SDK. Backend quirks — system-prompt extraction,
// strict user/assistant alternation, JSON-mode mechanics — stay inside the
// individual adapter packages; the shared normalisation helpers live in
// this package.
//
// Implementations must be safe for concurrent use and must propagate
// context cancellation promptly.
package llm

import "context"

// Provider is the abstraction over any completion backend.
type Provider interface {
	// Complete sends req to the backend and waits for the full reply.
	// Failures of any kind — transport, auth, malformed reply, empty
	// content — are reported as a *ProviderError so the caller can record
	// them against the provider's circuit breaker.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// HealthCheck performs the cheapest possible live call against the
	// backend and reports whether it responded. It never returns an error
	// and never panics; any failure yields false.
	HealthCheck(ctx context.Context) bool
}
