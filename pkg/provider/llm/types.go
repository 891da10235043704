package llm

import "fmt"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is a recognised role.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// Message is a single entry in a conversation history. Ordering within a
// slice of messages is meaningful; messages carry no identity beyond their
// position.
type Message struct {
	// Role is the author of the message.
	Role Role

	// Content is the text content of the message.
	Content string
}

// CompletionRequest carries everything an adapter needs to produce a reply.
// Callers must treat a request as immutable once built; adapters never
// modify the Messages slice they are handed.
type CompletionRequest struct {
	// Messages is the ordered conversation history. Must be non-empty.
	Messages []Message

	// Temperature controls output randomness. Zero requests the backend
	// default.
	Temperature float64

	// MaxTokens caps the number of completion tokens the backend may
	// generate. Zero means use the adapter's configured default.
	MaxTokens int

	// JSONMode demands that the reply be parseable as a single JSON object.
	// Adapters use whatever backend-native mechanism exists (a response
	// format flag, or a prefill/instruction fallback).
	JSONMode bool
}

// Usage holds normalised token accounting. Adapters always populate all
// three fields, computing the missing one by addition when the backend only
// reports two.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the normalised reply from any backend.
type CompletionResponse struct {
	// Content is the full text of the reply. Never empty; adapters fail
	// with a *ProviderError instead of returning an empty response.
	Content string

	// Model is the backend-reported model identifier.
	Model string

	// Provider names the adapter that produced the response.
	Provider string

	// Usage contains token accounting for this request/response pair.
	Usage Usage

	// LatencyMs is the wall-clock duration of the backend call.
	LatencyMs int64
}

// ProviderError describes a failed backend call: transport failure, auth
// failure, malformed reply, or empty content. The router records it against
// the provider's circuit breaker and advances to the next candidate.
type ProviderError struct {
	// Provider names the adapter that failed.
	Provider string

	// Op is the operation that failed, e.g. "complete" or "health".
	Op string

	// Err is the underlying cause. May be nil for conditions detected by
	// the adapter itself (such as an empty response).
	Err error

	// Message is a human-readable description used when Err is nil.
	Message string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Op, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ProviderError) Unwrap() error { return e.Err }

// ErrEmpty builds the ProviderError returned when a backend produces no
// usable text content.
func ErrEmpty(provider string) *ProviderError {
	return &ProviderError{Provider: provider, Op: "complete", Message: "empty response"}
}
