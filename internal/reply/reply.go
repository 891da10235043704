// Package reply produces the degraded fallback answer used when no
// completion provider is reachable. A total LLM outage must surface to the
// end user as an explicit human-handoff message, never as a raw error.
package reply

import (
	"errors"

	"github.com/abhiramzobot/zobot-sub002/internal/router"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
)

// degradedContent is the canned text sent when every backend is down.
const degradedContent = "I'm having trouble reaching our systems right now. " +
	"I've flagged this conversation for a human agent, who will follow up with you shortly."

// degradedProvider marks a response that no backend produced.
const degradedProvider = "fallback"

// Reply is the channel-facing answer assembled from a completion, or from
// the degraded fallback when none could be obtained.
type Reply struct {
	// Content is the text to send to the user.
	Content string `json:"content"`

	// Provider names the backend that produced Content, or "fallback".
	Provider string `json:"provider"`

	// HandoffRequested is true when a human agent must take over the
	// conversation.
	HandoffRequested bool `json:"handoff_requested"`
}

// FromResponse wraps a successful completion.
func FromResponse(resp *llm.CompletionResponse) Reply {
	return Reply{
		Content:  resp.Content,
		Provider: resp.Provider,
	}
}

// Degraded returns the human-handoff fallback reply.
func Degraded() Reply {
	return Reply{
		Content:          degradedContent,
		Provider:         degradedProvider,
		HandoffRequested: true,
	}
}

// ShouldDegrade reports whether err represents a total provider outage
// that the degraded reply must absorb. Caller cancellation is not an
// outage and propagates normally.
func ShouldDegrade(err error) bool {
	return errors.Is(err, router.ErrAllProvidersExhausted)
}
