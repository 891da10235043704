package reply

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/abhiramzobot/zobot-sub002/internal/router"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
)

func TestFromResponse(t *testing.T) {
	r := FromResponse(&llm.CompletionResponse{Content: "Your order shipped.", Provider: "openai"})
	if r.Content != "Your order shipped." || r.Provider != "openai" {
		t.Errorf("reply = %+v", r)
	}
	if r.HandoffRequested {
		t.Error("HandoffRequested = true for a normal completion")
	}
}

func TestDegraded(t *testing.T) {
	r := Degraded()
	if !r.HandoffRequested {
		t.Error("HandoffRequested = false for degraded reply")
	}
	if r.Provider != "fallback" {
		t.Errorf("Provider = %q", r.Provider)
	}
	if !strings.Contains(r.Content, "human agent") {
		t.Errorf("Content = %q, want mention of human agent", r.Content)
	}
}

func TestShouldDegrade(t *testing.T) {
	exhausted := fmt.Errorf("%w: last error", router.ErrAllProvidersExhausted)
	if !ShouldDegrade(exhausted) {
		t.Error("exhaustion error not recognised")
	}
	canceled := fmt.Errorf("%w: context canceled", router.ErrCanceled)
	if ShouldDegrade(canceled) {
		t.Error("caller cancellation treated as an outage")
	}
	if ShouldDegrade(errors.New("other")) {
		t.Error("arbitrary error treated as an outage")
	}
}
