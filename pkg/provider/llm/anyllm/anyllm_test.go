package anyllm

import (
	"context"
	"testing"
	"time"

	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
)

// TestNew_Validation checks constructor argument validation.
func TestNew_Validation(t *testing.T) {
	if _, err := New("ollama", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("frobnicator", "llama3.1:8b"); err == nil {
		t.Error("expected error for unsupported backend")
	}
}

// TestCallCtx_AppliesTimeout checks that a configured timeout bounds every
// backend call with a context deadline.
func TestCallCtx_AppliesTimeout(t *testing.T) {
	p, err := New("ollama", "llama3.1:8b", WithTimeout(250*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := p.callCtx(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("expected a deadline on the call context")
	}
	if remaining := time.Until(deadline); remaining > 250*time.Millisecond {
		t.Errorf("deadline %v away, want at most 250ms", remaining)
	}
}

// TestCallCtx_NoTimeoutByDefault checks that an unconfigured timeout adds
// no deadline.
func TestCallCtx_NoTimeoutByDefault(t *testing.T) {
	p, err := New("ollama", "llama3.1:8b")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := p.callCtx(context.Background())
	defer cancel()

	if _, ok := ctx.Deadline(); ok {
		t.Error("expected no deadline without a configured timeout")
	}
}

// TestBuildParams_JSONModeInstruction checks the instruction fallback.
func TestBuildParams_JSONModeInstruction(t *testing.T) {
	p, err := New("ollama", "llama3.1:8b")
	if err != nil {
		t.Fatal(err)
	}

	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "json please"}},
		JSONMode: true,
	})

	last := params.Messages[len(params.Messages)-1]
	if last.Content != jsonInstruction {
		t.Errorf("last message = %+v, want the JSON instruction", last)
	}
}

// TestBuildParams_Passthrough checks role/limit plumbing.
func TestBuildParams_Passthrough(t *testing.T) {
	p, err := New("llamacpp", "qwen2.5-coder")
	if err != nil {
		t.Fatal(err)
	}

	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "s"},
			{Role: llm.RoleUser, Content: "u"},
		},
		Temperature: 0.2,
		MaxTokens:   64,
	})
	if len(params.Messages) != 2 {
		t.Fatalf("Messages = %d entries, want 2", len(params.Messages))
	}
	if params.Messages[0].Role != "system" || params.Messages[1].Role != "user" {
		t.Errorf("roles not preserved: %+v", params.Messages)
	}
	if params.Temperature == nil || *params.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 64 {
		t.Errorf("MaxTokens = %v, want 64", params.MaxTokens)
	}
}

// TestName includes the backend in the provider identity.
func TestName(t *testing.T) {
	p, err := New("ollama", "llama3.1:8b")
	if err != nil {
		t.Fatal(err)
	}
	if p.name() != "anyllm:ollama" {
		t.Errorf("name() = %q", p.name())
	}
}
