package anthropic

import (
	"testing"

	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	p, err := New("sk-ant-test", "claude-sonnet-4-20250514")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// TestNew_Validation checks constructor argument validation.
func TestNew_Validation(t *testing.T) {
	if _, err := New("", "claude-sonnet-4-20250514"); err == nil {
		t.Error("expected error for empty apiKey")
	}
	if _, err := New("sk-ant-test", ""); err == nil {
		t.Error("expected error for empty model")
	}
}

// TestBuildParams_SystemExtracted checks that system content leaves the
// message list and lands in the System parameter.
func TestBuildParams_SystemExtracted(t *testing.T) {
	p := newTestProvider(t)
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "Be terse."},
			{Role: llm.RoleUser, Content: "Hi"},
		},
	})

	if len(params.System) != 1 || params.System[0].Text != "Be terse." {
		t.Errorf("System = %+v, want one block with extracted text", params.System)
	}
	if len(params.Messages) != 1 {
		t.Fatalf("Messages = %d entries, want 1", len(params.Messages))
	}
}

// TestBuildParams_MergesConsecutiveTurns checks strict-alternation repair.
func TestBuildParams_MergesConsecutiveTurns(t *testing.T) {
	p := newTestProvider(t)
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "a"},
			{Role: llm.RoleUser, Content: "b"},
			{Role: llm.RoleAssistant, Content: "c"},
			{Role: llm.RoleUser, Content: "d"},
		},
	})
	if len(params.Messages) != 3 {
		t.Fatalf("Messages = %d entries, want 3 after merging", len(params.Messages))
	}
}

// TestBuildParams_JSONModeAppendsPrefill checks the assistant "{" prefill.
func TestBuildParams_JSONModeAppendsPrefill(t *testing.T) {
	p := newTestProvider(t)
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "give me JSON"}},
		JSONMode: true,
	})

	last := params.Messages[len(params.Messages)-1]
	if last.Role != "assistant" {
		t.Fatalf("last message role = %q, want assistant prefill", last.Role)
	}
}

// TestBuildParams_DefaultMaxTokens checks the mandatory MaxTokens field.
func TestBuildParams_DefaultMaxTokens(t *testing.T) {
	p := newTestProvider(t)
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if params.MaxTokens != defaultMaxTokens {
		t.Errorf("MaxTokens = %d, want default %d", params.MaxTokens, defaultMaxTokens)
	}

	params = p.buildParams(llm.CompletionRequest{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		MaxTokens: 512,
	})
	if params.MaxTokens != 512 {
		t.Errorf("MaxTokens = %d, want 512", params.MaxTokens)
	}
}
