package openai

import (
	"testing"

	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
)

// TestNew_Validation checks constructor argument validation.
func TestNew_Validation(t *testing.T) {
	if _, err := New("", "gpt-4o-mini"); err == nil {
		t.Error("expected error for empty apiKey")
	}
	if _, err := New("sk-test", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("sk-test", "gpt-4o-mini"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestConvertMessage checks role mapping into SDK params.
func TestConvertMessage(t *testing.T) {
	if p := convertMessage(llm.Message{Role: llm.RoleSystem, Content: "x"}); p.OfSystem == nil {
		t.Error("system message: expected OfSystem to be set")
	}
	if p := convertMessage(llm.Message{Role: llm.RoleUser, Content: "x"}); p.OfUser == nil {
		t.Error("user message: expected OfUser to be set")
	}
	if p := convertMessage(llm.Message{Role: llm.RoleAssistant, Content: "x"}); p.OfAssistant == nil {
		t.Error("assistant message: expected OfAssistant to be set")
	}
}

// TestBuildParams_JSONMode checks that jsonMode requests the native
// json_object response format.
func TestBuildParams_JSONMode(t *testing.T) {
	p, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}

	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		JSONMode: true,
	})
	if params.ResponseFormat.OfJSONObject == nil {
		t.Error("expected OfJSONObject response format when JSONMode is set")
	}

	params = p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if params.ResponseFormat.OfJSONObject != nil {
		t.Error("expected no response format without JSONMode")
	}
}

// TestBuildParams_Limits checks temperature and max token plumbing.
func TestBuildParams_Limits(t *testing.T) {
	p, err := New("sk-test", "gpt-4o-mini")
	if err != nil {
		t.Fatal(err)
	}

	params := p.buildParams(llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
		Temperature: 0.4,
		MaxTokens:   256,
	})
	if v := params.Temperature.Or(0); v != 0.4 {
		t.Errorf("Temperature = %v, want 0.4", v)
	}
	if v := params.MaxCompletionTokens.Or(0); v != 256 {
		t.Errorf("MaxCompletionTokens = %v, want 256", v)
	}
}
