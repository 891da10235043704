package config

import (
	"context"
	"strings"
	"testing"

	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm/mock"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: info
providers:
  openai:
    api_key: ${ZOBOT_TEST_OPENAI_KEY}
    model: gpt-4o
    timeout_ms: 15000
  anthropic:
    api_key: sk-ant-test
    model: claude-sonnet-4-5
router:
  primary: openai
  secondary: anthropic
  strategy: split-test
  split_percent: 80
tools:
  feature_flags:
    tools.create_ticket: true
`

func TestLoadFromReader(t *testing.T) {
	t.Setenv("ZOBOT_TEST_OPENAI_KEY", "sk-test-123")

	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if got := cfg.Providers["openai"].APIKey; got != "sk-test-123" {
		t.Errorf("openai api_key = %q, want expanded env value", got)
	}
	// Kind defaults to the map key.
	if got := cfg.Providers["anthropic"].Kind; got != "anthropic" {
		t.Errorf("anthropic kind = %q, want anthropic", got)
	}
	if cfg.Router.Primary != "openai" || cfg.Router.SplitPercent != 80 {
		t.Errorf("router = %+v", cfg.Router)
	}
	if !cfg.Tools.FeatureFlags["tools.create_ticket"] {
		t.Error("feature flag not loaded")
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	yaml := `
server:
  listen_addr: ":8080"
  lsiten_addr_typo: ":9090"
`
	if _, err := LoadFromReader(strings.NewReader(yaml)); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestValidate_CollectsAllFailures(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{LogLevel: "loud"},
		Providers: map[string]ProviderEntry{
			"openai": {Kind: "openai"}, // missing model
		},
		Router: RouterConfig{
			Primary:      "missing",
			Secondary:    "also-missing",
			Strategy:     "round-robin",
			SplitPercent: 150,
			IntentOverrides: map[string]string{
				"billing": "nope",
			},
		},
	}

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation failure")
	}
	for _, want := range []string{
		"log_level",
		"router.primary",
		"router.secondary",
		"strategy",
		"split_percent",
		"intent_overrides",
		"model is required",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error does not mention %q: %v", want, err)
		}
	}
}

func TestValidate_MissingPrimaryIsFatal(t *testing.T) {
	cfg := &Config{
		Providers: map[string]ProviderEntry{
			"openai": {Kind: "openai", Model: "gpt-4o"},
		},
	}
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "router.primary is required") {
		t.Errorf("err = %v, want missing-primary failure", err)
	}
}

func TestRegistry_CreateLLM(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterLLM("mock", func(_ context.Context, entry ProviderEntry) (llm.Provider, error) {
		return &mock.Provider{Healthy: true}, nil
	})

	p, err := reg.CreateLLM(context.Background(), ProviderEntry{Kind: "mock", Model: "m"})
	if err != nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if !p.HealthCheck(context.Background()) {
		t.Error("factory-built provider unexpectedly unhealthy")
	}

	if _, err := reg.CreateLLM(context.Background(), ProviderEntry{Kind: "nope"}); err == nil {
		t.Error("expected ErrProviderNotRegistered for unknown kind")
	}
}
