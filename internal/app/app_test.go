package app

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/abhiramzobot/zobot-sub002/internal/config"
	"github.com/abhiramzobot/zobot-sub002/internal/router"
	"github.com/abhiramzobot/zobot-sub002/internal/tools"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm/mock"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: ":0"},
		Providers: map[string]config.ProviderEntry{
			"openai":    {Kind: "openai", Model: "gpt-4o", Temperature: 0.6, MaxTokens: 512},
			"anthropic": {Kind: "anthropic", Model: "claude-sonnet-4-5"},
		},
		Router: config.RouterConfig{
			Primary:   "openai",
			Secondary: "anthropic",
		},
	}
}

func newTestApp(t *testing.T, providers map[string]llm.Provider) *App {
	t.Helper()
	a, err := New(context.Background(), testConfig(), nil,
		WithMetrics(nil),
		WithProviderBuilder(func(context.Context, *config.Config) (map[string]llm.Provider, error) {
			return providers, nil
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func userRequest(text string) llm.CompletionRequest {
	return llm.CompletionRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: text}}}
}

func TestChat_RoutesToPrimary(t *testing.T) {
	primary := &mock.Provider{CompleteResponse: &llm.CompletionResponse{
		Content: "Hi there!", Provider: "openai",
	}}
	a := newTestApp(t, map[string]llm.Provider{
		"openai":    primary,
		"anthropic": &mock.Provider{},
	})

	r, err := a.Chat(context.Background(), userRequest("hello"), router.Context{ConversationID: "c1"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Content != "Hi there!" || r.Provider != "openai" {
		t.Errorf("reply = %+v", r)
	}
	if r.HandoffRequested {
		t.Error("HandoffRequested = true on a normal reply")
	}

	// Primary's configured defaults were applied to the zero-value request.
	req := primary.CompleteCalls[0].Req
	if req.Temperature != 0.6 || req.MaxTokens != 512 {
		t.Errorf("defaults not applied: temperature=%v maxTokens=%d", req.Temperature, req.MaxTokens)
	}
}

func TestChat_TotalOutageDegrades(t *testing.T) {
	down := errors.New("backend down")
	a := newTestApp(t, map[string]llm.Provider{
		"openai":    &mock.Provider{CompleteErr: down},
		"anthropic": &mock.Provider{CompleteErr: down},
	})

	r, err := a.Chat(context.Background(), userRequest("hello"), router.Context{ConversationID: "c1"})
	if err != nil {
		t.Fatalf("degraded path returned error: %v", err)
	}
	if !r.HandoffRequested {
		t.Error("HandoffRequested = false during total outage")
	}
	if r.Provider != "fallback" {
		t.Errorf("Provider = %q, want fallback", r.Provider)
	}
}

func TestChat_CancellationPropagates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := newTestApp(t, map[string]llm.Provider{
		"openai": &mock.Provider{
			CompleteFn: func(ctx context.Context, _ llm.CompletionRequest) (*llm.CompletionResponse, error) {
				cancel()
				return nil, ctx.Err()
			},
		},
		"anthropic": &mock.Provider{},
	})

	_, err := a.Chat(ctx, userRequest("hello"), router.Context{ConversationID: "c1"})
	if !errors.Is(err, router.ErrCanceled) {
		t.Fatalf("err = %v, want ErrCanceled", err)
	}
}

func TestExecuteTool_BuiltinsRegistered(t *testing.T) {
	a := newTestApp(t, map[string]llm.Provider{
		"openai":    &mock.Provider{},
		"anthropic": &mock.Provider{},
	})

	if !a.Tools().Has("create_ticket") || !a.Tools().Has("order_status") {
		t.Fatal("builtin tools not registered")
	}

	res := a.ExecuteTool(context.Background(), "order_status",
		map[string]any{"order_id": "ORD-7"},
		tools.Context{ConversationID: "c1", Tenant: "acme", Channel: "web"})
	if !res.Success {
		t.Fatalf("ExecuteTool failed: %s", res.Error)
	}

	res = a.ExecuteTool(context.Background(), "missing", nil,
		tools.Context{ConversationID: "c1"})
	if res.Success || !strings.Contains(res.Error, "Unknown tool") {
		t.Errorf("result = %+v", res)
	}
}

func TestNew_RejectsBadRouterConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Router.Primary = "gemini" // not among the built providers

	_, err := New(context.Background(), cfg, nil,
		WithMetrics(nil),
		WithProviderBuilder(func(context.Context, *config.Config) (map[string]llm.Provider, error) {
			return map[string]llm.Provider{"openai": &mock.Provider{}, "anthropic": &mock.Provider{}}, nil
		}),
	)
	if err == nil {
		t.Fatal("expected construction error for unconfigured primary")
	}
}
