// Package anyllm provides an llm.Provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider client. It is
// the adapter of choice for local and self-hosted backends (Ollama,
// llama.cpp, llamafile) and for any OpenAI-compatible endpoint that has no
// dedicated adapter.
//
// These backends have no reliable native JSON response format, so JSON
// mode falls back to an appended instruction.
package anyllm

import (
	"context"
	"fmt"
	"strings"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
)

// jsonInstruction is appended as a system message when JSONMode is set.
const jsonInstruction = "Respond with a single JSON object and nothing else."

// Provider implements llm.Provider by wrapping any-llm-go.
type Provider struct {
	backend     anyllmlib.Provider
	backendName string
	model       string
	timeout     time.Duration
}

// config holds optional configuration for the provider.
type config struct {
	timeout     time.Duration
	backendOpts []anyllmlib.Option
}

// Option is a functional option for Provider.
type Option func(*config)

// WithAPIKey sets the backend API key.
func WithAPIKey(key string) Option {
	return func(c *config) {
		c.backendOpts = append(c.backendOpts, anyllmlib.WithAPIKey(key))
	}
}

// WithBaseURL overrides the backend's default server address.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.backendOpts = append(c.backendOpts, anyllmlib.WithBaseURL(url))
	}
}

// WithTimeout bounds every backend call. any-llm-go backends take no HTTP
// client of their own, so the bound is applied as a context deadline on
// each Complete and HealthCheck call.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New creates a Provider backed by the named any-llm-go backend.
//
// backendName is one of: "ollama", "llamacpp", "llamafile", "openai".
// model is the specific model to serve (e.g. "llama3.1:8b"). Backends fall
// back to their usual environment variables or local defaults when no
// options are given.
func New(backendName string, model string, opts ...Option) (*Provider, error) {
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	backend, err := createBackend(backendName, cfg.backendOpts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", backendName, err)
	}
	return &Provider{
		backend:     backend,
		backendName: backendName,
		model:       model,
		timeout:     cfg.timeout,
	}, nil
}

// callCtx applies the configured timeout to ctx. The returned cancel func
// is always non-nil.
func (p *Provider) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// createBackend creates the underlying any-llm-go provider.
func createBackend(backendName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(backendName) {
	case "ollama":
		return ollama.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	case "openai":
		return anyllmoai.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported backend %q; supported: ollama, llamacpp, llamafile, openai", backendName)
	}
}

// name returns the provider identity used in responses and errors.
func (p *Provider) name() string {
	return "anyllm:" + p.backendName
}

// Model returns the configured model identifier.
func (p *Provider) Model() string { return p.model }

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params := p.buildParams(req)

	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	start := time.Now()
	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return nil, &llm.ProviderError{Provider: p.name(), Op: "complete", Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, llm.ErrEmpty(p.name())
	}
	content := resp.Choices[0].Message.ContentString()
	if content == "" {
		return nil, llm.ErrEmpty(p.name())
	}

	usage := llm.Usage{}
	if resp.Usage != nil {
		usage = llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
		if usage.TotalTokens == 0 {
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		}
	}

	return &llm.CompletionResponse{
		Content:   content,
		Model:     p.model,
		Provider:  p.name(),
		Usage:     usage,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// HealthCheck implements llm.Provider. A single-token completion is the
// only probe every any-llm-go backend supports.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	ctx, cancel := p.callCtx(ctx)
	defer cancel()

	one := 1
	_, err := p.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleUser, Content: "ping"},
		},
		MaxTokens: &one,
	})
	return err == nil
}

// buildParams converts a CompletionRequest into any-llm-go params.
func (p *Provider) buildParams(req llm.CompletionRequest) anyllmlib.CompletionParams {
	messages := make([]anyllmlib.Message, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		messages = append(messages, anyllmlib.Message{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	if req.JSONMode {
		messages = append(messages, anyllmlib.Message{
			Role:    anyllmlib.RoleSystem,
			Content: jsonInstruction,
		})
	}

	params := anyllmlib.CompletionParams{
		Model:    p.model,
		Messages: messages,
	}
	if req.Temperature != 0 {
		t := req.Temperature
		params.Temperature = &t
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		params.MaxTokens = &mt
	}
	return params
}
