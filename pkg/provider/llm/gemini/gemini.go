// Package gemini provides an llm.Provider backed by the Google Gemini API.
//
// Gemini takes the system prompt as a separate SystemInstruction and uses
// "user"/"model" roles with alternating turns, so the generic message list
// goes through the shared system split and alternation merge. JSON mode
// maps onto the native application/json response MIME type.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
)

// Name is the provider identity used in routing config and metrics.
const Name = "gemini"

// Provider implements llm.Provider using the Gemini API.
type Provider struct {
	client *genai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default Gemini API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// New constructs a new Gemini Provider.
func New(ctx context.Context, apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("gemini: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	client, err := genai.NewClient(ctx, clientConfig(apiKey, cfg))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{client: client, model: model}, nil
}

// Model returns the configured model identifier.
func (p *Provider) Model() string { return p.model }

// clientConfig translates the adapter options into a genai client config.
func clientConfig(apiKey string, cfg *config) *genai.ClientConfig {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.baseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.baseURL
	}
	if cfg.timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.timeout}
	}
	return cc
}

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	contents, cfg := buildRequest(req)

	start := time.Now()
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return nil, &llm.ProviderError{Provider: Name, Op: "complete", Err: err}
	}

	content := textContent(resp)
	if content == "" {
		return nil, llm.ErrEmpty(Name)
	}

	usage := llm.Usage{}
	if um := resp.UsageMetadata; um != nil {
		usage.PromptTokens = int(um.PromptTokenCount)
		usage.CompletionTokens = int(um.CandidatesTokenCount)
		usage.TotalTokens = int(um.TotalTokenCount)
		if usage.TotalTokens == 0 {
			usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
		}
	}

	return &llm.CompletionResponse{
		Content:   content,
		Model:     p.model,
		Provider:  Name,
		Usage:     usage,
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// HealthCheck implements llm.Provider. CountTokens is the cheapest call
// that exercises auth and the model endpoint without generating anything.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	_, err := p.client.Models.CountTokens(ctx, p.model,
		[]*genai.Content{genai.NewContentFromText("ping", genai.RoleUser)}, nil)
	return err == nil
}

// buildRequest converts a CompletionRequest into Gemini contents + config.
func buildRequest(req llm.CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	system, rest := llm.ExtractSystem(req.Messages)
	merged := llm.MergeAlternating(rest)

	contents := make([]*genai.Content, 0, len(merged))
	for _, m := range merged {
		role := genai.RoleUser
		if m.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.Role(role)))
	}

	cfg := &genai.GenerateContentConfig{}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: system}},
		}
	}
	if req.Temperature != 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}
	return contents, cfg
}

// textContent concatenates the text parts of the first candidate.
func textContent(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}
