// Package anthropic provides an llm.Provider backed by the Anthropic
// Messages API.
//
// The Messages API imposes two structural constraints the generic request
// does not: the system prompt is a separate parameter (never part of the
// message list), and user/assistant turns must strictly alternate starting
// with a user turn. Both rewrites happen in buildParams via the shared
// normalisation helpers.
//
// JSON mode uses the response-prefill technique: an assistant turn
// containing "{" is appended so the model continues the object, and the
// consumed brace is restored on the reply before it is returned.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	ant "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
)

// Name is the provider identity used in routing config and metrics.
const Name = "anthropic"

// defaultMaxTokens is used when the request does not cap completion
// tokens; the Messages API requires an explicit value.
const defaultMaxTokens = 1024

// jsonPrefill is the assistant turn appended in JSON mode.
const jsonPrefill = "{"

// Provider implements llm.Provider using the Anthropic Messages API.
type Provider struct {
	client ant.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default Anthropic API base URL.
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

// New constructs a new Anthropic Provider.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anthropic: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Provider{client: ant.NewClient(reqOpts...), model: model}, nil
}

// Model returns the configured model identifier.
func (p *Provider) Model() string { return p.model }

// Complete implements llm.Provider.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	params := p.buildParams(req)

	start := time.Now()
	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &llm.ProviderError{Provider: Name, Op: "complete", Err: err}
	}

	content := textContent(resp)
	if content == "" {
		return nil, llm.ErrEmpty(Name)
	}
	if req.JSONMode {
		content = llm.RepairJSONPrefix(content)
	}

	prompt := int(resp.Usage.InputTokens)
	completion := int(resp.Usage.OutputTokens)
	return &llm.CompletionResponse{
		Content:  content,
		Model:    string(resp.Model),
		Provider: Name,
		Usage: llm.Usage{
			PromptTokens:     prompt,
			CompletionTokens: completion,
			// The API reports input and output only.
			TotalTokens: prompt + completion,
		},
		LatencyMs: time.Since(start).Milliseconds(),
	}, nil
}

// HealthCheck implements llm.Provider. It sends a minimal single-token
// ping message.
func (p *Provider) HealthCheck(ctx context.Context) bool {
	_, err := p.client.Messages.New(ctx, ant.MessageNewParams{
		Model:     ant.Model(p.model),
		MaxTokens: 1,
		Messages: []ant.MessageParam{
			ant.NewUserMessage(ant.NewTextBlock("ping")),
		},
	})
	return err == nil
}

// buildParams converts a CompletionRequest into Messages API params,
// applying the system split and alternation rewrite.
func (p *Provider) buildParams(req llm.CompletionRequest) ant.MessageNewParams {
	system, rest := llm.ExtractSystem(req.Messages)
	merged := llm.MergeAlternating(rest)

	messages := make([]ant.MessageParam, 0, len(merged)+1)
	for _, m := range merged {
		block := ant.NewTextBlock(m.Content)
		if m.Role == llm.RoleAssistant {
			messages = append(messages, ant.NewAssistantMessage(block))
		} else {
			messages = append(messages, ant.NewUserMessage(block))
		}
	}
	if req.JSONMode {
		messages = append(messages, ant.NewAssistantMessage(ant.NewTextBlock(jsonPrefill)))
	}

	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := ant.MessageNewParams{
		Model:     ant.Model(p.model),
		MaxTokens: maxTokens,
		Messages:  messages,
	}
	if system != "" {
		params.System = []ant.TextBlockParam{{Text: system}}
	}
	if req.Temperature != 0 {
		params.Temperature = ant.Float(req.Temperature)
	}
	return params
}

// textContent concatenates all text blocks of the reply.
func textContent(msg *ant.Message) string {
	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}
