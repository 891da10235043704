// Package router dispatches completion requests across interchangeable
// backend providers.
//
// The router owns the set of [llm.Provider] adapters, applies a routing
// [Strategy] to produce an ordered candidate list, and walks the list one
// provider at a time: breaker-gated, no parallel speculative dispatch.
// The first success wins; a failed provider is recorded against its
// circuit breaker and the next candidate is tried immediately within the
// same call. Only when every candidate has failed or been breaker-skipped
// does [Router.Complete] fail, with [ErrAllProvidersExhausted] wrapping
// the last underlying error.
//
// Router is safe for concurrent use; the only shared mutable state is the
// per-provider breaker table, which locks per entry.
package router

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/abhiramzobot/zobot-sub002/internal/observe"
	"github.com/abhiramzobot/zobot-sub002/internal/resilience"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
)

// ErrAllProvidersExhausted is returned by [Router.Complete] when every
// candidate failed or was breaker-skipped. Callers should substitute a
// degraded fallback reply rather than surfacing this error to end users.
var ErrAllProvidersExhausted = errors.New("all providers exhausted")

// ErrCanceled wraps a caller-initiated cancellation so it is
// distinguishable from provider failure.
var ErrCanceled = errors.New("completion canceled by caller")

// healthProbeTimeout bounds each per-provider probe in [Router.HealthCheck].
const healthProbeTimeout = 5 * time.Second

// Config holds the routing configuration, loaded once at startup and
// immutable for the process lifetime.
type Config struct {
	// Primary is the first-choice provider. Must name a configured
	// provider or construction fails.
	Primary string

	// Secondary and Tertiary extend the failover chain. Optional; when set
	// they must name configured providers.
	Secondary string
	Tertiary  string

	// Strategy selects how the candidate prefix is computed.
	Strategy Strategy

	// SplitPercent is the share of conversations (0–100) routed primary-
	// first under [StrategySplitTest].
	SplitPercent int

	// IntentOverrides maps an intent to the provider that should lead the
	// candidate list under [StrategyIntent].
	IntentOverrides map[string]string

	// Breaker tunes the per-provider circuit breakers. Zero values use the
	// resilience defaults (5 failures, 60s cooldown).
	Breaker resilience.Config
}

// Context carries the per-call routing inputs. It is immutable and used
// only to compute the candidate order.
type Context struct {
	ConversationID string
	Intent         string
	Channel        string
	RequestID      string
}

// ProviderHealth is one entry of the [Router.HealthCheck] report.
type ProviderHealth struct {
	// Status is "ok" when the provider's health probe succeeded, "down"
	// otherwise.
	Status string `json:"status"`

	// LatencyMs is the probe round-trip time.
	LatencyMs int64 `json:"latency_ms"`
}

// Router walks an ordered provider chain with per-provider circuit
// breaking. Create instances with [New].
type Router struct {
	cfg       Config
	providers map[string]llm.Provider
	chain     []string
	breakers  *resilience.Set
	metrics   *observe.Metrics
}

// New validates cfg against the supplied provider set and returns a ready
// Router. A missing or unconfigured primary provider is a construction
// error; so is a secondary or tertiary that names no configured provider.
// metrics may be nil, in which case no measurements are recorded.
func New(cfg Config, providers map[string]llm.Provider, metrics *observe.Metrics) (*Router, error) {
	if cfg.Primary == "" {
		return nil, errors.New("router: primary provider must be configured")
	}
	if _, ok := providers[cfg.Primary]; !ok {
		return nil, fmt.Errorf("router: primary provider %q is not configured", cfg.Primary)
	}

	chain := []string{cfg.Primary}
	for _, name := range []string{cfg.Secondary, cfg.Tertiary} {
		if name == "" {
			continue
		}
		if _, ok := providers[name]; !ok {
			return nil, fmt.Errorf("router: failover provider %q is not configured", name)
		}
		chain = append(chain, name)
	}

	if cfg.SplitPercent < 0 || cfg.SplitPercent > 100 {
		return nil, fmt.Errorf("router: split percent %d out of range [0, 100]", cfg.SplitPercent)
	}
	for intent, name := range cfg.IntentOverrides {
		if _, ok := providers[name]; !ok {
			return nil, fmt.Errorf("router: intent %q maps to unconfigured provider %q", intent, name)
		}
	}

	return &Router{
		cfg:       cfg,
		providers: providers,
		chain:     chain,
		breakers:  resilience.NewSet(cfg.Breaker),
		metrics:   metrics,
	}, nil
}

// Primary returns the configured primary provider identity.
func (r *Router) Primary() string {
	return r.cfg.Primary
}

// Complete dispatches req to the first healthy provider in the resolved
// candidate order. Providers with an open breaker are skipped without
// counting as an attempt. Caller cancellation aborts the walk and returns
// an error wrapping [ErrCanceled].
func (r *Router) Complete(ctx context.Context, req llm.CompletionRequest, rc Context) (*llm.CompletionResponse, error) {
	ctx, span := observe.StartSpan(ctx, "router.complete")
	defer span.End()

	order := r.resolveOrder(rc)
	log := observe.Logger(ctx)

	var (
		lastErr    error
		failedFrom string
	)
	for _, name := range order {
		breaker := r.breakers.Get(name)
		if !breaker.Allow() {
			log.Debug("skipping provider, circuit open",
				"provider", name, "conversation_id", rc.ConversationID)
			continue
		}

		start := time.Now()
		resp, err := r.providers[name].Complete(ctx, req)
		elapsed := time.Since(start)

		if err != nil {
			r.recordAttempt(ctx, name, r.modelOf(name), elapsed, false)
			if ctx.Err() != nil {
				// The caller gave up; the provider did not fail.
				return nil, fmt.Errorf("%w: %v", ErrCanceled, ctx.Err())
			}
			breaker.RecordFailure()
			lastErr = err
			failedFrom = name
			log.Warn("provider failed, trying next candidate",
				"provider", name, "conversation_id", rc.ConversationID, "error", err)
			continue
		}

		breaker.RecordSuccess()
		r.recordAttempt(ctx, name, resp.Model, elapsed, true)
		r.recordUsage(ctx, name, resp.Usage)
		if failedFrom != "" {
			r.recordFailover(ctx, failedFrom, name)
			log.Warn("failover succeeded",
				"from_provider", failedFrom, "to_provider", name,
				"conversation_id", rc.ConversationID)
		}
		return resp, nil
	}

	if lastErr == nil {
		return nil, fmt.Errorf("%w: every candidate has an open circuit breaker", ErrAllProvidersExhausted)
	}
	return nil, fmt.Errorf("%w: %v", ErrAllProvidersExhausted, lastErr)
}

// IsFullyOpen reports whether every provider in the configured failover
// chain currently has an open, unexpired breaker — a total outage, letting
// callers short-circuit to a degraded reply without attempting any call.
func (r *Router) IsFullyOpen() bool {
	return r.breakers.AllOpen(r.chain)
}

// HealthCheck probes every configured provider concurrently and returns a
// per-provider status report. Probes never fail the overall call.
func (r *Router) HealthCheck(ctx context.Context) map[string]ProviderHealth {
	results := make(map[string]ProviderHealth, len(r.providers))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for name, p := range r.providers {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
			defer cancel()

			start := time.Now()
			ok := p.HealthCheck(probeCtx)
			h := ProviderHealth{Status: "down", LatencyMs: time.Since(start).Milliseconds()}
			if ok {
				h.Status = "ok"
			}

			mu.Lock()
			results[name] = h
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// modelOf returns the provider's configured model identity, or "" when
// the adapter does not expose one.
func (r *Router) modelOf(name string) string {
	if m, ok := r.providers[name].(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

// recordAttempt emits the per-attempt duration measurement, tagged with
// the provider, the model that served (or would have served) the attempt,
// and the outcome.
func (r *Router) recordAttempt(ctx context.Context, provider, model string, d time.Duration, ok bool) {
	if r.metrics == nil {
		return
	}
	r.metrics.LLMDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		observe.Provider(provider),
		observe.Model(model),
		observe.Outcome(ok),
	))
}

// recordUsage emits the prompt/completion token counters.
func (r *Router) recordUsage(ctx context.Context, provider string, u llm.Usage) {
	if r.metrics == nil {
		return
	}
	r.metrics.LLMTokens.Add(ctx, int64(u.PromptTokens), metric.WithAttributes(
		observe.Provider(provider), attribute.String("kind", "prompt")))
	r.metrics.LLMTokens.Add(ctx, int64(u.CompletionTokens), metric.WithAttributes(
		observe.Provider(provider), attribute.String("kind", "completion")))
}

// recordFailover emits the failover counter.
func (r *Router) recordFailover(ctx context.Context, from, to string) {
	if r.metrics == nil {
		return
	}
	r.metrics.Failovers.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from_provider", from),
		attribute.String("to_provider", to),
	))
}
