// Package app wires all zobot subsystems into a running application.
//
// The App struct owns the full lifecycle: [New] builds providers from the
// config registry, assembles the router and tool runtime, and sets up the
// HTTP surface; [Run] serves until the context is cancelled; [Shutdown]
// tears everything down in order.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/abhiramzobot/zobot-sub002/internal/config"
	"github.com/abhiramzobot/zobot-sub002/internal/health"
	"github.com/abhiramzobot/zobot-sub002/internal/observe"
	"github.com/abhiramzobot/zobot-sub002/internal/reply"
	"github.com/abhiramzobot/zobot-sub002/internal/resilience"
	"github.com/abhiramzobot/zobot-sub002/internal/router"
	"github.com/abhiramzobot/zobot-sub002/internal/tools"
	"github.com/abhiramzobot/zobot-sub002/internal/tools/builtin"
	"github.com/abhiramzobot/zobot-sub002/internal/tools/policy"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
)

// shutdownTimeout bounds the HTTP server drain during Shutdown.
const shutdownTimeout = 10 * time.Second

// App owns all subsystem lifetimes for the zobot server.
type App struct {
	cfg     *config.Config
	router  *router.Router
	runtime *tools.Runtime
	tools   *tools.Registry
	metrics *observe.Metrics

	server *http.Server

	// closers are called in order during Shutdown.
	closers  []func(context.Context) error
	stopOnce sync.Once
}

// Option is a functional option for [New]. Use these to inject test
// doubles.
type Option func(*options)

type options struct {
	metrics      *observe.Metrics
	checker      policy.Checker
	extraDefs    []tools.Definition
	skipObserve  bool
	providersFor func(ctx context.Context, cfg *config.Config) (map[string]llm.Provider, error)
}

// WithMetrics injects a pre-built metrics set instead of initialising the
// global OTel provider. Implies skipping the Prometheus bridge.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) {
		o.metrics = m
		o.skipObserve = true
	}
}

// WithPolicyChecker replaces the config-driven static checker.
func WithPolicyChecker(c policy.Checker) Option {
	return func(o *options) { o.checker = c }
}

// WithTools registers additional tool definitions beyond the built-ins.
func WithTools(defs ...tools.Definition) Option {
	return func(o *options) { o.extraDefs = append(o.extraDefs, defs...) }
}

// WithProviderBuilder replaces the registry-driven provider construction.
// Used by tests to supply mock providers without API keys.
func WithProviderBuilder(fn func(ctx context.Context, cfg *config.Config) (map[string]llm.Provider, error)) Option {
	return func(o *options) { o.providersFor = fn }
}

// New creates an App by wiring providers, router, tool runtime, and the
// HTTP surface together. reg supplies the provider factories; main.go
// registers the built-in ones.
func New(ctx context.Context, cfg *config.Config, reg *config.Registry, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{cfg: cfg}

	// Observability first so every later subsystem can record into it.
	if o.metrics != nil {
		a.metrics = o.metrics
	} else if !o.skipObserve {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
		if err != nil {
			return nil, fmt.Errorf("app: init observability: %w", err)
		}
		a.closers = append(a.closers, shutdown)

		a.metrics, err = observe.NewMetrics(otel.GetMeterProvider())
		if err != nil {
			return nil, fmt.Errorf("app: create metrics: %w", err)
		}
	}

	// Providers, from the factory registry unless a builder was injected.
	buildProviders := o.providersFor
	if buildProviders == nil {
		buildProviders = func(ctx context.Context, cfg *config.Config) (map[string]llm.Provider, error) {
			return providersFromRegistry(ctx, cfg, reg)
		}
	}
	providers, err := buildProviders(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("app: build providers: %w", err)
	}

	// Router.
	strategy, err := router.ParseStrategy(cfg.Router.Strategy)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	a.router, err = router.New(router.Config{
		Primary:         cfg.Router.Primary,
		Secondary:       cfg.Router.Secondary,
		Tertiary:        cfg.Router.Tertiary,
		Strategy:        strategy,
		SplitPercent:    cfg.Router.SplitPercent,
		IntentOverrides: cfg.Router.IntentOverrides,
		Breaker: resilience.Config{
			MaxFailures: cfg.Router.Breaker.MaxFailures,
			Cooldown:    time.Duration(cfg.Router.Breaker.CooldownSeconds) * time.Second,
		},
	}, providers, a.metrics)
	if err != nil {
		return nil, fmt.Errorf("app: build router: %w", err)
	}

	// Tool registry and runtime.
	a.tools = tools.NewRegistry()
	for _, def := range builtin.Defs() {
		if err := a.tools.Register(def); err != nil {
			return nil, fmt.Errorf("app: register builtin tool: %w", err)
		}
	}
	for _, def := range o.extraDefs {
		if err := a.tools.Register(def); err != nil {
			return nil, fmt.Errorf("app: register tool: %w", err)
		}
	}

	checker := o.checker
	if checker == nil {
		checker = &policy.Static{
			Flags:      cfg.Tools.FeatureFlags,
			TenantDeny: cfg.Tools.TenantDeny,
		}
	}
	a.runtime = tools.NewRuntime(a.tools, checker, a.metrics)

	// HTTP surface: health probes and the Prometheus scrape endpoint.
	mux := http.NewServeMux()
	health.New(a.router).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: mux,
	}

	return a, nil
}

// providersFromRegistry instantiates every declared provider through the
// factory registry.
func providersFromRegistry(ctx context.Context, cfg *config.Config, reg *config.Registry) (map[string]llm.Provider, error) {
	providers := make(map[string]llm.Provider, len(cfg.Providers))
	for name, entry := range cfg.Providers {
		p, err := reg.CreateLLM(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("create provider %q: %w", name, err)
		}
		providers[name] = p
		slog.Info("provider created", "name", name, "kind", entry.Kind, "model", entry.Model)
	}
	return providers, nil
}

// Router exposes the provider router for channel adapters.
func (a *App) Router() *router.Router { return a.router }

// Tools exposes the tool registry so prompt assembly can advertise
// function specs to the model.
func (a *App) Tools() *tools.Registry { return a.tools }

// Chat routes one completion request and folds a total provider outage
// into the degraded human-handoff reply. Any other error (including
// caller cancellation) propagates.
func (a *App) Chat(ctx context.Context, req llm.CompletionRequest, rc router.Context) (reply.Reply, error) {
	a.applyDefaults(&req)

	resp, err := a.router.Complete(ctx, req, rc)
	if err != nil {
		if reply.ShouldDegrade(err) {
			observe.Logger(ctx).Error("all providers exhausted, sending degraded reply",
				"conversation_id", rc.ConversationID, "error", err)
			return reply.Degraded(), nil
		}
		return reply.Reply{}, err
	}
	return reply.FromResponse(resp), nil
}

// ExecuteTool runs one tool invocation through the runtime.
func (a *App) ExecuteTool(ctx context.Context, name string, args map[string]any, rc tools.Context) tools.Result {
	return a.runtime.Execute(ctx, name, args, rc)
}

// applyDefaults fills request fields left at zero from the primary
// provider's configured defaults.
func (a *App) applyDefaults(req *llm.CompletionRequest) {
	entry := a.cfg.Providers[a.cfg.Router.Primary]
	if req.Temperature == 0 && entry.Temperature != 0 {
		req.Temperature = entry.Temperature
	}
	if req.MaxTokens == 0 && entry.MaxTokens != 0 {
		req.MaxTokens = entry.MaxTokens
	}
}

// Run serves HTTP until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("app: http server: %w", err)
	}
}

// Shutdown drains the HTTP server and flushes observability state. Safe
// to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error
	a.stopOnce.Do(func() {
		drainCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(drainCtx); err != nil {
			firstErr = fmt.Errorf("app: drain http server: %w", err)
		}

		for _, closer := range a.closers {
			if err := closer(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	return firstErr
}
