package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/abhiramzobot/zobot-sub002/internal/observe"
	"github.com/abhiramzobot/zobot-sub002/internal/tools/policy"
)

// defaultTimeout bounds handler execution for tools that declare no
// TimeoutMs of their own.
const defaultTimeout = 10 * time.Second

// Context carries the per-invocation identity a tool call runs under.
type Context struct {
	// ConversationID keys rate-limit windows.
	ConversationID string

	// Tenant identifies the customer the conversation belongs to.
	Tenant string

	// Channel names the surface the call originated from ("web",
	// "whatsapp", ...). Checked against Definition.AllowedChannels.
	Channel string

	// RequestID correlates log lines across the call, optional.
	RequestID string
}

// Result is the uniform envelope returned for every invocation. Execute
// never returns a Go error and never panics past its boundary; all
// failure modes land in Error with Success false.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Runtime executes registered tools through a fixed pipeline of checks:
// existence, policy enablement, input-schema validation, per-conversation
// rate limiting, then timed handler execution. Checks short-circuit on
// the first failure.
//
// The policy checker is consulted fresh on every call; its answers are
// never cached, since enablement can change between calls.
type Runtime struct {
	registry *Registry
	policy   policy.Checker
	limits   *limiter
	metrics  *observe.Metrics // may be nil
}

// NewRuntime creates a Runtime over reg. checker must not be nil; pass
// [policy.AllowAll] to disable gating. metrics may be nil.
func NewRuntime(reg *Registry, checker policy.Checker, metrics *observe.Metrics) *Runtime {
	return &Runtime{
		registry: reg,
		policy:   checker,
		limits:   newLimiter(),
		metrics:  metrics,
	}
}

// Execute runs the named tool with args under rc. The returned Result is
// non-nil for every input; see [Result].
func (rt *Runtime) Execute(ctx context.Context, name string, args map[string]any, rc Context) Result {
	ctx, span := observe.StartSpan(ctx, "tools.execute")
	defer span.End()
	log := observe.Logger(ctx)

	e, ok := rt.registry.lookup(name)
	if !ok {
		rt.count(ctx, name, "unknown")
		return failure(fmt.Sprintf("Unknown tool: %s", name))
	}
	def := e.def

	if !rt.enabled(ctx, def, rc) {
		rt.count(ctx, name, "denied")
		log.Info("tool call denied by policy",
			"tool", name, "tenant", rc.Tenant, "channel", rc.Channel)
		return failure(fmt.Sprintf("Tool %q is not currently enabled for this conversation", name))
	}

	if err := validateInput(e, args); err != nil {
		rt.count(ctx, name, "invalid")
		return failure(fmt.Sprintf("Invalid input: %v", err))
	}

	if !rt.limits.allow(name, rc.ConversationID, def.RateLimitPerMinute) {
		rt.count(ctx, name, "rate_limited")
		log.Warn("tool call rate limited",
			"tool", name, "conversation_id", rc.ConversationID,
			"limit_per_minute", def.RateLimitPerMinute)
		return failure(fmt.Sprintf("Tool %q hit its rate limit of %d calls per minute", name, def.RateLimitPerMinute))
	}

	res, status := rt.run(ctx, e, args)
	rt.count(ctx, name, status)
	return res
}

// enabled applies the channel restriction and the fresh policy check.
func (rt *Runtime) enabled(ctx context.Context, def Definition, rc Context) bool {
	if len(def.AllowedChannels) > 0 && !slices.Contains(def.AllowedChannels, rc.Channel) {
		return false
	}
	return rt.policy.Allowed(ctx, policy.Query{
		Tenant:  rc.Tenant,
		Tool:    def.Name,
		Channel: rc.Channel,
		FlagKey: def.FeatureFlagKey,
	})
}

// validateInput checks args against the tool's compiled input schema.
// Args are round-tripped through JSON so handler inputs built from Go
// values (ints, structs) validate the same as decoded webhook payloads.
func validateInput(e *entry, args map[string]any) error {
	if e.schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("arguments are not JSON-encodable: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	return e.schema.Validate(decoded)
}

// handlerOutcome carries a handler's return values across the timeout
// boundary.
type handlerOutcome struct {
	data any
	err  error
}

// run executes the handler under its deadline and maps the outcome onto a
// Result plus a metrics status. A handler that resolves after the
// deadline writes into a buffered channel nobody reads; its result has no
// observable effect.
func (rt *Runtime) run(ctx context.Context, e *entry, args map[string]any) (Result, string) {
	timeout := defaultTimeout
	if e.def.TimeoutMs > 0 {
		timeout = time.Duration(e.def.TimeoutMs) * time.Millisecond
	}
	handlerCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := make(chan handlerOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				out <- handlerOutcome{err: fmt.Errorf("handler panicked: %v", r)}
			}
		}()
		data, err := e.def.Handler(handlerCtx, args)
		out <- handlerOutcome{data: data, err: err}
	}()

	start := time.Now()
	select {
	case o := <-out:
		rt.observeDuration(ctx, e.def.Name, time.Since(start), o.err == nil)
		if o.err != nil {
			return failure(o.err.Error()), "error"
		}
		return Result{Success: true, Data: o.data}, "ok"

	case <-handlerCtx.Done():
		rt.observeDuration(ctx, e.def.Name, time.Since(start), false)
		if errors.Is(handlerCtx.Err(), context.DeadlineExceeded) {
			return failure(fmt.Sprintf("Tool %q timed out after %s", e.def.Name, timeout)), "timeout"
		}
		// Caller cancellation, not a tool fault.
		return failure(fmt.Sprintf("Tool %q was canceled: %v", e.def.Name, handlerCtx.Err())), "canceled"
	}
}

func (rt *Runtime) observeDuration(ctx context.Context, tool string, d time.Duration, ok bool) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.ToolDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		observe.Tool(tool),
		observe.Outcome(ok),
	))
}

func (rt *Runtime) count(ctx context.Context, tool, status string) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.ToolCalls.Add(ctx, 1, metric.WithAttributes(
		observe.Tool(tool),
		observe.Status(status),
	))
}

func failure(msg string) Result {
	return Result{Success: false, Error: msg}
}
