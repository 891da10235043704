// Package observe provides application-wide observability primitives for
// zobot: OpenTelemetry metrics, tracing, and the structured-logging glue
// that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped from the standard /metrics endpoint. Tests should use
// [NewMetrics] with a custom [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all zobot metrics.
const meterName = "github.com/abhiramzobot/zobot-sub002"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types
// handle their own synchronisation.
type Metrics struct {
	// LLMDuration tracks completion-call latency per attempt. Use with
	// attributes: provider, model, outcome ("ok" | "error").
	LLMDuration metric.Float64Histogram

	// LLMTokens counts tokens consumed by completions. Use with
	// attributes: provider, kind ("prompt" | "completion").
	LLMTokens metric.Int64Counter

	// Failovers counts successful failovers. Use with attributes:
	// from_provider, to_provider.
	Failovers metric.Int64Counter

	// ToolDuration tracks tool handler execution latency. Use with
	// attributes: tool, outcome.
	ToolDuration metric.Float64Histogram

	// ToolCalls counts tool invocations by final status. Use with
	// attributes: tool, status ("ok", "denied", "invalid", "rate_limited",
	// "timeout", "error").
	ToolCalls metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized
// for remote completion and tool latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation
// fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.LLMDuration, err = m.Float64Histogram("zobot.llm.duration",
		metric.WithDescription("Latency of completion attempts by provider, model, and outcome."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.LLMTokens, err = m.Int64Counter("zobot.llm.tokens",
		metric.WithDescription("Tokens consumed by completions, split by prompt/completion."),
	); err != nil {
		return nil, err
	}
	if met.Failovers, err = m.Int64Counter("zobot.llm.failover",
		metric.WithDescription("Successful failovers by from-provider and to-provider."),
	); err != nil {
		return nil, err
	}
	if met.ToolDuration, err = m.Float64Histogram("zobot.tool.duration",
		metric.WithDescription("Latency of tool handler execution."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("zobot.tool.calls",
		metric.WithDescription("Tool invocations by tool name and final status."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// Provider returns the attribute key/value for a provider name.
func Provider(name string) attribute.KeyValue {
	return attribute.String("provider", name)
}

// Model returns the attribute key/value for a model identifier.
func Model(name string) attribute.KeyValue {
	return attribute.String("model", name)
}

// Outcome returns the attribute key/value for a call outcome.
func Outcome(ok bool) attribute.KeyValue {
	if ok {
		return attribute.String("outcome", "ok")
	}
	return attribute.String("outcome", "error")
}

// Tool returns the attribute key/value for a tool name.
func Tool(name string) attribute.KeyValue {
	return attribute.String("tool", name)
}

// Status returns the attribute key/value for a tool invocation's final
// status.
func Status(s string) attribute.KeyValue {
	return attribute.String("status", s)
}
