// Package tools implements the tool execution runtime: a registry of
// schema-described action handlers and the pipeline that validates,
// authorises, rate-limits, and time-bounds every invocation.
//
// Tools are registered once at startup and are immutable afterwards. Every
// invocation goes through [Runtime.Execute], which never panics and never
// returns a Go error — all failure modes are folded into the uniform
// [Result] envelope.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Handler executes a tool with already-validated arguments. It must
// respect ctx cancellation; results produced after the deadline are
// discarded by the runtime. Returning an error marks the invocation
// failed without aborting the conversation.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Definition describes one registered tool. All fields are fixed at
// registration time.
type Definition struct {
	// Name uniquely identifies the tool within the registry.
	Name string

	// Version is an informational version string (e.g. "1.2.0").
	Version string

	// Description is the model-facing explanation of what the tool does.
	Description string

	// InputSchema is a JSON Schema object describing the tool's
	// arguments. It is compiled at registration; an invalid schema is a
	// registration error. Nil means any arguments are accepted.
	InputSchema map[string]any

	// OutputSchema optionally documents the shape of the handler's
	// return value. It is informational only and never enforced.
	OutputSchema map[string]any

	// AuthLevel names the minimum caller privilege ("user", "agent",
	// "admin"). Enforcement is delegated to the policy checker.
	AuthLevel string

	// RateLimitPerMinute caps invocations per conversation within a
	// fixed 60-second window. Zero means unlimited.
	RateLimitPerMinute int

	// AllowedChannels restricts the tool to the named channels. Empty
	// means all channels.
	AllowedChannels []string

	// FeatureFlagKey gates the tool behind a feature flag when
	// non-empty.
	FeatureFlagKey string

	// TimeoutMs bounds handler execution. Zero uses the runtime default.
	TimeoutMs int

	// Handler is the function invoked for each call.
	Handler Handler
}

// FunctionSpec is the model-facing advertisement of one tool: its name,
// description, and parameter schema, with the handler stripped.
type FunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// entry pairs a definition with its pre-compiled input schema.
type entry struct {
	def    Definition
	schema *jsonschema.Schema // nil when InputSchema is nil
}

// Registry holds the immutable set of registered tools keyed by name.
// Registration happens at startup; lookups are safe for concurrent use.
//
// The zero value is NOT usable; create instances with [NewRegistry].
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // names in registration order
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register stores def under its name. Registering an empty name, a nil
// handler, a name already in use, or an input schema that does not
// compile is an error — re-registration is rejected rather than
// overwriting, so wiring mistakes surface at startup.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tools: definition must have a non-empty name")
	}
	if def.Handler == nil {
		return fmt.Errorf("tools: tool %q must have a handler", def.Name)
	}

	var schema *jsonschema.Schema
	if def.InputSchema != nil {
		raw, err := json.Marshal(def.InputSchema)
		if err != nil {
			return fmt.Errorf("tools: encode input schema for %q: %w", def.Name, err)
		}
		schema, err = jsonschema.CompileString(def.Name+".schema.json", string(raw))
		if err != nil {
			return fmt.Errorf("tools: invalid input schema for %q: %w", def.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("tools: tool %q is already registered", def.Name)
	}
	r.entries[def.Name] = &entry{def: def, schema: schema}
	r.order = append(r.order, def.Name)
	return nil
}

// copySchema deep-copies a JSON-shaped schema map so callers can never
// mutate the registry's stored definition through a returned value.
// Nested maps and slices are copied; scalar leaves are shared.
func copySchema(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copySchemaValue(v)
	}
	return out
}

func copySchemaValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copySchema(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copySchemaValue(e)
		}
		return out
	case []string:
		// Hand-written schema literals use []string where JSON decoding
		// would produce []any.
		return slices.Clone(t)
	default:
		return v
	}
}

// copyDef returns def with its schema maps deep-copied.
func copyDef(def Definition) Definition {
	def.InputSchema = copySchema(def.InputSchema)
	def.OutputSchema = copySchema(def.OutputSchema)
	return def
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[name]
	return ok
}

// Get returns the definition registered under name. The returned
// definition's schema maps are copies; mutating them does not affect the
// registry.
func (r *Registry) Get(name string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Definition{}, false
	}
	return copyDef(e.def), true
}

// All returns every registered definition in registration order. Schema
// maps are copied, as with [Registry.Get].
func (r *Registry) All() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, copyDef(r.entries[name].def))
	}
	return defs
}

// FunctionSpecs returns model-facing specs for every registered tool, in
// registration order, without leaking handlers or limits. Parameters maps
// are copies; mutating them does not affect the registry.
func (r *Registry) FunctionSpecs() []FunctionSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]FunctionSpec, 0, len(r.order))
	for _, name := range r.order {
		def := r.entries[name].def
		params := copySchema(def.InputSchema)
		if params == nil {
			params = map[string]any{"type": "object"}
		}
		specs = append(specs, FunctionSpec{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  params,
		})
	}
	return specs
}

// lookup returns the internal entry for name, for use by the runtime.
func (r *Registry) lookup(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}
