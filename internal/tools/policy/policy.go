// Package policy decides whether a tool may be invoked for a given
// tenant and channel. The [Checker] is consulted fresh on every tool
// invocation — enablement can change between calls, so results must never
// be cached by the caller.
package policy

import "context"

// Query identifies one enablement decision. Tenant, Tool, and Channel key
// the decision; FlagKey is the tool's feature-flag key, empty when the
// tool is not flag-gated.
type Query struct {
	Tenant  string
	Tool    string
	Channel string
	FlagKey string
}

// Checker reports whether a tool invocation is currently enabled.
// Implementations must be safe for concurrent use.
type Checker interface {
	// Allowed returns true when the queried tool may run right now.
	// It must not panic and must not block beyond ctx.
	Allowed(ctx context.Context, q Query) bool
}

// Static is a config-driven [Checker]. It gates on feature flags and
// per-tenant deny lists. The zero value allows everything that carries no
// feature-flag key.
type Static struct {
	// Flags maps feature-flag keys to their state. A flag-gated tool
	// (non-empty Query.FlagKey) is enabled only when its flag is
	// explicitly true.
	Flags map[string]bool

	// TenantDeny maps tenant IDs to tool names that tenant may not use.
	TenantDeny map[string][]string
}

var _ Checker = (*Static)(nil)

// Allowed implements [Checker].
func (s *Static) Allowed(_ context.Context, q Query) bool {
	if q.FlagKey != "" && !s.Flags[q.FlagKey] {
		return false
	}
	for _, name := range s.TenantDeny[q.Tenant] {
		if name == q.Tool {
			return false
		}
	}
	return true
}

// AllowAll is a [Checker] that permits every invocation. Useful in tests
// and for deployments without tenant-level gating.
type AllowAll struct{}

// Allowed implements [Checker].
func (AllowAll) Allowed(context.Context, Query) bool { return true }
