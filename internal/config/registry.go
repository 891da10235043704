package config

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
)

// ErrProviderNotRegistered is returned by [Registry.CreateLLM] when no
// factory has been registered under the requested kind.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory constructs an LLM provider from its configuration entry. The
// context is used only during construction (e.g. for client handshakes)
// and must not be retained beyond it.
type Factory func(ctx context.Context, entry ProviderEntry) (llm.Provider, error)

// Registry maps provider kinds to their constructor functions. It is
// safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	llm map[string]Factory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{llm: make(map[string]Factory)}
}

// RegisterLLM registers an LLM provider factory under kind. Subsequent
// calls with the same kind overwrite the previous registration.
func (r *Registry) RegisterLLM(kind string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[kind] = factory
}

// CreateLLM instantiates an LLM provider using the factory registered
// under entry.Kind. Returns [ErrProviderNotRegistered] if no factory has
// been registered for that kind.
func (r *Registry) CreateLLM(ctx context.Context, entry ProviderEntry) (llm.Provider, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrProviderNotRegistered, entry.Kind)
	}
	return factory(ctx, entry)
}
