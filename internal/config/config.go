// Package config provides the configuration schema, loader, and provider
// registry for the zobot completion router.
package config

// LogLevel controls log verbosity for the zobot server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for zobot. It is typically
// loaded from a YAML file using [Load] or [LoadFromReader] and is
// immutable for the process lifetime.
type Config struct {
	Server    ServerConfig             `yaml:"server"`
	Providers map[string]ProviderEntry `yaml:"providers"`
	Router    RouterConfig             `yaml:"router"`
	Tools     ToolsConfig              `yaml:"tools"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProviderEntry configures one completion backend. The map key in
// [Config.Providers] is the provider's identity as referenced by the
// router chain; Kind selects the registered factory and defaults to the
// identity when empty.
type ProviderEntry struct {
	// Kind selects the registered provider implementation ("openai",
	// "anthropic", "gemini", "anyllm:ollama", ...). Defaults to the
	// provider's map key.
	Kind string `yaml:"kind"`

	// APIKey authenticates against the provider. Values of the form
	// ${VAR} are expanded from the environment at load time.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o").
	Model string `yaml:"model"`

	// MaxTokens is the default completion budget applied to requests
	// that do not set their own.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the default sampling temperature applied to
	// requests that do not set their own.
	Temperature float64 `yaml:"temperature"`

	// TimeoutMs bounds each outbound call at the transport level.
	TimeoutMs int `yaml:"timeout_ms"`
}

// RouterConfig selects the failover chain and routing strategy.
type RouterConfig struct {
	// Primary is the provider identity tried first. Required.
	Primary string `yaml:"primary"`

	// Secondary and Tertiary extend the failover chain, in order.
	Secondary string `yaml:"secondary"`
	Tertiary  string `yaml:"tertiary"`

	// Strategy is one of "fixed", "intent", "split-test". Empty means
	// fixed.
	Strategy string `yaml:"strategy"`

	// SplitPercent is the share of conversations (0-100) that lead with
	// the primary under the split-test strategy.
	SplitPercent int `yaml:"split_percent"`

	// IntentOverrides maps intents to the provider tried first under the
	// intent strategy.
	IntentOverrides map[string]string `yaml:"intent_overrides"`

	// Breaker tunes the per-provider circuit breaker.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the per-provider circuit breaker. Zero values use
// the resilience package defaults (5 failures, 60s cool-down).
type BreakerConfig struct {
	MaxFailures     int `yaml:"max_failures"`
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

// ToolsConfig gates the tool runtime.
type ToolsConfig struct {
	// FeatureFlags maps feature-flag keys to their state. Flag-gated
	// tools run only when their flag is explicitly true.
	FeatureFlags map[string]bool `yaml:"feature_flags"`

	// TenantDeny maps tenant IDs to tool names that tenant may not use.
	TenantDeny map[string][]string `yaml:"tenant_deny"`
}
