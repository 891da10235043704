package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/abhiramzobot/zobot-sub002/internal/router"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references
// in API keys from the environment, and validates the result. Useful in
// tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	for name, entry := range cfg.Providers {
		entry.APIKey = os.ExpandEnv(entry.APIKey)
		if entry.Kind == "" {
			entry.Kind = name
		}
		cfg.Providers[name] = entry
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns
// a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Router.Primary == "" {
		errs = append(errs, fmt.Errorf("router.primary is required"))
	} else if _, ok := cfg.Providers[cfg.Router.Primary]; !ok {
		errs = append(errs, fmt.Errorf("router.primary %q is not declared under providers", cfg.Router.Primary))
	}
	for field, name := range map[string]string{
		"router.secondary": cfg.Router.Secondary,
		"router.tertiary":  cfg.Router.Tertiary,
	} {
		if name == "" {
			continue
		}
		if _, ok := cfg.Providers[name]; !ok {
			errs = append(errs, fmt.Errorf("%s %q is not declared under providers", field, name))
		}
	}

	if _, err := router.ParseStrategy(cfg.Router.Strategy); err != nil {
		errs = append(errs, err)
	}
	if cfg.Router.SplitPercent < 0 || cfg.Router.SplitPercent > 100 {
		errs = append(errs, fmt.Errorf("router.split_percent %d is out of range [0, 100]", cfg.Router.SplitPercent))
	}
	for intent, name := range cfg.Router.IntentOverrides {
		if _, ok := cfg.Providers[name]; !ok {
			errs = append(errs, fmt.Errorf("router.intent_overrides[%q] names undeclared provider %q", intent, name))
		}
	}

	if cfg.Router.Breaker.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("router.breaker.max_failures must not be negative"))
	}
	if cfg.Router.Breaker.CooldownSeconds < 0 {
		errs = append(errs, fmt.Errorf("router.breaker.cooldown_seconds must not be negative"))
	}

	for name, entry := range cfg.Providers {
		if entry.Model == "" {
			errs = append(errs, fmt.Errorf("providers.%s.model is required", name))
		}
		if entry.TimeoutMs < 0 {
			errs = append(errs, fmt.Errorf("providers.%s.timeout_ms must not be negative", name))
		}
	}

	return errors.Join(errs...)
}
