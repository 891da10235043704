// Command zobot is the main entry point for the zobot completion router
// and tool runtime server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/abhiramzobot/zobot-sub002/internal/app"
	"github.com/abhiramzobot/zobot-sub002/internal/config"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm/anthropic"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm/anyllm"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm/gemini"
	"github.com/abhiramzobot/zobot-sub002/pkg/provider/llm/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "zobot: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "zobot: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("zobot starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"primary", cfg.Router.Primary,
		"strategy", cfg.Router.Strategy,
	)

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the
// appropriate adapter from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterLLM("openai", func(_ context.Context, entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if entry.TimeoutMs > 0 {
			opts = append(opts, openai.WithTimeout(time.Duration(entry.TimeoutMs)*time.Millisecond))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterLLM("anthropic", func(_ context.Context, entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anthropic.Option
		if entry.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(entry.BaseURL))
		}
		if entry.TimeoutMs > 0 {
			opts = append(opts, anthropic.WithTimeout(time.Duration(entry.TimeoutMs)*time.Millisecond))
		}
		return anthropic.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterLLM("gemini", func(ctx context.Context, entry config.ProviderEntry) (llm.Provider, error) {
		var opts []gemini.Option
		if entry.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(entry.BaseURL))
		}
		if entry.TimeoutMs > 0 {
			opts = append(opts, gemini.WithTimeout(time.Duration(entry.TimeoutMs)*time.Millisecond))
		}
		return gemini.New(ctx, entry.APIKey, entry.Model, opts...)
	})

	// Local and self-hosted backends go through the universal adapter;
	// the kind carries the backend after a colon, e.g. "anyllm:ollama".
	for _, backend := range []string{"ollama", "llamacpp", "llamafile", "openai"} {
		kind := "anyllm:" + backend
		reg.RegisterLLM(kind, func(_ context.Context, entry config.ProviderEntry) (llm.Provider, error) {
			backendName := strings.TrimPrefix(entry.Kind, "anyllm:")
			var opts []anyllm.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllm.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllm.WithBaseURL(entry.BaseURL))
			}
			if entry.TimeoutMs > 0 {
				opts = append(opts, anyllm.WithTimeout(time.Duration(entry.TimeoutMs)*time.Millisecond))
			}
			return anyllm.New(backendName, entry.Model, opts...)
		})
	}
}

// ── Logger ────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
