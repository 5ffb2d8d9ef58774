// Command planmesh runs the plan execution service: an HTTP endpoint that
// advances one plan step per invocation against a remote browser instance.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/growforge/planmesh/browser"
	"github.com/growforge/planmesh/config"
	"github.com/growforge/planmesh/core"
	"github.com/growforge/planmesh/engine"
	"github.com/growforge/planmesh/executor"
	"github.com/growforge/planmesh/executor/anthropic"
	"github.com/growforge/planmesh/executor/openai"
	"github.com/growforge/planmesh/logging"
	"github.com/growforge/planmesh/notify"
	"github.com/growforge/planmesh/server"
	"github.com/growforge/planmesh/store/memory"
	"github.com/growforge/planmesh/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "planmesh:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.NewJSONLogger(os.Stdout, slogLevel(cfg.LogLevel))

	store, cleanup, err := buildStore(cfg.Store)
	if err != nil {
		return err
	}
	defer cleanup()

	model, err := buildModel(cfg.Executor)
	if err != nil {
		return err
	}
	exec := executor.NewLoop(model, func(o *executor.LoopOptions) {
		o.MaxIterations = cfg.Executor.MaxIterations
		o.Logger = logger
	})

	provider := browser.NewChromeProvider(func(o *browser.ChromeProviderOptions) {
		o.ActionTimeout = cfg.Browser.ActionTimeout.Std()
		o.ContentLimit = cfg.Browser.ContentLimit
	})

	var notifier notify.CompletionNotifier = notify.NoOpNotifier{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, func(o *notify.WebhookNotifierOptions) {
			o.Timeout = cfg.Notify.Timeout.Std()
			o.Logger = logger
		})
	}

	eng := engine.New(store, provider, exec, notifier, func(o *engine.Options) {
		o.Logger = logger
		o.HistoryLimit = cfg.Engine.HistoryLimit
		o.ProbeAttempts = cfg.Engine.ProbeAttempts
		o.ProbeBackoff = cfg.Engine.ProbeBackoff.Std()
		o.MaxIterations = cfg.Executor.MaxIterations
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(eng, func(o *server.Options) { o.Logger = logger }),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("planmesh.listening", "addr", cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func buildStore(cfg config.StoreConfig) (core.Store, func(), error) {
	switch cfg.Backend {
	case "memory":
		return memory.NewStore(), func() {}, nil
	case "sqlite":
		st, err := sqlite.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		return st, func() { st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func buildModel(cfg config.ExecutorConfig) (executor.Model, error) {
	apiKey := cfg.ResolveAPIKey()
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.APIKey = apiKey
		}), nil
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.APIKey = apiKey
		}), nil
	default:
		return nil, fmt.Errorf("unknown executor provider %q", cfg.Provider)
	}
}

func slogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
