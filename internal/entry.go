// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/foodly/internal/api"
	"github.com/starford/foodly/internal/browser"
	"github.com/starford/foodly/internal/events"
	"github.com/starford/foodly/internal/mockapi"
	"github.com/starford/foodly/internal/storage"
)

// App is an opened client: a token store, an API client and the browser
// facade over them.
type App struct {
	Config  *Config
	Logger  *slog.Logger
	Broker  *events.Broker
	Browser *browser.Browser

	tokens storage.TokenStore
}

func build(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// newLogger builds the structured JSON logger. Stdout belongs to command output.
func (a *application) newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// Open wires the client and restores the persisted session. A failed initial
// load is logged; commands report their own errors.
func Open(ctx context.Context, opts ...Option) (*App, error) {
	app, err := build(opts)
	if err != nil {
		return nil, err
	}
	cfg := app.config

	logger := app.newLogger()
	slog.SetDefault(logger)

	tokenPath := cfg.Session.TokenPath()
	logger.Debug("Configuration loaded",
		slog.String("base_url", cfg.API.BaseURL),
		slog.String("session_store", cfg.Session.Store),
		slog.String("session_path", tokenPath),
		slog.String("log_level", cfg.App.LogLevel.String()))

	if err := os.MkdirAll(filepath.Dir(tokenPath), 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	tokens, err := storage.Open(cfg.Session.Store, tokenPath)
	if err != nil {
		return nil, fmt.Errorf("init token store: %w", err)
	}

	client := api.NewClient(api.Options{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.API.Timeout,
		RatePerSecond: cfg.API.RatePerSecond,
		Burst:         cfg.API.Burst,
		HTTPClient:    app.httpClient,
		Logger:        logger,
	})

	broker := events.NewBroker()
	b := browser.New(client, tokens, cfg.Cache.Catalog(),
		browser.WithLogger(logger),
		browser.WithBroker(broker))

	if err := b.Start(ctx); err != nil {
		logger.Warn("initial load failed", slog.String("error", err.Error()))
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Broker:  broker,
		Browser: b,
		tokens:  tokens,
	}, nil
}

// TokenFile returns the token file path when the session lives in a plain
// file, the only store other processes are expected to rewrite.
func (a *App) TokenFile() (string, bool) {
	if a.Config.Session.Store != storage.KindFile {
		return "", false
	}
	return a.Config.Session.TokenPath(), true
}

// Close releases the broker and the token store.
func (a *App) Close() error {
	a.Broker.Close()
	return a.tokens.Close()
}

// ServeMockAPI runs the bundled development backend until ctx is cancelled
// or a shutdown signal arrives.
func ServeMockAPI(ctx context.Context, opts ...Option) error {
	app, err := build(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	logger := app.newLogger()
	slog.SetDefault(logger)

	var mockOpts []mockapi.Option
	mockOpts = append(mockOpts, mockapi.WithLogger(logger))
	if cfg.MockAPI.Secret != "" {
		mockOpts = append(mockOpts, mockapi.WithSecret(cfg.MockAPI.Secret))
	}
	backend := mockapi.New(mockOpts...)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Mount("/", backend.Handler())

	httpServer := &http.Server{
		Addr:              cfg.MockAPI.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting mock backend", slog.String("address", cfg.MockAPI.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Mock backend error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Mock backend stopped")
	return nil
}
