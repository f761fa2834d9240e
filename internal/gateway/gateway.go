// ABOUTME: Gateway orchestrator wiring config, store, dedupe, webhook, and admin API
// ABOUTME: Manages the HTTP server lifecycle and graceful shutdown

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/textline/internal/admin"
	"github.com/2389/textline/internal/config"
	"github.com/2389/textline/internal/dedupe"
	"github.com/2389/textline/internal/session"
	"github.com/2389/textline/internal/twilio"
	"github.com/2389/textline/internal/webhook"
)

// shutdownTimeout bounds how long in-flight webhook turns get to finish.
const shutdownTimeout = 10 * time.Second

// Gateway orchestrates the textline-gateway server components.
type Gateway struct {
	config     *config.Config
	store      *session.SQLiteStore
	cache      *dedupe.Cache
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a gateway from configuration: session store, dedupe cache,
// outbound client, webhook handler, and (if a secret is configured) the
// admin API, all behind one HTTP server.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := session.NewSQLiteStore(cfg.Database.Path, cfg.Sessions.Expiry)
	if err != nil {
		return nil, fmt.Errorf("initializing session store: %w", err)
	}

	cache := dedupe.New(cfg.Dedupe.TTL, cfg.Dedupe.MaxSize)

	client := twilio.NewClient(
		cfg.Gateway.AccountSID,
		cfg.Gateway.AuthToken,
		cfg.Gateway.FromNumber,
		cfg.Gateway.APIBaseURL,
	)

	dispatcher := webhook.NewDispatcher(client)
	handler := webhook.NewHandler(
		[]byte(cfg.Gateway.AuthToken),
		cache,
		store,
		dispatcher,
		cfg.Server.TurnTimeout,
	)

	mux := http.NewServeMux()
	mux.Handle(cfg.Server.WebhookPath, handler)
	mux.HandleFunc("/health", handleHealth)

	if cfg.Admin.JWTSecret != "" {
		verifier, err := admin.NewJWTVerifier([]byte(cfg.Admin.JWTSecret))
		if err != nil {
			store.Close()
			cache.Close()
			return nil, fmt.Errorf("creating admin verifier: %w", err)
		}
		admin.NewAPI(verifier, store, client).Register(mux)
		logger.Info("admin API enabled")
	} else {
		logger.Warn("admin.jwt_secret not set, admin API disabled")
	}

	return &Gateway{
		config: cfg,
		store:  store,
		cache:  cache,
		httpServer: &http.Server{
			Addr:              cfg.Server.HTTPAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger.With("component", "gateway"),
	}, nil
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (g *Gateway) Run(ctx context.Context) error {
	g.store.StartSweeper(ctx, g.config.Sessions.SweepInterval)

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("HTTP server listening",
			"addr", g.config.Server.HTTPAddr,
			"webhook_path", g.config.Server.WebhookPath)
		if err := g.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		g.close()
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	g.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := g.httpServer.Shutdown(shutdownCtx); err != nil {
		g.logger.Error("http shutdown failed", "error", err)
	}

	g.close()
	return nil
}

// Handler exposes the assembled mux, mainly for tests.
func (g *Gateway) Handler() http.Handler {
	return g.httpServer.Handler
}

func (g *Gateway) close() {
	g.cache.Close()
	if err := g.store.Close(); err != nil {
		g.logger.Error("closing session store failed", "error", err)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
