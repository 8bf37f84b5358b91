// Parlo - Language Practice Session Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/parlohq/parlo-server/internal/api"
	"github.com/parlohq/parlo-server/internal/auth"
	"github.com/parlohq/parlo-server/internal/config"
	"github.com/parlohq/parlo-server/internal/countdown"
	"github.com/parlohq/parlo-server/internal/identity"
	"github.com/parlohq/parlo-server/internal/middleware"
	"github.com/parlohq/parlo-server/internal/session"
	"github.com/parlohq/parlo-server/internal/storage"
	"github.com/parlohq/parlo-server/internal/subscription"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "backend", cfg.StorageBackend, "dev", cfg.IsDevelopment())

	store, err := newStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("Failed to close storage", "error", closeErr)
		}
	}()

	if err := store.Ping(context.Background()); err != nil {
		slog.Error("Storage health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Storage connected")

	// Initialize services.
	sessions := session.NewService(store)
	subs := subscription.NewClient(cfg.SubscriptionAPIURL)
	sm := countdown.NewSessionManager()

	var verifier auth.Verifier
	if cfg.AuthJWTSecret != "" {
		verifier = auth.NewJWTVerifier(cfg.AuthJWTSecret, cfg.AuthJWTIssuer)
		slog.Info("Session token verification enabled", "issuer", cfg.AuthJWTIssuer)
	} else {
		slog.Info("AUTH_JWT_SECRET not set, all requests treated as guests")
	}

	// Initialize handlers.
	baseHandler := api.NewHandler(store, sessions, subs, cfg.FrontendURL)
	activityHandler := api.NewActivityHandler(baseHandler)
	navigationHandler := api.NewNavigationHandler(baseHandler)
	subscriptionHandler := api.NewSubscriptionHandler(baseHandler)
	healthHandler := api.NewHealthHandler(store)
	wsHandler := countdown.NewWebSocketHandler(sessions, sm, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(identity.Middleware(cfg.IsDevelopment()))
	r.Use(auth.Middleware(verifier))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// All routes use identity middleware.
	activityHandler.RegisterRoutes(r)
	navigationHandler.RegisterRoutes(r)
	subscriptionHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/countdown", wsHandler.ServeHTTP)

	// Create server.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // countdown sockets stay open for the activity budget
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start storage janitor.
	storage.StartJanitor(ctx, store, cfg.JanitorInterval, cfg.ActivityRetention)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}

// newStore builds the configured storage backend.
func newStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendSQLite:
		return storage.NewSQLite(cfg.DBPath)
	case config.BackendRedis:
		return storage.NewRedis(storage.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			EntryTTL: cfg.ActivityRetention,
		})
	default:
		return storage.NewMemoryStore(), nil
	}
}
