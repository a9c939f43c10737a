// Tutorly - homework tutoring server
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

	"github.com/ashureev/tutorly/internal/agent"
	"github.com/ashureev/tutorly/internal/api"
	"github.com/ashureev/tutorly/internal/config"
	"github.com/ashureev/tutorly/internal/gemini"
	"github.com/ashureev/tutorly/internal/metrics"
	"github.com/ashureev/tutorly/internal/middleware"
	"github.com/ashureev/tutorly/internal/store"
	"github.com/ashureev/tutorly/internal/tutor"
	"github.com/ashureev/tutorly/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
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

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "ai_enabled", cfg.AIEnabled())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	m := metrics.New()

	// Tutoring core.
	fallbacks, err := tutor.NewFallbackStore(nil)
	if err != nil {
		slog.Error("Failed to load fallback responses", "error", err)
		os.Exit(1)
	}
	client := gemini.NewClient(cfg.Gemini.APIKey,
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithTimeout(cfg.Gemini.Timeout),
		gemini.WithObserver(m),
		gemini.WithLogger(logger),
	)
	if client.Enabled() {
		slog.Info("Gemini client configured", "model", client.Model())
	} else {
		slog.Info("GEMINI_API_KEY not set, tutor will answer from fallback responses")
	}
	tutorCore := tutor.New(tutor.NewPromptBuilder(""), client, fallbacks,
		tutor.WithObserver(m),
		tutor.WithLogger(logger),
	)

	conversationLogger, err := agent.NewObservedConversationLogger(cfg.ConversationLog, logger, m)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}

	broker := agent.NewBroker(logger)
	service := agent.NewService(tutorCore, repo,
		agent.WithConversationLogger(conversationLogger),
		agent.WithPublisher(broker),
		agent.WithServiceLogger(logger),
	)
	agentHandler := agent.NewHandler(service, broker, cfg, m)
	agentHandler.SetLogger(logger)
	defer agentHandler.Close()

	apiHandler := api.NewHandler(repo, cfg)

	// Setup router.
	r := chi.NewRouter()

	allowedOrigins := []string{"*"}
	if cfg.FrontendURL != "" {
		allowedOrigins = []string{cfg.FrontendURL}
	}

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(allowedOrigins))

	r.Handle("/metrics", m.Handler())

	apiHandler.RegisterRoutes(r)
	agentHandler.RegisterRoutes(r)

	// Serve embedded frontend (SPA catch-all).
	r.Handle("/*", web.SPAHandler())

	// SSE streams stay open, so there is no WriteTimeout.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      0,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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
