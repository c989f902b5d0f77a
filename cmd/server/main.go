package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cotlab/cot-analytics/internal/config"
	"github.com/cotlab/cot-analytics/internal/dashboard"
	"github.com/cotlab/cot-analytics/internal/market"
	"github.com/cotlab/cot-analytics/internal/metrics"
	"github.com/cotlab/cot-analytics/internal/store"
)

var (
	configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")
	envFile    = flag.String("env", ".env", "Path to .env file")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "err", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger()
	slog.SetDefault(logger)

	// --- Market data ---
	// A load failure is shown on every page instead of aborting startup.
	catalog, loadErr := market.Load(cfg.Data.Path)
	if loadErr != nil {
		slog.Error("market data unavailable", "path", cfg.Data.Path, "err", loadErr)
	} else {
		metrics.MarketsLoaded.Set(float64(catalog.Len()))
		slog.Info("market data loaded", "path", cfg.Data.Path, "markets", catalog.Len())
	}

	// --- Feedback store ---
	var cleanup []func()
	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	st, err := openFeedbackStore(cfg.Feedback, &cleanup)
	if err != nil {
		slog.Error("feedback store initialization failed", "backend", cfg.Feedback.Backend, "err", err)
		for _, fn := range cleanup {
			fn()
		}
		os.Exit(1)
	}

	svc := dashboard.NewService(catalog, loadErr, st, cfg.Feedback.Timeout)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"cot-analytics"}`))
	})
	r.Get("/ready", svc.Ready)

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket sessions outlive any request timeout.
		r.Get("/ws", svc.HandleWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.Server.RequestTimeout))

			r.Get("/markets", svc.ListMarkets)
			r.Get("/dashboard", svc.GetDashboard)
			r.Post("/feedback", svc.SubmitFeedback)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("cot-analytics listening", "port", cfg.Server.Port, "feedback_backend", cfg.Feedback.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down cot-analytics...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("cot-analytics stopped")
}

// openFeedbackStore connects the configured backend and fails fast when it
// cannot be reached or authenticated. Remote backends sit behind a circuit
// breaker.
func openFeedbackStore(cfg config.FeedbackConfig, cleanup *[]func()) (store.FeedbackStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	var st store.FeedbackStore
	switch cfg.Backend {
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		*cleanup = append(*cleanup, pool.Close)

		pg := store.NewPostgresStore(pool)
		if err := pg.Ping(ctx); err != nil {
			return nil, fmt.Errorf("database ping failed: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		slog.Info("connected to PostgreSQL")
		st = pg

	case "redis":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		rdb := redis.NewClient(opt)
		*cleanup = append(*cleanup, func() { rdb.Close() })

		ss := store.NewStreamStore(rdb, cfg.Stream)
		if err := ss.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		slog.Info("connected to Redis", "stream", cfg.Stream)
		st = ss

	default:
		slog.Warn("feedback backend is memory, submissions will not persist")
		return store.NewMemoryStore(), nil
	}

	return store.NewBreakerStore(st, "feedback-"+cfg.Backend, cfg.BreakerFailures, cfg.BreakerTimeout), nil
}
