package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Zaxis018/cbs-match-bot/internal/config"
	"github.com/Zaxis018/cbs-match-bot/internal/domain/entity"
	logpkg "github.com/Zaxis018/cbs-match-bot/internal/logger"
	"github.com/Zaxis018/cbs-match-bot/internal/metrics"
	"github.com/Zaxis018/cbs-match-bot/internal/repository/refstore"
	refredis "github.com/Zaxis018/cbs-match-bot/internal/repository/refstore/redis"
	"github.com/Zaxis018/cbs-match-bot/internal/repository/weightsrc"
	chiTransport "github.com/Zaxis018/cbs-match-bot/internal/transport/chi"
	"github.com/Zaxis018/cbs-match-bot/internal/transport/xtract"
	healthuc "github.com/Zaxis018/cbs-match-bot/internal/usecase/health"
	matchuc "github.com/Zaxis018/cbs-match-bot/internal/usecase/match"
	ticketuc "github.com/Zaxis018/cbs-match-bot/internal/usecase/ticket"
	"github.com/Zaxis018/cbs-match-bot/internal/version"
	"github.com/Zaxis018/cbs-match-bot/internal/weighttable"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting matchbot",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("reference_source", cfg.Reference.Source),
	)

	ctx := context.Background()

	// Register matching metrics explicitly (no init())
	metrics.RegisterMatchMetrics()

	// Shared reference store — only when the config asks for it.
	var store *refredis.Store
	if cfg.Reference.Source == "redis" || cfg.Reference.SyncToRedis {
		store, err = refredis.NewStore(refredis.Config{
			Addrs:     cfg.Redis.Addrs,
			Username:  cfg.Redis.Username,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			logger.Fatal("Failed to create redis store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Redis not ready", zap.Error(err))
		}
		logger.Info("Connected to redis")
	}

	// Reference datasets
	catalog := refstore.NewCatalog()
	if cfg.Reference.Source == "redis" {
		ds, err := store.Load(ctx)
		if err != nil {
			logger.Fatal("Failed to load reference data from redis", zap.Error(err))
		}
		// The shared store carries one dataset; it serves the individual
		// extract, which is the one ticket volume comes from.
		catalog.Put(entity.Individual, ds)
		if synced, err := store.SyncedAt(ctx); err == nil && !synced.IsZero() {
			logger.Info("Reference data loaded from redis",
				zap.Int("rows", ds.Len()), zap.Time("synced_at", synced))
		}
	} else {
		loader := refstore.NewFileLoader(logger)
		paths := map[entity.Type]string{
			entity.Individual:  cfg.Reference.IndividualPath,
			entity.Institution: cfg.Reference.InstitutionPath,
			entity.Account:     cfg.Reference.AccountPath,
		}
		for et, path := range paths {
			if path == "" {
				continue
			}
			ds, err := loader.Load(path)
			if err != nil {
				logger.Fatal("Failed to load reference extract",
					zap.String("entity_type", string(et)), zap.Error(err))
			}
			catalog.Put(et, ds)
		}
		if cfg.Reference.SyncToRedis {
			if ds := catalog.Dataset(entity.Individual); ds != nil {
				if err := store.Store(ctx, ds); err != nil {
					logger.Error("Failed to sync reference data to redis", zap.Error(err))
				} else {
					logger.Info("Reference data synced to redis", zap.Int("rows", ds.Len()))
				}
			}
		}
	}

	// Weight table
	table := weighttable.Empty()
	if cfg.Weights.Path != "" {
		rows, err := weightsrc.NewCSV(cfg.Weights.Path, logger).Load()
		if err != nil {
			// The engine falls back to equal weights; a broken weight file
			// degrades ranking, it does not stop the service.
			logger.Error("Failed to load weight table", zap.Error(err))
		} else {
			table = weighttable.New(rows, logger)
		}
	}
	logger.Info("Weight table ready", zap.Int("rows", table.Len()), zap.Bool("loaded", table.Loaded()))

	// Matching engine
	engine := matchuc.New(table, catalog, cfg.Matching.Threshold, logger)

	// Health service
	var pinger healthuc.StorePinger
	if store != nil {
		pinger = store
	}
	healthSvc := healthuc.New(pinger, catalog)

	// Optional ticket runner
	if cfg.Xtract.BaseURL != "" {
		client, err := xtract.New(xtract.Config{
			BaseURL:  cfg.Xtract.BaseURL,
			Email:    cfg.Xtract.Email,
			Password: cfg.Xtract.Password,
			Timeout:  time.Duration(cfg.Xtract.TimeoutSec) * time.Second,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to create ticket api client", zap.Error(err))
		}
		runner := ticketuc.New(client, engine, cfg.Matching.Threshold, logger)
		go runTicketLoop(ctx, runner, cfg.Xtract, logger)
	}

	// HTTP server
	server := chiTransport.NewServer(engine, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// runTicketLoop processes pending tickets on a fixed interval. The first
// batch runs immediately on startup.
func runTicketLoop(ctx context.Context, runner *ticketuc.Service, cfg config.XtractConfig, logger *zap.Logger) {
	interval := time.Duration(cfg.PollIntervalHr) * time.Hour
	window := time.Duration(cfg.WindowDays) * 24 * time.Hour

	run := func() {
		to := time.Now()
		from := to.Add(-window)
		if _, err := runner.Run(ctx, from, to); err != nil {
			logger.Error("Ticket batch failed", zap.Error(err))
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
