package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"prdbuilder/internal/auth"
	"prdbuilder/internal/config"
	"prdbuilder/internal/handler"
	"prdbuilder/internal/metrics"
	"prdbuilder/internal/middleware"
	"prdbuilder/internal/repository"
	"prdbuilder/internal/service/builder"
	"prdbuilder/internal/service/completion"
	prdservice "prdbuilder/internal/service/prd"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logger, logCloser, err := cfg.NewLogger(os.Stdout)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"storage", cfg.StorageBackend,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Authentication: JWKS when configured, otherwise a fixed development user
	var verifier auth.JWTVerifier
	if cfg.JWKSURL != "" {
		verifier, err = auth.NewJWTVerifier(ctx, cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer verifier.Close()
	} else {
		if cfg.Environment == "prod" {
			log.Fatal("JWKS_URL is required in prod")
		}
		logger.Warn("JWKS_URL not set, all requests run as the development user", "user_id", cfg.DevUserID)
	}

	storage, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer storage.Close()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	autoSaveMetrics := metrics.NewAutoSave(registry)

	// Services
	validator := completion.NewValidator(nil)
	prdService := prdservice.NewPRDService(storage.PRDs, logger)
	sessions := builder.NewManager(prdService, validator, cfg.SessionOptions(), logger, autoSaveMetrics)
	defer sessions.CloseAll()
	go sessions.RunEviction(ctx, time.Minute)

	logger.Info("services initialized",
		"autosave_debounce", cfg.AutoSaveDebounce,
		"autosave_enabled", cfg.AutoSaveEnabled,
		"highlight_duration", cfg.HighlightDuration,
		"session_idle_ttl", cfg.SessionIdleTTL,
	)

	handlers := &handler.Handlers{
		PRD:      handler.NewPRDHandler(prdService, sessions, logger),
		Session:  handler.NewSessionHandler(sessions, logger),
		Sections: handler.NewSectionsHandler(validator.Catalog()),
		Health:   handler.NewHealthHandler(sessions, cfg.StorageBackend),
	}

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handlers.Register(mux)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// Order: CORS → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.Auth(verifier, cfg.DevUserID, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
