package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/mstgnz/gopos/handler"
	"github.com/mstgnz/gopos/infra/config"
	"github.com/mstgnz/gopos/infra/logger"
	"github.com/mstgnz/gopos/infra/middle"
	"github.com/mstgnz/gopos/infra/opensearch"
	"github.com/mstgnz/gopos/infra/response"
	"github.com/mstgnz/gopos/infra/storage"
	"github.com/mstgnz/gopos/infra/validate"
	"github.com/mstgnz/gopos/mapper"
	"github.com/mstgnz/gopos/router"
	v1 "github.com/mstgnz/gopos/router/v1"
)

const purgeInterval = 24 * time.Hour

var (
	PORT             string
	openSearchClient *opensearch.Client
	openSearchLogger *opensearch.Logger
	auditStore       *storage.SQLiteStore
)

func init() {
	// .env is optional, the environment wins
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Load Env Error: %v\n", err)
	}
	// init conf
	_ = config.App()
	validate.CustomValidate()

	cfg := config.GetAppConfig()
	PORT = cfg.Port

	if cfg.EnableLogging {
		client, err := opensearch.NewClient(cfg, mapper.Gateways()...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize OpenSearch client: %v\n", err)
		} else {
			openSearchClient = client
			openSearchLogger = opensearch.NewLogger(client)
		}
	}

	logger.InitGlobalLogger(openSearchLogger)

	if cfg.EnableSQLiteAudit {
		store, err := storage.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			logger.Error("Failed to open SQLite audit store, continuing without it", err, logger.LogContext{
				Fields: map[string]any{"path": cfg.SQLitePath},
			})
		} else {
			auditStore = store
		}
	}
}

func main() {
	cfg := config.GetAppConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Mapping service with every configured audit sink
	opts := []mapper.ServiceOption{mapper.WithLogger(logger.ForMapper())}
	if auditStore != nil {
		opts = append(opts, mapper.WithAuditSink(auditStore))
		go purgeAuditLog(ctx, auditStore, time.Duration(cfg.LogRetentionDays)*24*time.Hour)
	}
	if openSearchLogger != nil {
		opts = append(opts, mapper.WithAuditSink(openSearchLogger))
	}
	mappingService := mapper.NewService(opts...)

	deps := v1.Deps{
		Service:  mappingService,
		Validate: config.App().Validator,
	}
	// SQLite answers log listings when both sinks are on
	switch {
	case auditStore != nil:
		deps.Audit = auditStore
		deps.Stats = auditStore
	case openSearchLogger != nil:
		deps.Audit = openSearchLogger
	}
	if openSearchLogger != nil {
		deps.Search = openSearchLogger
	}

	services := map[string]handler.Pinger{}
	if auditStore != nil {
		services["sqlite_audit"] = auditStore
	}
	if openSearchClient != nil {
		services["opensearch_audit"] = openSearchClient
	}
	healthHandler := handler.NewHealthHandler(mappingService, services)

	// Chi Define Routes
	r := chi.NewRouter()

	// Basic Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middle.PanicRecoveryMiddleware())
	r.Use(middleware.Timeout(30 * time.Second))

	// Security Middleware
	rateLimiter := middle.NewRateLimiter(ctx, config.GetIntEnv("RATE_LIMIT_PER_MINUTE", 100), time.Minute)
	r.Use(middle.SecurityHeadersMiddleware())
	r.Use(middle.IPWhitelistMiddleware(splitList(config.GetEnv("IP_WHITELIST", ""))))
	r.Use(middle.RateLimitMiddleware(rateLimiter))
	r.Use(middle.RequestValidationMiddleware())

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitList(config.GetEnv("CORS_ALLOWED_ORIGINS", "*")),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           300, // Preflight cache time (second)
	}))

	// Health check endpoint (no auth required)
	r.Get("/health", healthHandler.CheckHealth)

	// API routes, guarded when API_KEY is set
	apiKey := config.GetEnv("API_KEY", "")
	if apiKey == "" {
		logger.Warn("API_KEY is not set, /v1 is open")
	}
	router.Routes(r, deps, apiKey)

	// Not Found
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, r, http.StatusNotFound, "Not Found", nil)
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", PORT),
		Handler:           r,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run your HTTP server in a goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", err)
		}
	}()

	logger.Info("API is running", logger.LogContext{Fields: map[string]any{
		"port":     PORT,
		"gateways": len(mappingService.Gateways()),
	}})

	// Block until a signal is received
	<-ctx.Done()

	logger.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", err)
	}

	if auditStore != nil {
		if err := auditStore.Close(); err != nil {
			logger.Error("Failed to close SQLite audit store", err)
		}
	}
}

// purgeAuditLog drops audit records older than retention, once at start and then daily
func purgeAuditLog(ctx context.Context, store *storage.SQLiteStore, retention time.Duration) {
	if retention <= 0 {
		return
	}

	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		removed, err := store.Purge(ctx, retention)
		if err != nil {
			logger.Error("Failed to purge audit log", err)
		} else if removed > 0 {
			logger.Info("Audit log purged", logger.LogContext{Fields: map[string]any{"removed": removed}})
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func splitList(value string) []string {
	var items []string
	for item := range strings.SplitSeq(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
