package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/tenantplane/internal/cache"
	"github.com/yourorg/tenantplane/internal/handler"
	"github.com/yourorg/tenantplane/internal/infrastructure/logger"
	"github.com/yourorg/tenantplane/internal/observability/metrics"
	"github.com/yourorg/tenantplane/internal/observability/tracing"
	"github.com/yourorg/tenantplane/internal/provisioner"
	"github.com/yourorg/tenantplane/internal/repository"
	"github.com/yourorg/tenantplane/internal/schema"
	"github.com/yourorg/tenantplane/internal/security/audit"
	"github.com/yourorg/tenantplane/internal/security/auth"
	"github.com/yourorg/tenantplane/internal/security/middleware"
	"github.com/yourorg/tenantplane/internal/security/ratelimit"
	"github.com/yourorg/tenantplane/internal/seeder"
	"github.com/yourorg/tenantplane/internal/service"
	"github.com/yourorg/tenantplane/internal/worker"
	"github.com/yourorg/tenantplane/pkg/config"
	"github.com/yourorg/tenantplane/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting tenantplane server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Tracing (no-op unless an OTLP endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "tenantplane", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	// 4. Control-plane store
	controlCfg := &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.ControlDatabase,
		SSLMode:  cfg.SSLMode,
	}
	pool, err := database.NewConnectionPool(ctx, controlCfg, log)
	if err != nil {
		log.Error("failed to connect to control-plane store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.EnsureControlPlaneSchema(ctx, pool.GetDB()); err != nil {
		log.Error("failed to ensure control-plane schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Engine maintenance connection for CREATE DATABASE
	serverConn, err := database.OpenServerConnection(ctx, controlCfg, log)
	if err != nil {
		log.Error("failed to reach database engine", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer serverConn.Close()

	// 6. Resolution cache: redis when configured, in-process otherwise
	var resolutionCache cache.ResolutionCache
	var redisCache *cache.Redis
	if cfg.RedisURL != "" {
		redisCache, err = cache.NewRedis(cfg.RedisURL, log)
		if err != nil {
			log.Error("failed to connect to redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisCache.Close()
		resolutionCache = redisCache
		log.Info("resolution cache backed by redis")
	} else {
		resolutionCache = cache.NewMemory()
		log.Info("resolution cache in-process only")
	}

	// 7. Repositories and provisioning pipeline
	tenantRepo := repository.NewPostgresTenantRepository(pool.GetDB(), log)
	identityRepo := repository.NewPostgresIdentityRepository(pool.GetDB(), log)
	pgProvisioner := provisioner.NewPostgres(serverConn, log)
	applier := schema.NewApplier(log)
	adminSeeder := seeder.New(log)
	connector := database.NewTenantConnector(cfg.SSLMode, log)

	auditLogger := audit.NewLogger(log)

	// 8. Services
	provisionService := service.NewProvisionService(
		tenantRepo, identityRepo, pgProvisioner, applier, adminSeeder, connector,
		resolutionCache, auditLogger, log, cfg,
	)
	resolveService := service.NewResolveService(tenantRepo, resolutionCache, log, cfg)

	// 9. Security components
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "tenantplane")
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)

	// 10. Routes
	mux := http.NewServeMux()
	mux.Handle("POST /api/tenants", handler.NewCreateTenantHandler(provisionService, log))
	mux.Handle("GET /api/tenants", handler.NewListTenantsHandler(provisionService, log))
	mux.Handle("GET /api/tenants/{id}", handler.NewGetTenantHandler(provisionService, log))
	mux.Handle("PUT /api/tenants/{id}/status", handler.NewStatusHandler(provisionService, log))
	mux.Handle("DELETE /api/tenants/{id}", handler.NewDeleteHandler(provisionService, log))
	mux.Handle("POST /api/tenants/{id}/schema/reapply", handler.NewReapplySchemaHandler(provisionService, log))
	mux.Handle("POST /api/tenants/{id}/admin/reseed", handler.NewReseedAdminHandler(provisionService, log))
	mux.Handle("POST /api/recovery/reseed-stuck", handler.NewReseedStuckHandler(provisionService, log))
	mux.Handle("POST /api/identities", handler.NewIdentityHandler(provisionService, log))
	mux.Handle("GET /api/resolve/company/{name}", handler.NewResolveCompanyHandler(resolveService, log))
	mux.Handle("GET /api/resolve/email/{email}", handler.NewResolveEmailHandler(resolveService, log))
	mux.Handle("GET /api/resolve/id/{id}", handler.NewResolveIDHandler(resolveService, log))
	mux.Handle("/metrics", promhttp.Handler())

	mux.Handle("GET /healthz", handler.HealthzHandler{})
	readyz := handler.NewReadyzHandler()
	readyz.Register("postgres", handler.PingerFunc(pool.Health))
	if redisCache != nil {
		readyz.Register("redis", redisCache)
	}
	mux.Handle("GET /readyz", readyz)

	// CORS middleware honoring configured origins
	handlerWithCORS := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(cfg.CORSAllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(cfg.CORSAllowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", cfg.CORSAllowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		mux.ServeHTTP(w, r)
	})

	// Chain middleware: request ID -> metrics -> JWT -> rate limit -> audit -> CORS -> mux
	auditMW := middleware.AuditMiddleware(auditLogger)
	rateMW := middleware.RateLimitMiddleware(rateLimiter, log)
	jwtMW := middleware.JWTMiddleware(tokenManager, auditLogger, log)

	rootHandler := withRequestID(
		metrics.HTTPMetricsMiddleware(
			jwtMW(rateMW(auditMW(handlerWithCORS))),
		),
		log,
	)
	rootHandler = otelhttp.NewHandler(rootHandler, "tenantplane.http")

	// 11. Background stale-attempt monitor
	monitor := worker.NewStaleAttemptMonitor(
		tenantRepo,
		log,
		time.Duration(cfg.MonitorIntervalMinutes)*time.Minute,
		time.Duration(cfg.StaleAttemptMinutes)*time.Minute,
	)
	go monitor.Start(ctx)

	// 12. HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "jwt"),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel()
	rateLimiter.Stop()
	log.Info("server stopped")
}

// withRequestID attaches a request ID to the context and response headers
// for traceability. The same ID is what audit records pick up.
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := generateRequestID()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), audit.RequestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration_ms", time.Since(start)),
		)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

func generateRequestID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err == nil {
		return hex.EncodeToString(buf)
	}
	return fmt.Sprintf("req-%d", time.Now().UnixNano())
}
