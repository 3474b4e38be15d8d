package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nearby-offers/internal/cache"
	"nearby-offers/internal/config"
	"nearby-offers/internal/database"
	"nearby-offers/internal/events"
	"nearby-offers/internal/features"
	"nearby-offers/internal/handler"
	"nearby-offers/internal/logging"
	"nearby-offers/internal/middleware"
	"nearby-offers/internal/models"
	"nearby-offers/internal/service"
	"nearby-offers/internal/tracing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	configFile := flag.String("config", os.Getenv("CONFIG_FILE"), "JSON or YAML config file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := tracing.InitTracing(cfg.Tracing); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			slog.Warn("tracing shutdown failed", "error", err)
		}
	}()

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	resultCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer resultCache.Close()

	flags := features.NewDefaultManager(cfg.Cache.Enabled, true)
	eventManager := events.NewManager(true)
	defer eventManager.Shutdown()
	subscribeLogging(eventManager)

	svc := service.NewService(db, service.Options{
		Cache:    resultCache,
		CacheTTL: cfg.Cache.CacheTTL(),
		Events:   eventManager,
		Features: flags,
	})
	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
	})

	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)

	if cfg.RateLimit.Enabled {
		rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer rateLimiter.Stop()
		r.Use(middleware.RateLimitMiddleware(rateLimiter))
	}

	r.Use(middleware.TracingMiddleware(cfg.Tracing.ServiceName))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   strings.Split(cfg.Security.AllowedOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h.Routes(r)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("error closing server", "error", err)
		}
	}()

	protocol := "HTTP"
	if cfg.Server.EnableTLS {
		protocol = "HTTPS"
	}
	slog.Info("starting server",
		"protocol", protocol,
		"addr", server.Addr,
		"database", cfg.Database.Path,
		"redis", cfg.Cache.RedisAddr != "",
		"rate_limit", cfg.RateLimit.Rate,
		"rate_window_seconds", cfg.RateLimit.Window)

	if cfg.Server.EnableTLS {
		err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// subscribeLogging logs every stored catalog and completed selection.
func subscribeLogging(m *events.Manager) {
	m.Subscribe(events.EventCatalogStored, func(ctx context.Context, e events.Event) error {
		data := e.Data.(events.CatalogStoredData)
		slog.InfoContext(ctx, "catalog stored",
			"catalog_id", data.Catalog.ID,
			"offers", data.Catalog.OfferCount)
		return nil
	})
	m.Subscribe(events.EventSelectionCompleted, func(ctx context.Context, e events.Event) error {
		data := e.Data.(events.SelectionCompletedData)
		slog.InfoContext(ctx, "selection completed",
			"run_id", data.RunID,
			"catalog_id", data.CatalogID,
			"checkin", data.Checkin.Format(models.DateLayout),
			"selected", len(data.Offers),
			"cache_hit", data.CacheHit)
		return nil
	})
}
