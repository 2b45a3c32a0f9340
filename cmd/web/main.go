package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"ecommerce-dashboard/internal/config"
	"ecommerce-dashboard/internal/dataset"
	"ecommerce-dashboard/internal/middleware"
	"ecommerce-dashboard/internal/models"
	"ecommerce-dashboard/internal/normalize"
	"ecommerce-dashboard/internal/observability"
	"ecommerce-dashboard/internal/server"
	"ecommerce-dashboard/internal/services"
	"ecommerce-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	loadTimeout   = 60 * time.Second
)

func dashboardHandler(analytics *services.Analytics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		defaults := analytics.Defaults()
		page := templates.Page{TopN: defaults.TopN, ZeroFill: defaults.ZeroFill}
		if facets, err := analytics.Facets(); err == nil {
			page.Facets = facets
			page.Loaded = true
		}

		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := templates.Dashboard(page).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// newAnalytics wires the normalizer and session from configuration.
func newAnalytics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*services.Analytics, error) {
	normOpts := []normalize.Option{
		normalize.WithTimeColumn(models.Column(cfg.Dataset.TimeColumn)),
		normalize.WithDropInvalidTimestamps(cfg.Dataset.DropInvalidTimestamps),
	}
	if cfg.Dataset.CategoryTranslations != "" {
		translations, err := dataset.LoadCategoryTranslations(ctx, cfg.Dataset.CategoryTranslations)
		if err != nil {
			return nil, err
		}
		logger.Info("category translations loaded", "count", len(translations))
		normOpts = append(normOpts, normalize.WithCategoryTranslations(translations))
	}

	return services.NewAnalytics(
		services.WithLogger(logger),
		services.WithNormalizer(normalize.New(logger, normOpts...)),
		services.WithCacheSize(cfg.Dataset.CacheSize),
		services.WithLoadOptions(dataset.LoadOptions{Table: cfg.Dataset.Table, Sheet: cfg.Dataset.Table}),
		services.WithDefaults(services.Defaults{
			TopN:     cfg.Dashboard.DefaultTopN,
			ZeroFill: cfg.Dashboard.ZeroFill,
		}),
	), nil
}

func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) http.Handler {
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics),
	}

	srv := server.NewServer(analytics, logger, templateHandlers)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"dataset", cfg.Dataset.Path,
		"addr", cfg.Address(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	analytics, err := newAnalytics(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to configure analytics", "error", err)
		os.Exit(1)
	}

	start := time.Now()
	if err := analytics.LoadFromFile(ctx, cfg.Dataset.Path); err != nil {
		logger.Error("failed to load dataset", "error", err)
		os.Exit(1)
	}
	logger.Info("dataset loaded successfully", "duration", time.Since(start))

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("analytics", func(ctx context.Context) error {
		logger.Info("shutting down analytics service", "stats", analytics.Stats())
		return nil
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
