package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"ecommerce-dashboard/internal/errors"
	"ecommerce-dashboard/internal/filter"
	"ecommerce-dashboard/internal/services"
)

const cacheControl = "private, max-age=60"

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// query runs fn with the request's filters and writes its result or error.
func (h *APIHandlers) query(w http.ResponseWriter, r *http.Request, fn func(filter.Filters, services.TrendQuery) (any, error)) {
	f, q, err := parseQuery(r.URL.Query(), h.analytics.Defaults())
	if err != nil {
		errors.WriteError(w, h.logger, appError(err), requestID(r))
		return
	}

	data, err := fn(f, q)
	if err != nil {
		errors.WriteError(w, h.logger, appError(err), requestID(r))
		return
	}

	errors.WriteSuccessWithHeaders(w, data, map[string]string{
		"Cache-Control": cacheControl,
	})
}

func (h *APIHandlers) HandleTopCategories(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f filter.Filters, _ services.TrendQuery) (any, error) {
		return h.analytics.TopCategories(f)
	})
}

func (h *APIHandlers) HandleBottomCategories(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f filter.Filters, _ services.TrendQuery) (any, error) {
		return h.analytics.BottomCategories(f)
	})
}

func (h *APIHandlers) HandleSatisfaction(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f filter.Filters, _ services.TrendQuery) (any, error) {
		return h.analytics.Satisfaction(f)
	})
}

func (h *APIHandlers) HandleStateDistribution(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f filter.Filters, _ services.TrendQuery) (any, error) {
		return h.analytics.StateDistribution(f)
	})
}

func (h *APIHandlers) HandleMonthlyTrend(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f filter.Filters, q services.TrendQuery) (any, error) {
		return h.analytics.MonthlyTrend(f, q)
	})
}

func (h *APIHandlers) HandleYearlyTrend(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f filter.Filters, _ services.TrendQuery) (any, error) {
		return h.analytics.YearlyTrend(f)
	})
}

func (h *APIHandlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	h.query(w, r, func(f filter.Filters, q services.TrendQuery) (any, error) {
		return h.analytics.Overview(f, q)
	})
}

func (h *APIHandlers) HandleCapabilities(w http.ResponseWriter, r *http.Request) {
	caps, err := h.analytics.Capabilities()
	if err != nil {
		errors.WriteError(w, h.logger, appError(err), requestID(r))
		return
	}
	diag, _ := h.analytics.Diagnostics()
	facets, _ := h.analytics.Facets()

	errors.WriteSuccess(w, map[string]any{
		"capabilities": caps,
		"diagnostics":  diag,
		"facets":       facets,
	})
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !h.analytics.Loaded() {
		status = "degraded"
	}

	healthData := map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}
