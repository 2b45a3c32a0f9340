package server

import (
	"log/slog"
	"net/http"

	"ecommerce-dashboard/internal/handlers"
	"ecommerce-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/top-categories", s.apiHandlers.HandleTopCategories)
	s.mux.HandleFunc("GET /api/bottom-categories", s.apiHandlers.HandleBottomCategories)
	s.mux.HandleFunc("GET /api/satisfaction", s.apiHandlers.HandleSatisfaction)
	s.mux.HandleFunc("GET /api/state-distribution", s.apiHandlers.HandleStateDistribution)
	s.mux.HandleFunc("GET /api/monthly-trend", s.apiHandlers.HandleMonthlyTrend)
	s.mux.HandleFunc("GET /api/yearly-trend", s.apiHandlers.HandleYearlyTrend)
	s.mux.HandleFunc("GET /api/overview", s.apiHandlers.HandleOverview)
	s.mux.HandleFunc("GET /api/capabilities", s.apiHandlers.HandleCapabilities)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/top-categories", s.sseHandlers.HandleTopCategories)
	s.mux.HandleFunc("GET /sse/bottom-categories", s.sseHandlers.HandleBottomCategories)
	s.mux.HandleFunc("GET /sse/satisfaction", s.sseHandlers.HandleSatisfaction)
	s.mux.HandleFunc("GET /sse/state-distribution", s.sseHandlers.HandleStateDistribution)
	s.mux.HandleFunc("GET /sse/monthly-trend", s.sseHandlers.HandleMonthlyTrend)
	s.mux.HandleFunc("GET /sse/yearly-trend", s.sseHandlers.HandleYearlyTrend)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
