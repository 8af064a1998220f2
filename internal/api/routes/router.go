package routes

import (
	"net/http"

	"github.com/ivanmandinski/aisearch-sub002/internal/api/handlers"
	"github.com/ivanmandinski/aisearch-sub002/internal/api/middleware"
	"github.com/ivanmandinski/aisearch-sub002/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	searchHandler    *handlers.SearchHandler
	analyticsHandler *handlers.AnalyticsHandler

	allowedOrigins []string
	metrics        *observability.Metrics
}

// NewRouter creates a new router. analyticsHandler may be nil when analytics
// is disabled.
func NewRouter(
	searchHandler *handlers.SearchHandler,
	analyticsHandler *handlers.AnalyticsHandler,
	allowedOrigins []string,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		searchHandler:    searchHandler,
		analyticsHandler: analyticsHandler,
		allowedOrigins:   allowedOrigins,
		metrics:          metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Search endpoint
	r.mux.HandleFunc("POST /api/search", r.searchHandler.Search)

	// Analytics endpoints
	if r.analyticsHandler != nil {
		r.mux.HandleFunc("POST /api/analytics/impressions", r.analyticsHandler.RecordImpressions)
		r.mux.HandleFunc("POST /api/analytics/click", r.analyticsHandler.RecordClick)
		r.mux.HandleFunc("GET /api/analytics/stats", r.analyticsHandler.GetStats)
		r.mux.HandleFunc("GET /api/analytics/recent", r.analyticsHandler.GetRecent)
		r.mux.HandleFunc("GET /api/analytics/ctr", r.analyticsHandler.GetCTR)
		r.mux.HandleFunc("GET /api/analytics/top-clicked", r.analyticsHandler.GetTopClicked)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)

	// CORS wraps everything so preflight requests short-circuit early
	handler = middleware.CORSMiddleware(r.allowedOrigins)(handler)

	return handler
}
