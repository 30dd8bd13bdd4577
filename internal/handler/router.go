package handler

import (
	"net/http"

	"github.com/dandantas/tendril/pkg/middleware"
)

// Router handles HTTP routing
type Router struct {
	generationHandler *GenerationHandler
	historyHandler    *HistoryHandler
	healthHandler     *HealthHandler
	corsConfig        middleware.CORSConfig
}

// NewRouter creates a new router
func NewRouter(
	generationHandler *GenerationHandler,
	historyHandler *HistoryHandler,
	healthHandler *HealthHandler,
	corsConfig middleware.CORSConfig,
) *Router {
	return &Router{
		generationHandler: generationHandler,
		historyHandler:    historyHandler,
		healthHandler:     healthHandler,
		corsConfig:        corsConfig,
	}
}

// Handler returns the configured HTTP handler with middleware
func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", rt.healthHandler.Health)
	mux.HandleFunc("/ready", rt.healthHandler.Ready)

	// polling interface
	mux.HandleFunc("/generate/", rt.generationHandler.Generate)
	mux.HandleFunc("/progress/", rt.generationHandler.Progress)

	mux.HandleFunc("/api/v1/generations", rt.generationHandler.Create)
	mux.HandleFunc("/api/v1/generations/", rt.generationHandler.Get)
	mux.HandleFunc("/api/v1/kinds", rt.generationHandler.Kinds)
	mux.HandleFunc("/api/v1/history", rt.historyHandler.List)
	mux.HandleFunc("/api/v1/history/", rt.historyHandler.Get)

	// Apply middleware (CORS first to handle preflight requests)
	handler := middleware.CORS(rt.corsConfig)(mux)
	handler = middleware.Recovery(handler)
	handler = middleware.Logging(middleware.LoggingConfig{
		QuietPrefixes: []string{"/progress/", "/api/v1/generations/", "/health", "/ready"},
	})(handler)
	handler = middleware.CorrelationID(handler)

	return handler
}
