package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/occva/X-Bookmarks/internal/api/handler"
	mw "github.com/occva/X-Bookmarks/internal/api/middleware"
	"github.com/occva/X-Bookmarks/internal/metrics"
)

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(
	feedHandler *handler.FeedHandler,
	uiHandler *handler.UIHandler,
	healthHandler *handler.HealthHandler,
	refreshHandler *handler.RefreshHandler,
	requestTimeout time.Duration,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CleanPath) // Normalize paths (e.g., //health -> /health)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.Logger(logger))
	r.Use(mw.Recovery(logger))
	if requestTimeout > 0 {
		r.Use(middleware.Timeout(requestTimeout))
	}

	r.Get("/health", healthHandler.Live)
	r.Handle("/metrics", metrics.Handler())

	// Feed page
	r.Get("/", uiHandler.Index)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tweets", feedHandler.List)
		r.Get("/tweets/{id}", feedHandler.Get)
		r.Get("/stats", feedHandler.Stats)
		r.Get("/images", feedHandler.Images)
		r.Get("/summary", feedHandler.Summary)

		r.Post("/load", feedHandler.Load)
		r.Post("/reload", feedHandler.Reload)

		r.Get("/recent", feedHandler.Recent)
		r.Delete("/recent", feedHandler.DeleteRecent)

		// Periodic refresh (only when enabled)
		if refreshHandler != nil {
			r.Get("/refresh", refreshHandler.Status)
			r.Post("/refresh", refreshHandler.Trigger)
			r.Post("/refresh/pause", refreshHandler.Pause)
			r.Post("/refresh/resume", refreshHandler.Resume)
		}
	})

	return r
}
