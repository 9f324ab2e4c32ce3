package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/forecourt-hq/sentinel/internal/auth"
	"github.com/forecourt-hq/sentinel/internal/camera"
	"github.com/forecourt-hq/sentinel/internal/ingest"
	"github.com/forecourt-hq/sentinel/internal/review"
	"github.com/forecourt-hq/sentinel/internal/shared"
	"github.com/forecourt-hq/sentinel/internal/video"
	"github.com/forecourt-hq/sentinel/jobs"
	"github.com/forecourt-hq/sentinel/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	ReviewHandler  *review.Handler
	IngestHandler  *ingest.Handler
	VideoHandler   *video.Handler
	CameraHandler  *camera.Handler
	JobHandler     *jobs.Handler
}

// NewRouter constructs the chi.Router with Sentinel defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(RequireLogin)
			params.ReviewHandler.MountRoutes(r)
			params.IngestHandler.MountRoutes(r)
			params.VideoHandler.MountRoutes(r)
			params.CameraHandler.MountRoutes(r)
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.ServeFileFS(w, r, staticFS, "index.html")
		})
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers so the
// dashboard assets are cached for an hour in the browser.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
