// Package httpapi is the HTTP/JSON boundary of the shop server.
package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/comicvault/internal/server/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions carries the cross-cutting pieces of the router.
type RouterOptions struct {
	AllowedOrigins []string
	Limiter        *RateLimiter
	Metrics        *metrics.Metrics
}

// NewRouter wires routes to h.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(middleware.Recoverer)
	r.Use(opts.Metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	limit := func(next http.Handler) http.Handler { return next }
	if opts.Limiter != nil {
		limit = opts.Limiter.Handler
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(h.withSession)

		r.Get("/verify/{token}", h.Verify)
		r.Get("/download/{id}", h.Download)

		r.Route("/api", func(r chi.Router) {
			r.Route("/auth", func(r chi.Router) {
				r.With(limit).Post("/register", h.Register)
				r.With(limit).Post("/login", h.Login)
				r.Post("/logout", h.Logout)
			})

			r.Route("/catalog", func(r chi.Router) {
				r.Get("/", h.ListCatalog)
				r.Post("/", h.SubmitItem)
				r.Get("/{id}/cover", h.Cover)
			})

			r.Route("/purchases", func(r chi.Router) {
				r.Post("/", h.InitiatePurchase)
				r.Get("/callback", h.PurchaseCallback)
			})
		})
	})

	return r
}
