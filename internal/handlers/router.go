package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sjbitcode/url-shortener/internal/metrics"
)

// NewRouter mounts the API, health, metrics and redirect routes.
func NewRouter(password string, corsOrigins []string, links *LinkHandler, redirect *RedirectHandler, health *HealthHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(RequestLogger(links.Log))

	r.Handle("/healthz", health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(CORS(corsOrigins))
		r.Use(AuthMiddleware(password))
		r.Post("/links", links.Create)
		r.Get("/links/{key}", links.Get)
		r.Patch("/links/{key}", links.Update)
		r.Get("/links/{key}/stats", links.Stats)
		r.Get("/links/{key}/qr", links.QRCode)
		r.Get("/owners/{ownerID}/links", links.ListByOwner)
		r.Get("/summary", links.Summary)
	})

	r.Method(http.MethodGet, "/{key}", redirect)
	return r
}
