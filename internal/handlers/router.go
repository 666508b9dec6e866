package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the API. Reads of rebates, students and current prices stay
// public; every write, the statistics and the billing routes sit behind the
// session guard.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.service.Config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", h.service.Auth.TokenHeader()},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	guard := RequireSession(h.service.Auth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/rebate", func(r chi.Router) {
			r.Get("/rebates", h.ListRebates)
			r.Get("/rebates/{rollNo}", h.ListStudentRebates)
			r.Get("/monthly", h.ListMonthlyRebates)
			r.Get("/check-overlap", h.CheckOverlap)

			r.With(guard).Post("/create", h.CreateRebate)
			r.With(guard).Put("/update", h.UpdateRebates)
		})

		r.Route("/students", func(r chi.Router) {
			r.Get("/", h.ListStudents)
			r.Get("/{rollNo}", h.GetStudent)
		})

		r.Get("/price-settings/current", h.GetPrices)

		r.Group(func(r chi.Router) {
			r.Use(guard)

			r.Get("/statistics", h.GetStatistics)
			r.Post("/statistics/clear-cache", h.ClearStatisticsCache)

			r.Put("/price-settings/update", h.UpdatePrices)

			r.Get("/billing/statement", h.BillingStatement)
			r.Get("/billing/export", h.ExportBilling)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
