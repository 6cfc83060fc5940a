package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nextup/arena-director/handlers"
	"github.com/nextup/arena-director/middleware"
)

// SetupLedgerRoutes настраивает маршруты леджера назначений.
// CORS полностью открыт: леджер по контракту обслуживает любой origin.
func SetupLedgerRoutes(router *chi.Mux, assignmentHandler *handlers.AssignmentHandler) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(middleware.WithRequestID)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	router.Route("/api/assignments", func(r chi.Router) {
		r.Get("/", assignmentHandler.List)
		r.Post("/", assignmentHandler.Create)
		r.Delete("/{matchID}", assignmentHandler.Delete)
	})
}

// SetupDirectorRoutes настраивает маршруты координатора: пульт оператора,
// управление оверлеем, сводка статусов и метрики.
func SetupDirectorRoutes(
	router *chi.Mux,
	directorHandler *handlers.DirectorHandler,
	overlayHandler *handlers.OverlayHandler,
	statusHandler *handlers.StatusHandler,
	registry *prometheus.Registry,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(middleware.WithRequestID)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	router.Route("/api", func(r chi.Router) {
		r.Get("/tournaments", directorHandler.ListTournaments)
		r.Post("/tournaments/deselect", directorHandler.DeselectTournament)
		r.Post("/tournaments/{tournamentID}/select", directorHandler.SelectTournament)

		r.Get("/view", directorHandler.View)

		r.Post("/assignments", directorHandler.Assign)
		r.Delete("/assignments/{matchID}", directorHandler.Unassign)

		r.Post("/overlay/connect", overlayHandler.Connect)
		r.Post("/overlay/disconnect", overlayHandler.Disconnect)
		r.Get("/overlay/status", overlayHandler.Status)

		r.Get("/status", statusHandler.Status)
	})
}
