package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/renewalwatch/backend/internal/metrics"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// RouterConfig carries what NewRouter needs beyond the handlers.
type RouterConfig struct {
	AllowedOrigins []string
	JWTSecret      string
}

func NewRouter(cfg RouterConfig, alerts *AlertHandler, health *HealthHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/metrics", metrics.Handler().ServeHTTP)

	// Swagger documentation
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", health.Health)

		r.Group(func(r chi.Router) {
			r.Use(NewAuthMiddleware(cfg.JWTSecret))

			r.Post("/tenants/{tenantID}/alerts/run", alerts.RunDaily)
			r.Post("/tenants/{tenantID}/alerts/monthly-summary", alerts.RunMonthlySummary)
			r.Get("/alerts/logs", alerts.ListLogs)
		})
	})

	return r
}
