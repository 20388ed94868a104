package rest

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perejack/globalvisaapplication/internal"
	"github.com/perejack/globalvisaapplication/internal/admin"
	"github.com/perejack/globalvisaapplication/internal/application"
	"github.com/perejack/globalvisaapplication/internal/booking"
	"github.com/perejack/globalvisaapplication/internal/payment"
	"github.com/perejack/globalvisaapplication/internal/transport/middleware"
	"github.com/perejack/globalvisaapplication/internal/transport/swagger"
	"github.com/perejack/globalvisaapplication/internal/user"
)

// Authenticator wraps protected routes. RequireRole runs after Authenticate.
type Authenticator interface {
	Authenticate(next http.Handler) http.Handler
	RequireRole(roles ...string) func(http.Handler) http.Handler
}

type RouterDeps struct {
	Applications   *application.Handler
	Payments       *payment.Handler
	Bookings       *booking.Handler
	Admin          *admin.Handler
	Users          *user.Handler
	Auth           Authenticator
	DB             Pinger
	PollQueue      QueueStats
	Registry       *prometheus.Registry
	MetricsPath    string
	AllowedOrigins []string
	OpenAPIPath    string
	Logger         *slog.Logger
}

func RegisterAllRoutes(router chi.Router, deps RouterDeps) {
	healthHandler := NewHealthHandler(deps.DB, deps.PollQueue)

	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.TraceID)
	router.Use(middleware.LoggingMiddleware(deps.Logger))
	router.Use(middleware.RecoveryMiddleware(deps.Logger))
	router.Use(corsHandler(deps.AllowedOrigins))
	if deps.Registry != nil {
		router.Use(middleware.NewHTTPMetrics(deps.Registry).Middleware)
	}

	openAPIPath := deps.OpenAPIPath
	if openAPIPath == "" {
		openAPIPath = "./api/openapi.yml"
	}
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, openAPIPath)
	})
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))

	if deps.Registry != nil {
		metricsPath := deps.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		router.Handle(metricsPath, promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if deps.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(deps.Auth.Authenticate)

			if deps.Users != nil {
				pr.Get("/me", deps.Users.GetCurrentUser)
			}

			if deps.Applications != nil {
				pr.Route("/applications", func(ar chi.Router) {
					ar.Post("/", deps.Applications.Submit)
					ar.Get("/", deps.Applications.List)
					ar.Get("/{id}", deps.Applications.Get)

					if deps.Payments != nil {
						ar.Post("/{id}/payments", deps.Payments.Initiate)
						ar.Get("/{id}/payments", deps.Payments.ListForApplication)
					}
					if deps.Bookings != nil {
						ar.Post("/{id}/interviews", deps.Bookings.Book)
						ar.Get("/{id}/interviews", deps.Bookings.ListForApplication)
					}
				})
			}

			if deps.Payments != nil {
				pr.Route("/payments", func(pmr chi.Router) {
					pmr.Get("/{id}", deps.Payments.Get)
					pmr.Post("/{id}/recheck", deps.Payments.Recheck)
				})
			}

			if deps.Admin != nil || deps.Bookings != nil {
				pr.Route("/admin", func(adr chi.Router) {
					adr.Use(deps.Auth.RequireRole(internal.AdminRoles...))

					if deps.Admin != nil {
						adr.Get("/stats", deps.Admin.Stats)
						adr.Get("/applications", deps.Admin.ListApplicants)
						adr.Get("/applications/export", deps.Admin.ExportApplicants)
					}
					if deps.Bookings != nil {
						adr.Get("/interviews", deps.Bookings.List)
						adr.Patch("/interviews/{id}", deps.Bookings.UpdateStatus)
					}
				})
			}
		})
	})
}

// corsHandler lets the portal's browser front end call the API. An empty list or "*"
// allows any origin; bearer tokens are sent explicitly, so credentials stay disabled.
func corsHandler(origins []string) func(http.Handler) http.Handler {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimSuffix(strings.TrimSpace(o), "/"); o != "" {
			allowed = append(allowed, o)
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Trace-ID"},
		ExposedHeaders: []string{"X-Trace-ID"},
		MaxAge:         600,
	})
}
