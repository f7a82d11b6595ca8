package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/lead-management/internal/activity"
	"github.com/frahmantamala/lead-management/internal/analytics"
	"github.com/frahmantamala/lead-management/internal/auth"
	"github.com/frahmantamala/lead-management/internal/lead"
	"github.com/frahmantamala/lead-management/internal/notification"
	"github.com/frahmantamala/lead-management/internal/source"
	"github.com/frahmantamala/lead-management/internal/transport/middleware"
	"github.com/frahmantamala/lead-management/internal/transport/swagger"
	"github.com/frahmantamala/lead-management/internal/user"
	"github.com/frahmantamala/lead-management/pkg/metrics"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups the HTTP handlers mounted by RegisterAllRoutes. A nil
// handler leaves its routes unmounted.
type Handlers struct {
	Auth         *auth.Handler
	User         *user.Handler
	Lead         *lead.Handler
	Activity     *activity.Handler
	Source       *source.Handler
	Notification *notification.Handler
	Dashboard    *analytics.Handler
	WebSocket    *analytics.WebSocketHandler
	Health       *HealthHandler
}

type Options struct {
	AllowedOrigins []string
	OpenAPIPath    string
	MetricsPath    string

	// Validator checks requests against the API document when set.
	Validator   func(http.Handler) http.Handler
	AuthLimiter *middleware.RateLimiter
	Metrics     *metrics.Metrics
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, opts Options, logger *slog.Logger) {
	if h.Health == nil {
		h.Health = NewHealthHandler(db)
	}
	if opts.OpenAPIPath == "" {
		opts.OpenAPIPath = "./api/openapi.yml"
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	rbac := auth.NewRBACAuthorization(logger)

	// Apply global middleware
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	// Metrics wraps the raw writer so the websocket upgrade can still hijack it.
	if opts.Metrics != nil {
		router.Use(middleware.Metrics(opts.Metrics))
	}
	router.Use(middleware.LoggingMiddleware(logger, "/ws", opts.MetricsPath))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, opts.OpenAPIPath)
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))

	if opts.Metrics != nil {
		router.Handle(opts.MetricsPath, opts.Metrics.Handler())
	}

	// The websocket authenticates itself so browsers can pass the token as a query param.
	if h.WebSocket != nil {
		router.Get("/ws", h.WebSocket.ServeWS)
	}

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		if opts.Validator != nil {
			r.Use(opts.Validator)
		}

		// Health check route
		r.Get("/health", h.Health.healthCheckHandler)
		r.Get("/ping", h.Health.pingHandler)

		// Public sources route (no auth required)
		if h.Source != nil {
			r.Get("/sources", h.Source.GetSources)
		}

		if h.Auth == nil {
			return
		}

		// Auth routes
		r.Route("/auth", func(sr chi.Router) {
			sr.Group(func(lr chi.Router) {
				if opts.AuthLimiter != nil {
					lr.Use(opts.AuthLimiter.Middleware)
				}
				lr.Post("/register", h.Auth.Register)
				lr.Post("/login", h.Auth.Login)
			})
			sr.Post("/logout", h.Auth.Logout)
			sr.With(h.Auth.AuthMiddleware).Get("/me", h.Auth.Me)
		})

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Get("/me", h.User.GetCurrentUser)
					ur.With(rbac.RequireManager()).Get("/", h.User.ListUsers)
					ur.With(rbac.RequireManager()).Get("/{id}", h.User.GetUser)
					ur.With(rbac.RequireAdmin()).Patch("/{id}", h.User.UpdateUser)
				})
			}

			if h.Source != nil {
				pr.Group(func(ar chi.Router) {
					ar.Use(rbac.RequireAdmin())
					ar.Post("/sources", h.Source.CreateSource)
					ar.Patch("/sources/{id}", h.Source.UpdateSource)
				})
			}

			if h.Lead != nil {
				pr.Route("/leads", func(lr chi.Router) {
					lr.Get("/", h.Lead.ListLeads)                  // GET /leads
					lr.Post("/", h.Lead.CreateLead)                // POST /leads
					lr.Get("/{id}", h.Lead.GetLead)                // GET /leads/:id
					lr.Patch("/{id}", h.Lead.UpdateLead)           // PATCH /leads/:id
					lr.Get("/{id}/history", h.Lead.GetLeadHistory) // GET /leads/:id/history

					// Manager routes with role protection
					lr.Group(func(mr chi.Router) {
						mr.Use(rbac.RequireManager())
						mr.Put("/{id}/transfer", h.Lead.TransferLead) // PUT /leads/:id/transfer
						mr.Delete("/{id}", h.Lead.DeleteLead)         // DELETE /leads/:id
					})

					if h.Activity != nil {
						lr.Get("/{id}/activities", h.Activity.ListActivities)
						lr.Post("/{id}/activities", h.Activity.CreateActivity)
					}
				})
			}

			if h.Notification != nil {
				pr.Route("/notifications", func(nr chi.Router) {
					nr.Get("/", h.Notification.ListNotifications)
					nr.Get("/unread-count", h.Notification.UnreadCount)
					nr.Patch("/read-all", h.Notification.MarkAllRead)
					nr.Patch("/{id}/read", h.Notification.MarkRead)
				})
			}

			if h.Dashboard != nil {
				pr.Route("/dashboard", func(dr chi.Router) {
					dr.Get("/summary", h.Dashboard.Summary)
					dr.Get("/status", h.Dashboard.ByStatus)
					dr.Get("/source", h.Dashboard.BySource)
					dr.Get("/owner", h.Dashboard.ByOwner)
				})
			}
		})
	})
}
