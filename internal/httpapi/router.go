package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Hariprasath006/Campus-Resource-Management/internal/api"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/booking"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/catalog"
	"github.com/Hariprasath006/Campus-Resource-Management/internal/identity"
	"github.com/Hariprasath006/Campus-Resource-Management/pkg/config"
)

type Dependencies struct {
	Cfg    config.Config
	Logger *zap.Logger

	Bookings    booking.Store
	Resources   catalog.Repository
	Tokens      api.TokenVerifier
	AdminPolicy booking.AdminPolicy
}

func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(api.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(api.CORSMiddleware(api.CORSOptions{
		AllowedOrigins: deps.Cfg.AllowedOrigins,
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-User-ID", "X-User-Role"},
		MaxAgeSeconds:  600,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	svc := booking.NewService(deps.Bookings, deps.Resources, deps.AdminPolicy, logger)
	bookingHandlers := booking.Handlers{
		Service:   svc,
		Resources: deps.Resources,
		Logger:    logger,
	}
	resourceHandlers := catalog.Handlers{
		Repo:   deps.Resources,
		Logger: logger,
	}

	// v1
	r.Route("/v1", func(r chi.Router) {
		// Production: bearer session token.
		// Dev: falls back to X-User-ID / X-User-Role if Authorization is missing.
		r.Use(api.Authenticate(deps.Tokens, !deps.Cfg.IsProd()))
		r.Use(api.RateLimit(deps.Cfg.RateLimit.PerMinute, deps.Cfg.RateLimit.Burst, logger))

		r.Get("/bookings", bookingHandlers.List)
		r.Post("/bookings", bookingHandlers.Create)
		r.Get("/bookings/{id}", bookingHandlers.Get)
		r.Patch("/bookings/{id}/status", bookingHandlers.PatchStatus)
		r.Get("/bookings/{id}/history", bookingHandlers.History)

		r.Get("/resources", resourceHandlers.List)
		r.Get("/resources/{id}", resourceHandlers.Get)

		// Catalog management
		r.Group(func(r chi.Router) {
			r.Use(api.RequireRole(identity.RoleAdmin))
			r.Post("/resources", resourceHandlers.Create)
			r.Put("/resources/{id}", resourceHandlers.Update)
			r.Delete("/resources/{id}", resourceHandlers.Delete)
		})
	})

	return r
}
