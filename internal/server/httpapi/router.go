package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter builds the HTTP API. Every request is traced through otelhttp;
// /metrics serves the default Prometheus registry.
func NewRouter(users UserService, logger logging.Logger) http.Handler {
	h := &handlers{users: users, logger: logger.With("module", "http")}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/", h.public)
	r.Post("/register", h.register)
	r.Post("/login", h.login)
	r.Post("/refresh", h.refresh)
	r.Post("/logout", h.logout)
	r.Get("/verify-email", h.verifyEmail)
	r.Post("/resend-verification", h.resendVerification)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(h.bearerAuth)
		r.Get("/protected", h.protected)
	})

	return otelhttp.NewHandler(r, "authkeeper.http")
}
