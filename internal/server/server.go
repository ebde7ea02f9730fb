package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hongminglow/farmconnect/internal/config"
	"github.com/hongminglow/farmconnect/internal/http/handlers"
	"github.com/hongminglow/farmconnect/internal/http/respond"
	"github.com/hongminglow/farmconnect/internal/middleware"
	"github.com/hongminglow/farmconnect/internal/services"
	"github.com/hongminglow/farmconnect/internal/session"
)

// Deps are the collaborators the routes need.
type Deps struct {
	Sessions *session.Service
	Services services.Set
	Feed     handlers.Drainer
	Store    handlers.Pinger
	Outbox   handlers.Outbox
	Logger   *slog.Logger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           NewRouter(cfg, deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return &Server{inner: httpServer}
}

// NewRouter builds the routed handler without binding a listener.
func NewRouter(cfg config.Config, deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	gate := middleware.NewGate(deps.Sessions)

	handlers.NewHealthHandler(time.Now(), deps.Store, deps.Outbox).Register(r)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	handlers.NewAuthHandler(deps.Sessions, gate).Register(r)
	handlers.NewNotificationsHandler(deps.Feed).Register(r)
	handlers.NewProfileHandler(deps.Sessions).Register(r, gate)
	handlers.NewMarketHandler(deps.Services).Register(r, gate)
	handlers.NewProductsHandler(deps.Services.Products).Register(r, gate)
	handlers.NewMessagesHandler(deps.Services.Messages).Register(r, gate)
	handlers.NewAlertsHandler(deps.Services.Alerts).Register(r, gate)

	r.Use(middleware.Logging(logger))
	return middleware.CORS(cfg.CORSOrigins)(r)
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
