package api

import (
	"net/http"

	"github.com/Togather-Foundation/agenda/internal/api/handlers"
	"github.com/Togather-Foundation/agenda/internal/api/middleware"
	"github.com/Togather-Foundation/agenda/internal/auth"
	"github.com/Togather-Foundation/agenda/internal/config"
	"github.com/Togather-Foundation/agenda/internal/domain/events"
	"github.com/Togather-Foundation/agenda/internal/domain/users"
	"github.com/Togather-Foundation/agenda/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Dependencies are the services the router wires into handlers.
type Dependencies struct {
	Config config.Config
	Logger zerolog.Logger
	Build  BuildInfo

	Users  *users.Service
	Events *events.Service
	Tokens *auth.TokenService
	Store  handlers.Pinger
}

// NewRouter builds the HTTP surface. Route patterns use the Go 1.22 ServeMux
// method syntax, so unsupported methods get 405 from the mux itself.
func NewRouter(deps Dependencies) http.Handler {
	usersHandler := handlers.NewUsersHandler(deps.Users)
	eventsHandler := handlers.NewEventsHandler(deps.Events)
	build := deps.Build.withDefaults()
	health := handlers.NewHealthChecker(deps.Store, build.Version, build.GitCommit)

	authenticated := middleware.Authenticate(deps.Tokens, deps.Users)
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return authenticated(middleware.RequireAdmin()(h))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", StatusHandler(deps.Build))
	mux.Handle("GET /version", VersionHandler(deps.Build))
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /user", usersHandler.Create)
	mux.HandleFunc("POST /login", usersHandler.Login)

	mux.HandleFunc("GET /events", eventsHandler.List)
	mux.Handle("GET /myevents", authenticated(http.HandlerFunc(eventsHandler.ListMine)))
	mux.Handle("POST /events", adminOnly(eventsHandler.Create))
	mux.Handle("GET /events/{id}", adminOnly(eventsHandler.Get))
	mux.Handle("PUT /events/{id}", adminOnly(eventsHandler.Update))
	mux.Handle("DELETE /events/{id}", adminOnly(eventsHandler.Delete))

	// Tracing wraps the mux directly so it sees the matched pattern.
	var handler http.Handler = middleware.Tracing(mux)
	handler = middleware.RequestSize(middleware.DefaultMaxBodySize)(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.CORS(deps.Config.CORS, deps.Logger)(handler)
	handler = middleware.SecurityHeaders(deps.Config.IsProduction())(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}
