package api

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/flogvit/wikiportraits/internal/api/middleware"
	"github.com/flogvit/wikiportraits/internal/event"
	"github.com/flogvit/wikiportraits/internal/graph"
	"github.com/flogvit/wikiportraits/internal/search"
	"github.com/flogvit/wikiportraits/internal/session"
)

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	Session  *session.Manager
	Searcher *search.Searcher
	Graph    graph.Client
	Bus      *event.Bus
	Logger   *slog.Logger
	BasePath string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	session  *session.Manager
	searcher *search.Searcher
	graph    graph.Client
	bus      *event.Bus
	logger   *slog.Logger
	basePath string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		session:  deps.Session,
		searcher: deps.Searcher,
		graph:    deps.Graph,
		bus:      deps.Bus,
		logger:   deps.Logger,
		basePath: deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)

	// Session routes
	mux.HandleFunc("PUT "+bp+"/api/v1/session/org", r.handleSelectOrg)
	mux.HandleFunc("GET "+bp+"/api/v1/session", r.handleGetSession)
	mux.HandleFunc("GET "+bp+"/api/v1/session/roster", r.handleGetRoster)

	// Search routes
	mux.HandleFunc("GET "+bp+"/api/v1/search", r.handleSearch)
	mux.HandleFunc("GET "+bp+"/api/v1/orgs/search", r.handleOrgSearch)

	// Pending entity routes
	mux.HandleFunc("POST "+bp+"/api/v1/pending", r.handleCreatePending)
	mux.HandleFunc("GET "+bp+"/api/v1/pending", r.handleListPending)
	mux.HandleFunc("DELETE "+bp+"/api/v1/pending/{localID}", r.handleDeletePending)
	mux.HandleFunc("POST "+bp+"/api/v1/pending/{localID}/promote", r.handlePromotePending)

	limiter := middleware.NewClientRateLimiter(ctx, rate.Limit(20), 40)

	var h http.Handler = mux
	h = middleware.Logging(r.logger)(h)
	h = limiter.Middleware(h)
	h = middleware.SecurityHeaders(h)
	h = middleware.RequestID(h)
	return h
}
