// Package httpapi is the HTTP façade of spec.md §6: a chi router exposing
// the GET path-grammar and POST bulk/single JSON endpoints over the
// backend manager, plus liveness/readiness probes. It is grounded on the
// teacher's internal/api/router.go: the same middleware order (CORS →
// security headers → request ID → RealIP → request logging → panic
// recovery), the same writeJSON/health-endpoint shapes, adapted from a
// multi-resource REST API to this bridge's single dispatch endpoint.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/beanbridge/bridge/internal/domain"
	"github.com/beanbridge/bridge/internal/restrict"
)

// RequestHandler is the narrow interface the façade dispatches onto —
// satisfied by *dispatch.Manager. Kept here so this package does not import
// internal/dispatch, mirroring internal/verb's narrow ServerInfo pattern.
type RequestHandler interface {
	HandleRequest(ctx context.Context, req *domain.Request, caller restrict.Caller) *domain.Response
}

// Server holds everything the HTTP handlers need.
type Server struct {
	Manager     RequestHandler
	CORSOrigins []string
	Log         *slog.Logger
}

// NewRouter builds the chi router: health endpoints unauthenticated at the
// root, the bridge's GET/POST dispatch endpoint mounted at "/".
func NewRouter(srv *Server) chi.Router {
	if srv.Log == nil {
		srv.Log = slog.Default()
	}
	origins := srv.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowedOrigins:   origins,
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(securityHeaders)
	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(srv.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", srv.HandleLiveness)
	r.Get("/livez", srv.HandleLiveness)
	r.Get("/readyz", srv.HandleReadiness)

	r.Get("/*", srv.HandleGET)
	r.Post("/", srv.HandlePOST)
	r.Post("/*", srv.HandlePOST)

	return r
}

// securityHeaders sets a minimal, uncontroversial set of response headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}
