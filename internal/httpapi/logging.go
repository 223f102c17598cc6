package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// requestIDHeader is the header request IDs propagate on, recognized by
// proxies and observability tooling.
const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext extracts the request ID stashed by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// RequestID propagates an inbound X-Request-ID or mints a fresh UUID,
// storing it on the context and echoing it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseWriter captures the status code a handler wrote, since the
// standard http.ResponseWriter does not expose it after the fact.
type responseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// healthPaths are skipped by RequestLogger to avoid orchestrator-probe noise.
var healthPaths = map[string]bool{"/healthz": true, "/livez": true, "/readyz": true}

// RequestLogger logs every dispatched request at a level derived from its
// status code, with the request ID attached when present (grounded on the
// teacher's internal/api.RequestLogger, simplified to this bridge's single
// endpoint and three-way level split).
func (s *Server) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", wrapped.status),
			slog.Duration("duration", time.Since(start)),
		}
		if id := RequestIDFromContext(r.Context()); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}

		switch {
		case wrapped.status >= 500:
			s.Log.LogAttrs(r.Context(), slog.LevelError, "request completed", attrs...)
		case wrapped.status >= 400:
			s.Log.LogAttrs(r.Context(), slog.LevelWarn, "request completed", attrs...)
		default:
			s.Log.LogAttrs(r.Context(), slog.LevelInfo, "request completed", attrs...)
		}
	})
}
