// Package httpmiddleware provides the HTTP middleware chain for the API
// server: panic recovery, CORS, rate limiting, request IDs, and request
// logging.
package httpmiddleware

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Middleware wraps an http.Handler with additional behaviour.
type Middleware = func(http.Handler) http.Handler

// Wrap applies middlewares to h so that the first middleware in the list is
// the outermost.
func Wrap(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// InjectLogger returns a middleware that stores lg as the base logger of
// every request context; handlers retrieve it with zctx.From.
func InjectLogger(lg *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(zctx.Base(r.Context(), lg)))
		})
	}
}

// statusWriter captures the response status code for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// LogRequests returns a middleware that logs one line per request with
// method, path, status, duration, and request ID.
func LogRequests() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r)

			zctx.From(r.Context()).Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", sw.status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			)
		})
	}
}
