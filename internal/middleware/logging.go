// Package middleware contains the HTTP middleware mounted on the router.
//
// WHAT IS MIDDLEWARE?
// A middleware is a function that takes a handler and returns a new handler
// wrapping it. The wrapper can act before the request reaches the handler,
// after the handler returns, or both:
//
//	func Middleware(next http.Handler) http.Handler {
//		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//			// before
//			next.ServeHTTP(w, r)
//			// after
//		})
//	}
//
// chi applies r.Use(...) in registration order, so the first one registered
// is the outermost layer. Logger and Metrics run for every route; the
// RateLimiter is only mounted on the /auth login group.
//
// CAPTURING THE STATUS CODE:
// http.ResponseWriter has no getter for the status a handler wrote. Logger
// and Metrics both swap in responseWriter, which records it on the way
// through. wrap reuses an existing responseWriter so stacking the two does
// not double-wrap.
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// responseWriter wraps http.ResponseWriter to capture the status code and
// the number of bytes written, which the wrapped writer does not expose.
type responseWriter struct {
	http.ResponseWriter       // embedded: Header() and friends pass straight through
	statusCode          int   // defaults to 200 when the handler never calls WriteHeader
	written             int64 // response body bytes
}

func wrap(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader records the code before forwarding it.
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Logger logs one structured line per request. Server errors are logged at
// error level, client errors at warn, everything else at info.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)

			next.ServeHTTP(wrapped, r)

			level := slog.LevelInfo
			switch {
			case wrapped.statusCode >= 500:
				level = slog.LevelError
			case wrapped.statusCode >= 400:
				level = slog.LevelWarn
			}

			logger.LogAttrs(r.Context(), level, "request completed",
				slog.String("request_id", chimw.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.statusCode),
				slog.Duration("duration", time.Since(start)),
				slog.Int64("bytes", wrapped.written),
			)
		})
	}
}
