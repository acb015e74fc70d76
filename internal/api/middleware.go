package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goodtune/sitetime/internal/metrics"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// loggingMiddleware logs each request and counts it by route name and status.
func loggingMiddleware(logger zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			action := "unknown"
			if route := mux.CurrentRoute(r); route != nil && route.GetName() != "" {
				action = route.GetName()
			}
			metrics.APIRequestsTotal.WithLabelValues(action, strconv.Itoa(wrapped.statusCode)).Inc()

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("action", action).
				Int("status", wrapped.statusCode).
				Dur("duration", time.Since(start)).
				Msg("API request")
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
