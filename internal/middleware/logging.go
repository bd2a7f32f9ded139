package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/carpenike/helix/internal/metrics"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const loggerContextKey contextKey = "logger"

// LoggerFromContext returns the request-scoped logger installed by
// RequestLogger, or the standard logger outside a logged request.
func LoggerFromContext(ctx context.Context) logrus.FieldLogger {
	if l, ok := ctx.Value(loggerContextKey).(logrus.FieldLogger); ok {
		return l
	}
	return logrus.StandardLogger()
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
	wrote  bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wrote {
		w.status = code
		w.wrote = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wrote {
		w.status = http.StatusOK
		w.wrote = true
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger logs each HTTP request with method, path, status code,
// duration and request id, and records it in m. An incoming X-Request-ID is
// reused; otherwise a new one is generated and echoed back. Handlers reach
// logger, tagged with the request id, through LoggerFromContext.
func RequestLogger(logger logrus.FieldLogger, m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			reqLog := logger.WithField("request_id", id)

			next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), loggerContextKey, reqLog)))

			elapsed := time.Since(start)
			m.ObserveRequest(r.Method, routePattern(r), strconv.Itoa(sw.status), elapsed)
			reqLog.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   sw.status,
				"duration": elapsed.Round(time.Microsecond).String(),
			}).Info("http request")
		})
	}
}

// routePattern returns the matched chi route so metrics stay low-cardinality.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
