package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/logging"
)

// statusRecorder captures the response code written by downstream handlers.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

// RequestLogger tags every request with an id, scopes a logger onto the
// context, and emits one completion line per request. Panics downstream are
// recovered and answered with a 500.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			id := uuid.NewString()

			logger := base.With(
				slog.String("request_id", id),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr),
			)

			ctx := logging.WithRequestID(logging.WithLogger(r.Context(), logger), id)
			rec := &statusRecorder{ResponseWriter: w}

			defer func() {
				if p := recover(); p != nil {
					logger.Error("panic recovered", "panic", p)
					http.Error(rec, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
				status := rec.status
				if status == 0 {
					status = http.StatusOK
				}
				logger.Info("request completed",
					slog.Int("status", status),
					slog.Duration("duration", time.Since(started)),
				)
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}
}
