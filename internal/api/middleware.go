package api

import (
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/m3rciful/trainingbot/core/logger"
)

// RequestLogging tags the request context with the chi request id and
// logs one summary line per request.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if rid := chimw.GetReqID(ctx); rid != "" {
			ctx = logger.WithRID(ctx, rid)
		}
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		outcome := "ok"
		if status >= http.StatusBadRequest {
			outcome = "fail"
		}
		logger.Info(ctx, component, "request",
			slog.String("status", outcome),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("http_code", status),
			slog.Duration("duration", logger.Took(start)),
		)
	})
}
