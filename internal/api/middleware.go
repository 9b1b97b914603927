package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/terra-clan/scheme-connect/internal/advisor"
	"github.com/terra-clan/scheme-connect/internal/metrics"
)

// loggingMiddleware logs HTTP requests and records request metrics
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			elapsed := time.Since(start)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).Inc()
			metrics.HTTPDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())

			s.logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Int64("duration_ms", elapsed.Milliseconds()),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("remote_addr", r.RemoteAddr),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// sessionCtx resolves the {id} URL parameter to an existing advisor session
// and stores its id in the request context
func (s *Server) sessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			s.respondError(w, http.StatusBadRequest, "validation_error", "session id is required")
			return
		}

		if _, err := s.advisor.GetSession(id); err != nil {
			if errors.Is(err, advisor.ErrSessionNotFound) {
				s.respondError(w, http.StatusNotFound, "not_found", "session not found")
				return
			}
			s.logger.Error("failed to get session", zap.Error(err), zap.String("id", id))
			s.respondError(w, http.StatusInternalServerError, "internal_error", "failed to get session")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithSessionID(r.Context(), id)))
	})
}
