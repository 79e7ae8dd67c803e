package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "signalx/internal/common/errors"
	"signalx/internal/common/metrics"
)

type ctxKey int

const adminEmailKey ctxKey = iota

// AdminEmail returns the email of the authenticated admin, if any.
func AdminEmail(ctx context.Context) string {
	v, _ := ctx.Value(adminEmailKey).(string)
	return v
}

// admin guards a handler behind token introspection. With no validator
// configured the handler is served as is.
func (h *Handler) admin(next http.HandlerFunc) http.HandlerFunc {
	if h.deps.Auth == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			h.fail(w, r, apperrors.NewAuthenticationError("missing bearer token"))
			return
		}
		info, err := h.deps.Auth.ValidateToken(r.Context(), strings.TrimSpace(token))
		if err != nil {
			h.fail(w, r, err)
			return
		}

		isAdmin := h.deps.AdminRole != "" && info.HasRole(h.deps.AdminRole)
		if !isAdmin && h.deps.AdminEmail != "" && strings.EqualFold(info.Email, h.deps.AdminEmail) {
			isAdmin = true
		}
		if !isAdmin {
			h.logger.Warn("admin route denied", map[string]interface{}{"path": r.URL.Path, "subject": info.Sub})
			h.fail(w, r, apperrors.NewForbiddenError(info.Email))
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), adminEmailKey, info.Email)))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records prometheus and otel metrics for a route and wraps it in a span.
func (h *Handler) instrument(route string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if h.deps.Obs != nil {
			var span trace.Span
			ctx, span = h.deps.Obs.StartSpan(ctx, route,
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path))
			defer span.End()
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r.WithContext(ctx))

		elapsed := time.Since(start)
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())
		if h.deps.Obs != nil {
			h.deps.Obs.RecordHTTPDuration(ctx, route, rec.status, elapsed)
		}
	})
}

func metricsHandler() http.Handler {
	return promhttp.Handler()
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// ready runs every dependency check; any failure answers 503.
func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.deps.Checks))
	healthy := true
	for name, check := range h.deps.Checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}
	if !healthy {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": "not ready", "checks": checks})
		return
	}
	jsonOK(w, http.StatusOK, map[string]interface{}{"checks": checks})
}
