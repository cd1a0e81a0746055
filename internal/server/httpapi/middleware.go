package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/teamterraforge/tgmsauth/internal/common"
	"github.com/teamterraforge/tgmsauth/internal/metrics"
	"github.com/teamterraforge/tgmsauth/internal/server/authz"
)

// RequestAuthenticator attaches a principal to the request context when the
// header carries a valid credential and leaves it anonymous otherwise.
type RequestAuthenticator interface {
	Authenticate(ctx context.Context, header string) context.Context
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs every request and records its latency under the
// matched route template.
func (h *Handler) loggingMiddleware(router *mux.Router, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		writer := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(writer, r)
		duration := time.Since(start)

		route := "unmatched"
		var match mux.RouteMatch
		if router.Match(r, &match) && match.Route != nil {
			if tpl, err := match.Route.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(writer.status)).
			Observe(duration.Seconds())

		h.log.Info(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", duration.Milliseconds(),
			"request_id", r.Header.Get("X-Request-ID"),
		)
	})
}

// authenticate runs the authentication pipeline. It never rejects; the
// per-route requirement does.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := h.authn.Authenticate(r.Context(), r.Header.Get(common.AuthorizationHeaderName))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// require guards a route with req.
func (h *Handler) require(req authz.Requirement, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := authz.Check(r.Context(), req); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		next(w, r)
	}
}
