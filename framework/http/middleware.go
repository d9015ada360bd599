package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/km-arc/go-autodi/framework/container"
)

// ── RequestScope ─────────────────────────────────────────────────────────────

// ScopeOption configures RequestScope.
type ScopeOption func(*scopeOptions)

type scopeOptions struct {
	scope   container.Scope
	onError func(w http.ResponseWriter, r *http.Request, err error)
}

// WithScopeName enters name instead of container.RequestScope.
func WithScopeName(name container.Scope) ScopeOption {
	return func(o *scopeOptions) { o.scope = name }
}

// WithScopeErrorHandler is called when entering or tearing down the scope
// fails. The handler may already have written the response by then.
func WithScopeErrorHandler(fn func(w http.ResponseWriter, r *http.Request, err error)) ScopeOption {
	return func(o *scopeOptions) { o.onError = fn }
}

// RequestScope runs every request inside its own scope on a fork of c. The
// fork travels in the request context; handlers reach it with Resolve or
// container.FromContext. Request-scoped instances are destroyed once the
// handler returns, also when it panics; the panic then continues to the
// Recoverer.
//
//	r := chi.NewRouter()
//	r.Use(apphttp.RequestScope(app))
func RequestScope(c *container.Container, opts ...ScopeOption) func(http.Handler) http.Handler {
	o := scopeOptions{scope: container.RequestScope}
	for _, opt := range opts {
		opt(&o)
	}
	if o.onError == nil {
		logger := c.Logger()
		o.onError = func(_ http.ResponseWriter, r *http.Request, err error) {
			logger.Warn("request scope teardown failed",
				zap.String("path", r.URL.Path),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.Error(err))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fork := c.Fork()
			err := fork.EnterScopeAsync(r.Context(), o.scope, func(ctx context.Context) error {
				next.ServeHTTP(w, r.WithContext(container.WithContainer(ctx, fork)))
				return nil
			})
			if err != nil {
				o.onError(w, r, err)
			}
		})
	}
}

// ── AccessLog ────────────────────────────────────────────────────────────────

// AccessLog logs one line per request with status, size and duration.
func AccessLog(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("HTTP Request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("requestID", middleware.GetReqID(r.Context())),
				zap.String("remoteAddr", r.RemoteAddr),
			)
		})
	}
}
