package middleware

import (
	"net"
	"net/http"

	"github.com/kaclira/kaclira-backend/api/responses"
	"github.com/kaclira/kaclira-backend/pkg/config"
	pkgerrors "github.com/kaclira/kaclira-backend/pkg/errors"
	"github.com/kaclira/kaclira-backend/pkg/logger"
	"github.com/kaclira/kaclira-backend/pkg/redis"
)

// RateLimit applies a fixed-window limit keyed by the authenticated user,
// falling back to the client IP for anonymous traffic. Redis failures let the
// request through so the limiter never becomes an availability risk.
func RateLimit(store *redis.Client, cfg config.RateLimitConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			scope := UserIDFromContext(ctx)
			if scope == "" {
				scope = clientIP(r)
			}

			allowed, count, err := store.FixedWindowAllow(ctx, scope, cfg.RequestLimit, cfg.Window)
			if err != nil {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"scope": scope}), "rate_limit.check_failed")
				}
				next.ServeHTTP(w, r)
				return
			}

			if !allowed {
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{"scope": scope, "count": count}), "rate_limit.exceeded")
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
