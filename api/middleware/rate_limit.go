package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/lucasberthier/prepalettres-backend/api/responses"
	"github.com/lucasberthier/prepalettres-backend/internal/ratelimit"
	"github.com/lucasberthier/prepalettres-backend/pkg/config"
	pkgerrors "github.com/lucasberthier/prepalettres-backend/pkg/errors"
	"github.com/lucasberthier/prepalettres-backend/pkg/logger"
	"github.com/lucasberthier/prepalettres-backend/pkg/metrics"
)

// RateLimit enforces a fixed-window per-IP counter on the wrapped surface.
// scope names the surface in counter keys, logs and metrics.
func RateLimit(scope string, cfg config.RateLimitConfig, store ratelimit.CounterStore, apiMetrics *metrics.APIMetrics, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.AIWindow <= 0 || cfg.AIIPLimit <= 0 || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ip := clientIP(r)
			key := store.RateLimitKey(fmt.Sprintf("%s:%s", scope, ip))
			count, err := store.IncrWithTTL(ctx, key, cfg.AIWindow)
			if err != nil {
				// A broken counter backend must not take the surface down.
				if logg != nil {
					logg.Error(ctx, "rate limit store unavailable, letting request through", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(cfg.AIIPLimit) {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"scope":          scope,
						"ip":             ip,
						"attempts":       count,
						"limit":          cfg.AIIPLimit,
						"window_seconds": int(cfg.AIWindow.Seconds()),
					})
					logg.Warn(logCtx, "rate_limit.blocked")
				}
				apiMetrics.IncRateLimitRejection(scope)
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cfg.AIWindow.Seconds())))
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
