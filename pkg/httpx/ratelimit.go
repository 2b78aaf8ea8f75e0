package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/aussiebroadwan/docsend/pkg/ratelimit"
	"github.com/aussiebroadwan/docsend/pkg/slogx"
)

// KeyExtractor is a function that extracts a unique key from the request
// for rate limiting purposes (e.g., IP address, user ID).
type KeyExtractor func(*http.Request) string

// IPKeyExtractor extracts the client IP address from the request.
// It handles X-Forwarded-For and X-Real-IP headers for proxied requests.
func IPKeyExtractor(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// UserIDKeyExtractor extracts the user ID from the request context.
// Returns empty string if no user ID is found.
func UserIDKeyExtractor(r *http.Request) string {
	id, _ := UserIDFromContext(r.Context())
	return id
}

// CompositeKeyExtractor combines multiple key extractors with a separator.
func CompositeKeyExtractor(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extractor := range extractors {
			if key := extractor(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// RateLimit rejects requests once checker says the key for scope is over
// its limit. Limiter errors are logged and the request is let through.
func RateLimit(checker ratelimit.Checker, scope string, keyExtractor KeyExtractor) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			key := keyExtractor(r)
			if key == "" {
				log.Warn("rate limit: unable to extract key, allowing request", "scope", scope)
				next.ServeHTTP(w, r)
				return
			}

			d, err := checker.Check(ctx, scope, key)
			if err != nil {
				log.Error("rate limit check failed, allowing request", "scope", scope, "err", err)
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			if !d.Allowed {
				log.Warn("rate limit exceeded",
					"scope", scope,
					"key", key,
					"retry_after", d.RetryAfterSeconds,
				)
				WriteError(w, http.StatusTooManyRequests, "rate_limited",
					"Too many requests. Please try again later.", d.RetryAfterSeconds)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitByIP limits by client IP only.
func RateLimitByIP(checker ratelimit.Checker, scope string) Middleware {
	return RateLimit(checker, scope, IPKeyExtractor)
}

// RateLimitByUser limits by authenticated user ID, falling back to IP.
func RateLimitByUser(checker ratelimit.Checker, scope string) Middleware {
	return RateLimit(checker, scope, CompositeKeyExtractor(":",
		UserIDKeyExtractor,
		IPKeyExtractor,
	))
}
