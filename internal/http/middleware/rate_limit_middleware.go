package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Dakheel-code/arena-run-sub001/internal/http/response"
	"github.com/Dakheel-code/arena-run-sub001/internal/security"

	"github.com/go-chi/httprate"
)

type RateLimitConfig struct {
	RequestLimit int
	WindowSize   time.Duration
	// KeyFunc defaults to the client IP.
	KeyFunc httprate.KeyFunc
}

// RateLimit is a sliding window limiter answering 429 in the API envelope.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.RequestLimit <= 0 {
		cfg.RequestLimit = 1
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = time.Minute
	}
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ClientIPKey
	}
	retryAfter := strconv.Itoa(int(cfg.WindowSize.Seconds()))
	return httprate.Limit(
		cfg.RequestLimit,
		cfg.WindowSize,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", retryAfter)
			response.Error(w, r, http.StatusTooManyRequests, response.CodeRateLimited, "too many requests", nil)
		}),
	)
}

func ClientIPKey(r *http.Request) (string, error) {
	return "ip:" + security.ClientIP(r), nil
}

// SubjectOrIPKey keys authenticated requests by member so that one member
// behind a shared address cannot starve the others.
func SubjectOrIPKey(r *http.Request) (string, error) {
	if claims, ok := ClaimsFromContext(r.Context()); ok && claims.Subject != "" {
		return "sub:" + claims.Subject, nil
	}
	return ClientIPKey(r)
}
