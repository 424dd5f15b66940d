package ratelimit

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/vardo/vardo-web/internal/httpmw"
)

const deniedBody = `{"error":"too many requests"}`

// GuardOptions configures Guard. Only Limiter is required.
type GuardOptions struct {
	Limiter Keyed

	// Scope separates budgets of different actions for the same visitor.
	Scope string

	// Key derives the limiter key; defaults to the client IP resolved by
	// httpmw.ClientIP.
	Key func(r *http.Request) string

	// RetryAfter is advertised on denial; defaults to 30s.
	RetryAfter time.Duration

	OnDenied func(key string)
	OnError  func(ctx context.Context, key string, err error)
}

// Guard rejects requests over the keyed limit with 429. Limiter errors
// let the request through and are reported to OnError.
func Guard(opts GuardOptions) func(http.Handler) http.Handler {
	keyFn := opts.Key
	if keyFn == nil {
		keyFn = func(r *http.Request) string { return httpmw.ClientIPFromContext(r.Context()) }
	}
	retry := opts.RetryAfter
	if retry <= 0 {
		retry = 30 * time.Second
	}
	retryAfter := strconv.Itoa(int(math.Ceil(retry.Seconds())))

	return func(next http.Handler) http.Handler {
		if opts.Limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFn(r)
			if opts.Scope != "" {
				key = opts.Scope + "|" + key
			}
			ok, err := opts.Limiter.Allow(r.Context(), key)
			if err != nil {
				if opts.OnError != nil {
					opts.OnError(r.Context(), key, err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				if opts.OnDenied != nil {
					opts.OnDenied(key)
				}
				writeDenied(w, retryAfter)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Limits are not disclosed in the response body.
func writeDenied(w http.ResponseWriter, retryAfter string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", retryAfter)
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(deniedBody))
}
