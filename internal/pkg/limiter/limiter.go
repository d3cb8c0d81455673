/*
Package limiter provides token-bucket rate limiting keyed by an arbitrary string.

The session keys it by group name to throttle outgoing messages; the control API
keys it by client IP. Idle buckets (full again) are dropped by Sweep, which a
caller runs periodically through Run or from its own loop.
*/
package limiter

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"hzchat-client/internal/pkg/errs"
	"hzchat-client/internal/pkg/logx"
	"hzchat-client/internal/pkg/resp"
)

// KeyedLimiter holds one rate.Limiter per key.
type KeyedLimiter struct {
	mu     sync.RWMutex
	limits map[string]*rate.Limiter

	// r is the sustained rate in events per second.
	r rate.Limit

	// b is the burst size.
	b int
}

// NewKeyedLimiter creates a limiter allowing r events per second with bursts of b per key.
func NewKeyedLimiter(r rate.Limit, b int) *KeyedLimiter {
	return &KeyedLimiter{
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}
}

// GetLimiter returns the limiter for key, creating it on first use.
func (k *KeyedLimiter) GetLimiter(key string) *rate.Limiter {
	k.mu.RLock()
	limiter, exists := k.limits[key]
	k.mu.RUnlock()

	if !exists {
		k.mu.Lock()
		limiter, exists = k.limits[key]
		if !exists {
			limiter = rate.NewLimiter(k.r, k.b)
			k.limits[key] = limiter
		}
		k.mu.Unlock()
	}

	return limiter
}

// Allow reports whether one event for key may happen now.
func (k *KeyedLimiter) Allow(key string) bool {
	return k.GetLimiter(key).Allow()
}

// Len returns the number of tracked keys.
func (k *KeyedLimiter) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.limits)
}

// Sweep removes limiters whose bucket has refilled to burst and returns how many were removed.
// A full bucket behaves exactly like a new one, so nothing is lost.
func (k *KeyedLimiter) Sweep(now time.Time) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	removed := 0
	for key, limiter := range k.limits {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(k.limits, key)
			removed++
		}
	}

	return removed
}

// Run sweeps every interval until ctx is done.
func (k *KeyedLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if removed := k.Sweep(now); removed > 0 {
				logx.Logger().Debug().
					Int("removed", removed).
					Int("remaining", k.Len()).
					Msg("Rate limiter sweep removed idle keys.")
			}
		}
	}
}

// Middleware rejects requests from a client IP that exceeds the limit with 429.
func (k *KeyedLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if ip == "" {
			ip = "unknown_ip"
		}

		if !k.Allow(ip) {
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}
