package api

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"prokat/internal/config"
	"prokat/internal/domain"

	"golang.org/x/time/rate"
)

// Auth provides API-key auth and per-key rate limiting. Two limits
// stack: a local token bucket smooths bursts inside one instance, and
// the shared counter store enforces the windowed quota across all
// instances.
type Auth struct {
	cfg      config.APIConfig
	clients  []config.APIClientKey
	counters domain.CounterStore
	limiters sync.Map // map[string]*rate.Limiter
}

func NewAuth(cfg config.APIConfig, counters domain.CounterStore) *Auth {
	return &Auth{cfg: cfg, clients: cfg.Auth.APIKeys, counters: counters}
}

func (a *Auth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if err == errPermissionDenied {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

var errPermissionDenied = fmt.Errorf("permission denied")

func (a *Auth) checkAuth(r *http.Request) error {
	apiKey := strings.TrimSpace(r.Header.Get(a.headerName()))
	if apiKey == "" {
		return fmt.Errorf("missing api key header")
	}

	client, ok := a.lookup(apiKey)
	if !ok {
		return fmt.Errorf("invalid api key")
	}

	return a.checkPermissions(client, r)
}

// lookup compares the presented key against every configured key in
// constant time.
func (a *Auth) lookup(apiKey string) (config.APIClientKey, bool) {
	var found config.APIClientKey
	ok := false
	for _, client := range a.clients {
		if subtle.ConstantTimeCompare([]byte(client.Key), []byte(apiKey)) == 1 {
			found = client
			ok = true
		}
	}
	return found, ok
}

func (a *Auth) checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermission(r)
	if required == "" {
		return nil
	}
	// Empty permissions list means allow-all.
	if len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	write := r.Method != http.MethodGet

	switch {
	case strings.HasPrefix(path, "/api/v1/bookings"), strings.HasPrefix(path, "/api/v1/renters"):
		if write {
			return "write:bookings"
		}
		return "read:bookings"
	case strings.HasPrefix(path, "/api/v1/assets"):
		if write {
			return "write:assets"
		}
		return "read:assets"
	case strings.HasPrefix(path, "/api/v1/wallets"):
		if write {
			return "write:ledger"
		}
		return "read:ledger"
	case strings.HasPrefix(path, "/api/v1/users"):
		return "write:users"
	default:
		return ""
	}
}

func (a *Auth) checkRateLimit(r *http.Request) error {
	key := a.clientKey(r)

	if a.cfg.RateLimit.RPS > 0 {
		if !a.getLimiter(key).Allow() {
			return fmt.Errorf("rate limit exceeded")
		}
	}

	if a.counters != nil && a.cfg.RateLimit.Requests > 0 {
		window := time.Duration(a.cfg.RateLimit.WindowS) * time.Second
		allowed, err := a.counters.Allow(r.Context(), key, a.cfg.RateLimit.Requests, window)
		if err != nil {
			// Fail open: a broken counter store must not take the API down.
			return nil
		}
		if !allowed {
			return fmt.Errorf("rate limit exceeded")
		}
	}

	return nil
}

func (a *Auth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.headerName())); apiKey != "" {
		return apiKey
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *Auth) headerName() string {
	header := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if header == "" {
		header = "x-api-key"
	}
	return header
}

func (a *Auth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}
