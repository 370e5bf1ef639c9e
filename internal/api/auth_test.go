package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"prokat/internal/config"
	"prokat/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authedConfig(keys []config.APIClientKey, rl config.APIRateLimitConfig) config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys:      keys,
		},
		RateLimit: rl,
	}
}

func wrapOK(auth *Auth) http.Handler {
	return auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func doRequest(handler http.Handler, path, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:54321"
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

func TestAuth_RequiresAPIKey(t *testing.T) {
	cfg := authedConfig([]config.APIClientKey{{Key: "secret", Name: "ops"}}, config.APIRateLimitConfig{})
	handler := wrapOK(NewAuth(cfg, nil))

	assert.Equal(t, http.StatusUnauthorized, doRequest(handler, "/api/v1/bookings/1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(handler, "/api/v1/bookings/1", "wrong").Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/bookings/1", "secret").Code)
}

func TestAuth_Permissions(t *testing.T) {
	cfg := authedConfig([]config.APIClientKey{
		{Key: "reader", Name: "reader", Permissions: []string{"read:bookings", "read:assets"}},
		{Key: "admin", Name: "admin"},
	}, config.APIRateLimitConfig{})
	auth := NewAuth(cfg, nil)

	handler := wrapOK(auth)

	// Read within the granted scope.
	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/bookings/1", "reader").Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/assets/1", "reader").Code)

	// Ledger reads are outside the reader's scope.
	assert.Equal(t, http.StatusForbidden, doRequest(handler, "/api/v1/wallets/1/balance", "reader").Code)

	// Writes need the write permission.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
	req.Header.Set("x-api-key", "reader")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusForbidden, recorder.Code)

	// An empty permission list is allow-all.
	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/wallets/1/balance", "admin").Code)
}

func TestAuth_RequiredPermission(t *testing.T) {
	get := func(path string) *http.Request { return httptest.NewRequest(http.MethodGet, path, nil) }
	post := func(path string) *http.Request { return httptest.NewRequest(http.MethodPost, path, nil) }

	assert.Equal(t, "read:bookings", requiredPermission(get("/api/v1/bookings/5")))
	assert.Equal(t, "read:bookings", requiredPermission(get("/api/v1/renters/2/bookings")))
	assert.Equal(t, "write:bookings", requiredPermission(post("/api/v1/bookings")))
	assert.Equal(t, "read:assets", requiredPermission(get("/api/v1/assets/1/calendar")))
	assert.Equal(t, "write:assets", requiredPermission(post("/api/v1/assets/1/transition")))
	assert.Equal(t, "write:ledger", requiredPermission(post("/api/v1/wallets/1/payouts")))
	assert.Equal(t, "write:users", requiredPermission(post("/api/v1/users")))
	assert.Equal(t, "", requiredPermission(get("/healthz")))
}

func TestAuth_WindowedRateLimit(t *testing.T) {
	cfg := authedConfig(
		[]config.APIClientKey{{Key: "secret", Name: "ops"}},
		config.APIRateLimitConfig{Requests: 2, WindowS: 60},
	)
	handler := wrapOK(NewAuth(cfg, repository.NewMemoryCounterStore()))

	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/bookings/1", "secret").Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/bookings/1", "secret").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "/api/v1/bookings/1", "secret").Code)
}

func TestAuth_RateLimitIsPerKey(t *testing.T) {
	cfg := authedConfig(
		[]config.APIClientKey{{Key: "alpha"}, {Key: "beta"}},
		config.APIRateLimitConfig{Requests: 1, WindowS: 60},
	)
	handler := wrapOK(NewAuth(cfg, repository.NewMemoryCounterStore()))

	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/bookings/1", "alpha").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "/api/v1/bookings/1", "alpha").Code)
	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/bookings/1", "beta").Code)
}

type brokenCounterStore struct{}

func (brokenCounterStore) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, errors.New("store is down")
}

func TestAuth_FailsOpenOnCounterStoreError(t *testing.T) {
	cfg := authedConfig(
		[]config.APIClientKey{{Key: "secret"}},
		config.APIRateLimitConfig{Requests: 1, WindowS: 60},
	)
	handler := wrapOK(NewAuth(cfg, brokenCounterStore{}))

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/bookings/1", "secret").Code)
	}
}

func TestAuth_LocalTokenBucket(t *testing.T) {
	cfg := authedConfig(
		[]config.APIClientKey{{Key: "secret"}},
		config.APIRateLimitConfig{RPS: 0.001, Burst: 1},
	)
	handler := wrapOK(NewAuth(cfg, nil))

	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/bookings/1", "secret").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(handler, "/api/v1/bookings/1", "secret").Code)
}

func TestAuth_DisabledAuthSkipsKeyCheck(t *testing.T) {
	cfg := config.APIConfig{Enabled: true}
	handler := wrapOK(NewAuth(cfg, nil))

	assert.Equal(t, http.StatusOK, doRequest(handler, "/api/v1/bookings/1", "").Code)
}
