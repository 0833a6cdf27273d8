package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"barberq/internal/config"

	"github.com/stretchr/testify/assert"
)

func authedConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: "desk-key", Name: "front-desk", Permissions: []string{"read:queue", "write:queue"}},
				{Key: "kiosk-key", Name: "kiosk", Permissions: []string{"read:queue"}},
				{Key: "admin-key", Name: "admin"},
			},
		},
		RateLimit: config.APIRateLimitConfig{RPS: 100, Burst: 200},
	}
}

func doRequest(t *testing.T, auth *HTTPAuth, method, path, apiKey string) int {
	t.Helper()

	handler := auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, path, nil)
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestHTTPAuth(t *testing.T) {
	auth := NewHTTPAuth(authedConfig())

	t.Run("Success", func(t *testing.T) {
		code := doRequest(t, auth, http.MethodGet, "/api/v1/queue/barber-1", "desk-key")
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("MissingKey", func(t *testing.T) {
		code := doRequest(t, auth, http.MethodGet, "/api/v1/queue/barber-1", "")
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("InvalidKey", func(t *testing.T) {
		code := doRequest(t, auth, http.MethodGet, "/api/v1/queue/barber-1", "wrong")
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("PermissionDenied", func(t *testing.T) {
		code := doRequest(t, auth, http.MethodPost, "/api/v1/customers", "kiosk-key")
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("WritePermitted", func(t *testing.T) {
		code := doRequest(t, auth, http.MethodPost, "/api/v1/customers", "desk-key")
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("EmptyPermissionsAllowAll", func(t *testing.T) {
		code := doRequest(t, auth, http.MethodGet, "/api/v1/export", "admin-key")
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("HealthzOpen", func(t *testing.T) {
		code := doRequest(t, auth, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, code)
	})
}

func TestHTTPAuthDisabled(t *testing.T) {
	cfg := authedConfig()
	cfg.Auth.Enabled = false
	auth := NewHTTPAuth(cfg)

	code := doRequest(t, auth, http.MethodGet, "/api/v1/queue/barber-1", "")
	assert.Equal(t, http.StatusOK, code)
}

func TestHTTPAuthRateLimit(t *testing.T) {
	cfg := authedConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 2}
	auth := NewHTTPAuth(cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		codes = append(codes, doRequest(t, auth, http.MethodGet, "/api/v1/queue/barber-1", "desk-key"))
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Equal(t, http.StatusOK, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}

func TestRequiredPermission(t *testing.T) {
	cases := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/api/v1/slots", permReadQueue},
		{http.MethodGet, "/api/v1/queue/barber-1", permReadQueue},
		{http.MethodPost, "/api/v1/customers", permWriteQueue},
		{http.MethodPatch, "/api/v1/customers/abc/status", permWriteQueue},
		{http.MethodDelete, "/api/v1/customers/abc", permWriteQueue},
		{http.MethodGet, "/api/v1/barbers", permReadCatalog},
		{http.MethodGet, "/api/v1/services", permReadCatalog},
		{http.MethodGet, "/api/v1/export", permReadExport},
		{http.MethodGet, "/healthz", ""},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		assert.Equal(t, tc.want, requiredPermission(req), "%s %s", tc.method, tc.path)
	}
}
