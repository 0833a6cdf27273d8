package api

import (
	"net/http"
	"strings"
	"sync"

	"barberq/internal/config"

	"golang.org/x/time/rate"
)

const (
	apiKeyHeaderDefault = "x-api-key"
	permReadQueue       = "read:queue"
	permWriteQueue      = "write:queue"
	permReadCatalog     = "read:catalog"
	permReadExport      = "read:export"
	clientKeyUnknown    = "unknown"
)

// HTTPAuth guards the JSON API with per-client API keys and a per-key
// token-bucket rate limit.
type HTTPAuth struct {
	cfg config.APIConfig

	clientsByAPIKey map[string]config.APIClientKey
	limiters        sync.Map
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}

	return &HTTPAuth{
		cfg:             cfg,
		clientsByAPIKey: m,
	}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Health and liveness probes stay open.
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			if !a.checkAuth(w, r) {
				return
			}
		}
		if !a.checkRateLimit(w, r) {
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *HTTPAuth) checkAuth(w http.ResponseWriter, r *http.Request) bool {
	apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader()))
	if apiKey == "" {
		writeError(w, http.StatusUnauthorized, "missing api key")
		return false
	}

	client, ok := a.clientsByAPIKey[apiKey]
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid api key")
		return false
	}

	if !hasPermission(client, requiredPermission(r)) {
		writeError(w, http.StatusForbidden, "permission denied")
		return false
	}
	return true
}

func (a *HTTPAuth) apiKeyHeader() string {
	h := strings.TrimSpace(a.cfg.Auth.HeaderAPIKey)
	if h == "" {
		return apiKeyHeaderDefault
	}
	return h
}

func hasPermission(client config.APIClientKey, required string) bool {
	if required == "" {
		return true
	}

	// If permissions list is empty, treat as allow-all.
	if len(client.Permissions) == 0 {
		return true
	}

	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return true
		}
	}
	return false
}

func requiredPermission(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/customers"):
		if r.Method == http.MethodGet {
			return permReadQueue
		}
		return permWriteQueue
	case strings.HasPrefix(path, "/api/v1/queue/"), path == "/api/v1/slots":
		return permReadQueue
	case path == "/api/v1/barbers", path == "/api/v1/services":
		return permReadCatalog
	case path == "/api/v1/export":
		return permReadExport
	default:
		return ""
	}
}

func (a *HTTPAuth) checkRateLimit(w http.ResponseWriter, r *http.Request) bool {
	if a.cfg.RateLimit.RPS <= 0 {
		return true
	}

	lim := a.getLimiter(a.clientKey(r))
	if !lim.Allow() {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return false
	}
	return true
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(a.apiKeyHeader())); apiKey != "" {
		return apiKey
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return clientKeyUnknown
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}
