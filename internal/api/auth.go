package api

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/joescharf/crv/internal/config"
)

// unauthenticated paths bypass the API key check.
var unauthenticated = map[string]bool{
	"/api/":       true,
	"/api/health": true,
}

func newAuthMiddleware(settings config.AuthSettings) (func(http.Handler) http.Handler, error) {
	switch settings.Type {
	case config.AuthTypeNone, "":
		return func(next http.Handler) http.Handler { return next }, nil
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		return apiKeyMiddleware(settings.APIKeys), nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}
}

func apiKeyMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if unauthenticated[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			key := r.Header.Get("X-API-Key")
			for _, valid := range apiKeys {
				if key != "" && subtle.ConstantTimeCompare([]byte(key), []byte(valid)) == 1 {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusUnauthorized, "Unauthorized")
		})
	}
}
