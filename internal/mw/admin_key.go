package mw

import (
	"crypto/subtle"
	"net/http"

	"github.com/3xpluto/second-service/internal/httpx"
)

const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey hides admin endpoints entirely when no key is configured.
func RequireAdminKey(adminKey string, next http.Handler) http.Handler {
	if adminKey == "" {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpx.WriteError(w, http.StatusNotFound, "not_found")
		})
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get(AdminKeyHeader)), []byte(adminKey)) != 1 {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
