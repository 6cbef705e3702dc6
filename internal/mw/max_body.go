package mw

import (
	"net/http"

	"github.com/3xpluto/second-service/internal/httpx"
)

// MaxBodyBytes caps inbound bodies. The categories route takes no body, so
// anything large is rejected before it reaches a handler.
func MaxBodyBytes(limit int64, next http.Handler) http.Handler {
	if limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > limit {
			httpx.WriteError(w, http.StatusRequestEntityTooLarge, "request_too_large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}
