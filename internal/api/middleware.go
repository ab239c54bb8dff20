package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"
)

// AdminAPIKey guards management endpoints with a static key. Token based
// authentication for storefront users is handled by an external service.
func AdminAPIKey(next http.Handler, key string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			WriteError(w, NewError("UNAUTHORIZED", http.StatusUnauthorized, "invalid api key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.InfoContext(r.Context(), "request handled",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
