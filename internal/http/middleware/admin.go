package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/tuanvumaihuynh/event-pos/internal/apperr"
)

const bearerPrefix = "Bearer "

// RequireAdmin guards destructive routes with a shared secret sent as a
// bearer token. An empty secret disables the routes entirely.
func RequireAdmin(secret string, onError func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				onError(w, r, apperr.AdminDisabledErr)
				return
			}

			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, bearerPrefix) {
				onError(w, r, apperr.UnauthorizedErr)
				return
			}

			token := strings.TrimPrefix(auth, bearerPrefix)
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				onError(w, r, apperr.UnauthorizedErr)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
