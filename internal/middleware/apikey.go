package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/kie/assets/internal/response"
	"github.com/kie/assets/internal/upload"
)

// RequireAPIKey returns middleware that admits a request only when header
// carries exactly secret. It runs before any handler touches the body.
// An empty secret rejects everything.
func RequireAPIKey(header, secret string) func(http.Handler) http.Handler {
	want := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if len(want) == 0 || got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				response.Kinded(w, upload.KindUnauthorized.Status(), string(upload.KindUnauthorized), "Unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
