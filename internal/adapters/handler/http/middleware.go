package http

import (
	"crypto/subtle"
	"net/http"
)

const AdminPasswordHeader = "X-Admin-Password"

func passwordMatches(given, want string) bool {
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}

// RequireAdmin rejects requests that do not carry the admin password header.
// It is a shared secret check, not a session.
func RequireAdmin(password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !passwordMatches(r.Header.Get(AdminPasswordHeader), password) {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "wrong password"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
