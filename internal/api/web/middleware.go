package web

import (
	"crypto/subtle"
	"net/http"

	"github.com/akarpushin/remote-alarm/internal/logger"
)

// BasicAuth wraps next with an HTTP basic-auth check against the provided
// credentials. When enabled is false the handler is returned unchanged.
func BasicAuth(enabled bool, username, password string, next http.Handler) http.Handler {
	if !enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !credentialsMatch(user, pass, username, password) {
			logger.WarnKV(r.Context(), "Failed auth attempt", "remote_addr", r.RemoteAddr)

			w.Header().Set("WWW-Authenticate", `Basic realm="Alarm Server"`)
			http.Error(w, "Authentication required.", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}

// credentialsMatch compares credentials in constant time.
func credentialsMatch(user, pass, wantUser, wantPass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(wantUser)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(wantPass)) == 1

	return userOK && passOK
}
