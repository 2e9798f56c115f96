// Package middleware guards the admin settings channel.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AdminToken checks bearer tokens against a bcrypt hash or a plain token.
// With neither configured every request is refused.
type AdminToken struct {
	Token string
	Hash  string
}

func (a AdminToken) Configured() bool { return a.Token != "" || a.Hash != "" }

func (a AdminToken) Verify(presented string) bool {
	if presented == "" {
		return false
	}
	if a.Hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.Hash), []byte(presented)) == nil
	}
	if a.Token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.Token), []byte(presented)) == 1
}

// RequireAdmin answers 401 unless the request carries a matching bearer.
func RequireAdmin(a AdminToken, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			if !a.Verify(strings.TrimPrefix(h, "Bearer ")) {
				log.WithField("remote", r.RemoteAddr).Warn("admin token mismatch")
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
