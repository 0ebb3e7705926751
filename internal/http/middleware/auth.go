package middleware

import (
	"net/http"

	"filedrop/internal/security"

	"github.com/sirupsen/logrus"
)

// LoadIdentity copies the session's identity, if any, into the request
// context. Handlers read it from there and never from the session directly.
func LoadIdentity(sessions *security.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id, ok := sessions.Current(r); ok {
				r = r.WithContext(security.WithIdentity(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guard admits requests at or above min. Anonymous callers are sent to the
// login page; logged-in callers without enough rights go back to the index.
type Guard struct {
	Sessions *security.SessionManager
	Log      logrus.FieldLogger
}

func (g *Guard) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return g.require(security.AuthenticatedUser, next)
}

func (g *Guard) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return g.require(security.AuthenticatedAdmin, next)
}

func (g *Guard) require(min security.AccessLevel, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		level := security.LevelOf(r.Context())
		if level >= min {
			next(w, r)
			return
		}

		target, msg := "/login", "Please log in to continue."
		if level != security.Anonymous {
			target, msg = "/", "Admin access required."
			id, _ := security.IdentityFrom(r.Context())
			g.Log.WithFields(logrus.Fields{
				"user":   id.Username,
				"access": level.String(),
				"path":   r.URL.Path,
			}).Warn("denied non-admin access")
		}

		if err := g.Sessions.AddFlash(w, r, msg); err != nil {
			g.Log.WithError(err).Error("failed to save flash")
		}
		http.Redirect(w, r, target, http.StatusFound)
	}
}
