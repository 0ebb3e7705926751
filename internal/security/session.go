package security

import (
	"fmt"
	"net/http"

	"filedrop/internal/models"

	"github.com/gorilla/sessions"
)

const (
	sessionName = "filedrop_session"
	keyUsername = "username"
	keyRole     = "role"
	maxAge      = 7 * 24 * 60 * 60
)

// SessionManager keeps the logged-in identity and flash messages in a signed
// cookie.
type SessionManager struct {
	store *sessions.CookieStore
}

func NewSessionManager(secret string, secure bool) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// Establish records id as the session's principal, replacing any previous one.
func (m *SessionManager) Establish(w http.ResponseWriter, r *http.Request, id models.Identity) error {
	sess := m.session(r)
	sess.Values[keyUsername] = id.Username
	sess.Values[keyRole] = string(id.Role)
	return sess.Save(r, w)
}

// Current returns the identity stored in the request's session, if any.
func (m *SessionManager) Current(r *http.Request) (models.Identity, bool) {
	sess := m.session(r)
	username, _ := sess.Values[keyUsername].(string)
	role, _ := sess.Values[keyRole].(string)
	if username == "" || !models.Role(role).Valid() {
		return models.Identity{}, false
	}
	return models.Identity{Username: username, Role: models.Role(role)}, true
}

// Clear drops the identity but keeps the cookie alive so that a flash set
// afterwards still reaches the next page.
func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	sess := m.session(r)
	delete(sess.Values, keyUsername)
	delete(sess.Values, keyRole)
	return sess.Save(r, w)
}

func (m *SessionManager) AddFlash(w http.ResponseWriter, r *http.Request, msg string) error {
	sess := m.session(r)
	sess.AddFlash(msg)
	return sess.Save(r, w)
}

// Flashes pops every pending flash message.
func (m *SessionManager) Flashes(w http.ResponseWriter, r *http.Request) ([]string, error) {
	sess := m.session(r)
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil, nil
	}
	msgs := make([]string, 0, len(raw))
	for _, f := range raw {
		msgs = append(msgs, fmt.Sprint(f))
	}
	return msgs, sess.Save(r, w)
}

// session never fails: a cookie that does not verify (rotated secret,
// tampering) yields a fresh empty session.
func (m *SessionManager) session(r *http.Request) *sessions.Session {
	sess, err := m.store.Get(r, sessionName)
	if err != nil {
		sess, _ = m.store.New(r, sessionName)
	}
	return sess
}
