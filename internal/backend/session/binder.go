package session

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

const (
	DefaultCookieName = "cattongue_session"
	bicmidKey         = "bicmid"
)

var ErrUnbound = errors.New("session has no bound bicmid")

// Bind applies candidate to a loaded session. An unbound session binds it and
// accepts; a bound session accepts only the bicmid it was bound to and is
// never rebound. changed reports whether the session must be saved.
func Bind(session *sessions.Session, candidate string) (accepted bool, changed bool) {
	if bound, ok := session.Values[bicmidKey].(string); ok && bound != "" {
		return bound == candidate, false
	}
	session.Values[bicmidKey] = candidate
	return true, true
}

// Bicmid returns the bicmid bound to session or ErrUnbound.
func Bicmid(session *sessions.Session) (string, error) {
	bound, ok := session.Values[bicmidKey].(string)
	if !ok || bound == "" {
		return "", ErrUnbound
	}
	return bound, nil
}

type Binder struct {
	store      sessions.Store
	cookieName string
}

func NewBinder(store sessions.Store, cookieName string) *Binder {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Binder{
		store:      store,
		cookieName: cookieName,
	}
}

// CheckSession binds candidate to the request's session on first use and
// reports whether candidate matches the bound bicmid afterwards.
func (b *Binder) CheckSession(r *http.Request, w http.ResponseWriter, candidate string) (bool, error) {
	session, err := b.load(r)
	if err != nil {
		return false, err
	}

	accepted, changed := Bind(session, candidate)
	if !changed {
		if !accepted {
			slog.Debug("bicmid mismatch for session", "session_id", session.ID)
		}
		return accepted, nil
	}

	slog.Debug("binding bicmid to session", "session_id", session.ID)
	if err := session.Save(r, w); err != nil {
		return false, fmt.Errorf("failed to save session: %w", err)
	}
	return true, nil
}

// Bicmid returns the bicmid bound to the request's session.
func (b *Binder) Bicmid(r *http.Request) (string, error) {
	session, err := b.load(r)
	if err != nil {
		return "", err
	}
	return Bicmid(session)
}

func (b *Binder) load(r *http.Request) (*sessions.Session, error) {
	session, err := b.store.Get(r, b.cookieName)
	if err == nil {
		return session, nil
	}
	if session == nil || !errors.Is(err, ErrInvalidCookie) {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	// a stale or tampered cookie starts over as an unbound session
	slog.Warn("discarding unreadable session cookie", "error", err)
	session.ID = ""
	session.IsNew = true
	session.Values = make(map[interface{}]interface{})
	return session, nil
}
