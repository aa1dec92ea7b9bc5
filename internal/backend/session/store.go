// Package session keeps per-browser sessions server-side and binds each of
// them to the bicmid that owns the saved cats.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
)

const DefaultMaxAge = 86400 * 30

// ErrInvalidCookie marks a cookie or stored payload that fails signature or decoding checks.
var ErrInvalidCookie = errors.New("invalid session cookie")

// persister stores encoded session payloads by session id.
type persister interface {
	load(ctx context.Context, id string) (data string, found bool, err error)
	save(ctx context.Context, id string, data string, ttl time.Duration) error
	delete(ctx context.Context, id string) error
	close() error
}

// Store implements sessions.Store. The cookie carries only the signed session
// id; values live in the backing persister.
type Store struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options

	backend persister
}

var _ sessions.Store = (*Store)(nil)

func newStore(backend persister, options *sessions.Options, keyPairs ...[]byte) *Store {
	store := &Store{
		Codecs:  securecookie.CodecsFromPairs(keyPairs...),
		Options: options,
		backend: backend,
	}
	store.MaxAge(options.MaxAge)
	return store
}

// MaxAge sets the lifetime of the cookie, of the stored payload and of the codecs' signatures.
func (s *Store) MaxAge(age int) {
	s.Options.MaxAge = age
	for _, codec := range s.Codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(age)
			// payloads are kept server-side, the cookie size limit does not apply to them
			sc.MaxLength(0)
		}
	}
}

func (s *Store) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New returns the session referenced by the request cookie, or a fresh one
// when the cookie is absent, invalid or points to an expired session.
func (s *Store) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	options := *s.Options
	session.Options = &options
	session.IsNew = true

	cookie, err := r.Cookie(name)
	if err != nil {
		return session, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, cookie.Value, &id, s.Codecs...); err != nil {
		return session, fmt.Errorf("%w: %w", ErrInvalidCookie, err)
	}

	data, found, err := s.backend.load(r.Context(), id)
	if err != nil {
		return session, fmt.Errorf("failed to load session: %w", err)
	}
	if !found {
		return session, nil
	}
	if err := securecookie.DecodeMulti(name, data, &session.Values, s.Codecs...); err != nil {
		session.Values = make(map[interface{}]interface{})
		return session, fmt.Errorf("%w: %w", ErrInvalidCookie, err)
	}

	session.ID = id
	session.IsNew = false
	return session, nil
}

func (s *Store) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	if session.Options.MaxAge < 0 {
		if session.ID != "" {
			if err := s.backend.delete(r.Context(), session.ID); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	data, err := securecookie.EncodeMulti(session.Name(), session.Values, s.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session values: %w", err)
	}
	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if err := s.backend.save(r.Context(), session.ID, data, ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	encoded, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encoded, session.Options))
	return nil
}

func (s *Store) Close() error {
	return s.backend.close()
}

// DeleteExpired removes expired sessions when the backend does not expire them on its own.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	sweeper, ok := s.backend.(interface {
		deleteExpired(ctx context.Context) (int64, error)
	})
	if !ok {
		return 0, nil
	}
	return sweeper.deleteExpired(ctx)
}

// RunExpiry calls DeleteExpired every interval until ctx is done.
func (s *Store) RunExpiry(ctx context.Context, interval time.Duration, onError func(error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.DeleteExpired(ctx); err != nil && !errors.Is(err, context.Canceled) && onError != nil {
				onError(err)
			}
		}
	}
}
