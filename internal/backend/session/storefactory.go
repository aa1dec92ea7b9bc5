package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

// Options configures the session cookie and its server-side lifetime.
type Options struct {
	MaxAge int
	Secure bool
}

func NewStore(ctx context.Context, storeType, connectionString string, opts Options, keyPairs ...[]byte) (*Store, error) {
	maxAge := opts.MaxAge
	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}
	cookieOptions := &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	switch storeType {
	case "sqlite", "":
		return NewSQLiteStore(connectionString, cookieOptions, keyPairs...)
	case "redis":
		return NewRedisStore(ctx, connectionString, cookieOptions, keyPairs...)
	default:
		return nil, fmt.Errorf("unsupported session store: %s", storeType)
	}
}
