package auth

import (
	"net/http"

	"github.com/antonlindstrom/pgstore"
	"github.com/gorilla/sessions"
)

// OAuthSessionName is the short-lived session used to carry the OAuth
// state value across the Google redirect hop.
const OAuthSessionName = "oauth-state"

var store *pgstore.PGStore

// InitStore creates the Postgres-backed session store used by the OAuth
// flow. Login itself is stateless (bearer tokens); only the redirect
// handshake needs server-side state.
func InitStore(connStr string, key []byte) error {
	s, err := pgstore.NewPGStore(connStr, key)
	if err != nil {
		return err
	}
	s.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	store = s
	return nil
}

// OAuthSession returns the state session for the request. InitStore must
// have been called first.
func OAuthSession(r *http.Request) (*sessions.Session, error) {
	return store.Get(r, OAuthSessionName)
}
