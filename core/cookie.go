package core

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

// sessionOptions are the attributes every session cookie carries.
func sessionOptions(cfg Config) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   int(SessionLifetime / time.Second),
		Secure:   cfg.CookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

// SetSessionCookie delivers sess to the client, expiring with the token.
func SetSessionCookie(w http.ResponseWriter, cfg Config, sess Session) {
	opts := sessionOptions(cfg)
	if remaining := int(time.Until(sess.ExpiresAt) / time.Second); remaining > 0 && remaining < opts.MaxAge {
		opts.MaxAge = remaining
	}
	http.SetCookie(w, sessions.NewCookie(SessionCookieName, sess.Token, opts))
}

// ClearSessionCookie instructs the client to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter, cfg Config) {
	opts := sessionOptions(cfg)
	opts.MaxAge = -1
	http.SetCookie(w, sessions.NewCookie(SessionCookieName, "", opts))
}
