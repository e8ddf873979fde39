package handler

import (
	"net/http"

	"github.com/gorilla/sessions"
)

// NewSessionStore holds the short-lived OAuth state between the redirect to
// Google and its callback.
func NewSessionStore(secret []byte, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}
