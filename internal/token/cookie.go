package token

import (
	"net/http"
	"strings"
	"time"
)

// CookieName is the session cookie set on successful authentication.
const CookieName = "token"

// SessionCookie builds the delivery cookie for a freshly issued token:
// HTTP-only, SameSite=Lax, whole-application path, Secure when the service
// runs in production.
func SessionCookie(tok string, ttl time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie builds the expired cookie used by logout. Attributes must
// match SessionCookie or browsers will keep the original.
func ClearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// FromRequest extracts the session token, trying the cookie first and then
// an Authorization bearer header for non-cookie clients.
func FromRequest(r *http.Request) (string, bool) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return c.Value, true
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, rest, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || rest == "" {
		return "", false
	}
	return rest, true
}
