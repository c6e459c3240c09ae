package server

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"
)

const (
	// SessionCookieName holds the opaque session id and nothing else
	SessionCookieName = "sessionId"
	// StateCookieName carries the OAuth state between login and callback
	StateCookieName = "oauthState"

	stateCookieMaxAge = 10 * time.Minute
)

// CookieCodec writes and reads the session and OAuth state cookies. Every
// cookie it sets is HttpOnly on path /. Production cookies are Secure with
// SameSite=None so a front end on another site can send them; elsewhere they
// are SameSite=Lax and not Secure.
type CookieCodec struct {
	maxAge   time.Duration
	secure   bool
	sameSite http.SameSite
}

func NewCookieCodec(production bool, maxAge time.Duration) CookieCodec {
	c := CookieCodec{maxAge: maxAge, sameSite: http.SameSiteLaxMode}
	if production {
		c.secure = true
		c.sameSite = http.SameSiteNoneMode
	}
	return c
}

func (c CookieCodec) SetSession(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, c.cookie(SessionCookieName, sessionID, int(c.maxAge.Seconds())))
}

func (c CookieCodec) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(SessionCookieName, "", -1))
}

// SessionID returns the session cookie value, or "" when there is none.
func (c CookieCodec) SessionID(r *http.Request) string {
	return cookieValue(r, SessionCookieName)
}

func (c CookieCodec) SetState(w http.ResponseWriter, state string) {
	http.SetCookie(w, c.cookie(StateCookieName, state, int(stateCookieMaxAge.Seconds())))
}

func (c CookieCodec) ClearState(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(StateCookieName, "", -1))
}

func (c CookieCodec) State(r *http.Request) string {
	return cookieValue(r, StateCookieName)
}

func (c CookieCodec) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
		MaxAge:   maxAge,
	}
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// generateRandomString creates a random base64url string
func generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
