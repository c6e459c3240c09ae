package sessions

import "time"

// Session binds an opaque identifier to a signed-in user and the delegated
// credentials obtained for them at sign-in. The identifier doubles as the
// cookie value and must be treated as a secret.
type Session struct {
	ID           string    // Opaque identifier (UUID v4)
	Email        string    // Identity claims captured at creation, never updated
	Name         string
	AccessToken  string    // Bearer credential for provider APIs
	RefreshToken string    // Empty when the provider issued none
	ExpiresOn    time.Time // Access token expiry (UTC, millisecond precision)
	CreatedAt    time.Time
}

// IsExpired reports whether the access token is no longer usable at now. A
// token expiring exactly at now counts as expired.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresOn)
}

// Profile is the identity returned by the provider's profile endpoint.
type Profile struct {
	Email string
	Name  string
}

// Tokens is the result of a code exchange or a refresh.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresOn    time.Time
}

// NormaliseTime drops the monotonic reading and sub-millisecond precision so
// that values survive a round trip through every store unchanged.
func NormaliseTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
