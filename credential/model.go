package credential

import "time"

// Credential is the bearer credential stamped onto outgoing requests.
type Credential struct {
	AccessToken string
	PresentAt   time.Time
}

// IsZero reports whether no access token is held.
func (c Credential) IsZero() bool {
	return c.AccessToken == ""
}

// Header renders the Authorization header value for scheme, e.g. "Bearer abc".
// An empty scheme yields the raw token.
func (c Credential) Header(scheme string) string {
	if scheme == "" {
		return c.AccessToken
	}
	return scheme + " " + c.AccessToken
}

// Record is the durable credential pair held by a [Store].
type Record struct {
	AccessToken  string
	RefreshToken string
	PresentAt    time.Time
	ExpiresAt    time.Time
}

// RefreshHandle returns the token presented to the refresh endpoint. APIs that
// do not issue a separate refresh token accept the last access token instead.
func (r *Record) RefreshHandle() string {
	if r == nil {
		return ""
	}
	if r.RefreshToken != "" {
		return r.RefreshToken
	}
	return r.AccessToken
}

// Credential returns the in-memory form of r.
func (r Record) Credential() Credential {
	return Credential{
		AccessToken: r.AccessToken,
		PresentAt:   r.PresentAt,
	}
}

// Expired reports whether r carries a known expiry that is at or before now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}
