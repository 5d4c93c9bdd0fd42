package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrOpaqueToken is returned by [Inspect] for tokens that are not parseable JWTs.
var ErrOpaqueToken = errors.New("opaque token")

// Claims is the subset of registered claims the client cares about.
type Claims struct {
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Inspect reads registered claims from token without verifying its signature.
func Inspect(token string) (Claims, error) {
	if token == "" {
		return Claims{}, ErrOpaqueToken
	}
	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &registered); err != nil {
		return Claims{}, ErrOpaqueToken
	}

	var out Claims
	out.Subject = registered.Subject
	if registered.IssuedAt != nil {
		out.IssuedAt = registered.IssuedAt.Time
	}
	if registered.ExpiresAt != nil {
		out.ExpiresAt = registered.ExpiresAt.Time
	}
	return out, nil
}
