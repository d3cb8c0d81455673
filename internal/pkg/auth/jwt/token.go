/*
Package jwt inspects the bearer token issued by the external identity provider.

The client never holds the provider's signing key, so tokens are parsed without
signature verification. Inspection only decides whether a token is worth
attaching to the connection (well formed, not expired) and which name to show;
the chat server remains the authority that verifies it.
*/
package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

// ExpiryLeeway tolerates small clock differences with the identity provider.
const ExpiryLeeway = 30 * time.Second

// Inspect parses tokenString without verifying its signature and checks its
// time-based claims against now.
func Inspect(tokenString string, now time.Time) (*Claims, error) {
	claims := &Claims{}

	parser := &jwt.Parser{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("malformed token: %w", err)
	}

	unix := now.Unix()

	if claims.ExpiresAt != 0 && !claims.VerifyExpiresAt(unix-int64(ExpiryLeeway/time.Second), true) {
		return nil, fmt.Errorf("token expired at %s", time.Unix(claims.ExpiresAt, 0).UTC().Format(time.RFC3339))
	}

	if claims.NotBefore != 0 && !claims.VerifyNotBefore(unix+int64(ExpiryLeeway/time.Second), true) {
		return nil, fmt.Errorf("token not valid before %s", time.Unix(claims.NotBefore, 0).UTC().Format(time.RFC3339))
	}

	return claims, nil
}

// ExpiresAtTime returns the token's expiry, or the zero time when it has none.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0)
}
