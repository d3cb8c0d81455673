package jwt

import "github.com/golang-jwt/jwt"

// Claims is the subset of the identity provider's token the client reads.
type Claims struct {
	// StandardClaims carries exp, iat, nbf and sub.
	jwt.StandardClaims

	// Name is the display name shown as "Signed in as <Name>".
	Name string `json:"name,omitempty"`

	// Email is used as the display name when Name is empty.
	Email string `json:"email,omitempty"`
}

// DisplayName returns the best available human name for the token holder.
func (c *Claims) DisplayName() string {
	switch {
	case c.Name != "":
		return c.Name
	case c.Email != "":
		return c.Email
	default:
		return c.Subject
	}
}
