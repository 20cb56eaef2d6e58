package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload: registered claims (sub, jti, iss, aud, iat,
// exp) plus the account snapshot taken at issuance. Roles embedded here are
// fixed for the token's lifetime; role changes made after issuance do not
// affect outstanding tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email    string   `json:"email,omitempty"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// AccountID returns the subject claim, the id of the authenticated account.
func (c *Claims) AccountID() string {
	return c.Subject
}
