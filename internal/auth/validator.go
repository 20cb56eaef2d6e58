package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Classified validation failures. Handlers collapse all of these to a single
// generic 401 response; the distinction exists for logging only.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenIssuer    = errors.New("token issuer mismatch")
	ErrTokenAudience  = errors.New("token audience mismatch")
)

// Validator verifies bearer tokens against the same signing config used for
// issuance. Pure verification, no I/O.
type Validator struct {
	cfg Config
}

// NewValidator validates the signing config and returns a Validator.
func NewValidator(cfg Config) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Validator{cfg: cfg}, nil
}

// Validate parses and verifies a token string. The signature is checked before
// any claim is trusted; issuer and audience must match the configured values
// and the expiry is enforced with zero clock-skew tolerance.
func (v *Validator) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(v.cfg.Issuer),
		jwt.WithAudience(v.cfg.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid {
		return nil, ErrTokenSignature
	}
	return claims, nil
}

func (v *Validator) keyFunc(token *jwt.Token) (any, error) {
	if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
		return nil, ErrTokenSignature
	}
	return []byte(v.cfg.Secret), nil
}

// classify maps golang-jwt's joined parse errors onto the sentinel taxonomy.
// Precedence mirrors verification order: structural damage first, then
// signature, then issuer/audience, then expiry.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrTokenIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrTokenAudience
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return ErrTokenExpired
	default:
		return ErrTokenMalformed
	}
}
