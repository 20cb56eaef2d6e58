package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

// Issuer mints signed bearer tokens. It holds no state beyond the signing
// config, so issuance is safe to call from concurrent requests.
type Issuer struct {
	cfg Config
}

// NewIssuer validates the signing config and returns an Issuer. An invalid
// config (missing secret) is surfaced here so callers can treat it as a fatal
// startup condition.
func NewIssuer(cfg Config) (*Issuer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Issuer{cfg: cfg}, nil
}

// Issue builds and signs a token for the given account snapshot. Each call
// gets a fresh random jti.
func (i *Issuer) Issue(accountID, email, username string, roles []string) (string, *Claims, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        utilities.NewKSUID(),
			Subject:   accountID,
			Issuer:    i.cfg.Issuer,
			Audience:  jwt.ClaimStrings{i.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.Lifetime)),
		},
		Email:    email,
		Username: username,
		Roles:    roles,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return signed, claims, nil
}

// Lifetime reports the configured token validity duration.
func (i *Issuer) Lifetime() time.Duration {
	return i.cfg.Lifetime
}
