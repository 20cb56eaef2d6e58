package auth

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the process-wide token signing settings. It is loaded once at
// startup and passed into Issuer and Validator; nothing reads signing state
// ambiently at call time.
type Config struct {
	// Secret is the HMAC-SHA256 signing key. Required.
	Secret string
	// Issuer is the expected "iss" claim.
	Issuer string
	// Audience is the expected "aud" claim.
	Audience string
	// Lifetime is how long issued tokens stay valid.
	Lifetime time.Duration
}

// ConfigFromEnv reads signing config from environment variables.
// AUTH_SECRET_KEY has no default; Validate rejects an empty secret so a
// misconfigured process fails at startup, not on the first login.
func ConfigFromEnv() Config {
	issuer := os.Getenv("AUTH_ISSUER")
	if issuer == "" {
		issuer = "localhost"
	}
	audience := os.Getenv("AUTH_AUDIENCE")
	if audience == "" {
		audience = "localhost"
	}
	hours := 2
	if env := os.Getenv("AUTH_TOKEN_HOURS"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			hours = n
		}
	}
	return Config{
		Secret:   os.Getenv("AUTH_SECRET_KEY"),
		Issuer:   issuer,
		Audience: audience,
		Lifetime: time.Duration(hours) * time.Hour,
	}
}

// Validate checks that the config is usable for signing and verification.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Secret) == "" {
		return errors.New("auth: signing secret is required (AUTH_SECRET_KEY)")
	}
	if c.Lifetime <= 0 {
		return errors.New("auth: token lifetime must be positive")
	}
	return nil
}
