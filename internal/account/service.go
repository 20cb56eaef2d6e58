package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/account/entity"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/account/repo"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

// sentinel errors for common failure modes
var (
	ErrValidation     = errors.New("invalid input")
	ErrDuplicateEmail = repo.ErrDuplicateEmail
	ErrBadCredentials = errors.New("invalid credentials")
	ErrNotFound       = errors.New("account not found")
)

// storeTimeout bounds every repo call so a non-responding store surfaces as an
// error instead of hanging the request.
const storeTimeout = 5 * time.Second

// Service orchestrates registration, login, password change, and profile
// lookup. Credentials live only in the repo; tokens are minted by the issuer
// and never persisted.
type Service struct {
	repo   *repo.AccountRepo
	hasher PasswordHasher
	issuer *auth.Issuer
}

func NewService(db *sqlx.DB, r *repo.AccountRepo, hasher PasswordHasher, issuer *auth.Issuer) *Service {
	if r == nil {
		r = repo.NewAccountRepo(db)
	}
	if hasher == nil {
		hasher = BcryptHasher{Cost: 12}
	}
	return &Service{repo: r, hasher: hasher, issuer: issuer}
}

// Register validates the input shape, hashes the password, and inserts the
// account. Duplicate emails surface as ErrDuplicateEmail straight from the
// storage constraint.
func (s *Service) Register(ctx context.Context, email, username, password string) (*entity.Account, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		// default to the local part of the email
		username = email[:strings.Index(email, "@")]
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	a := &entity.Account{
		ID:           utilities.NewKSUID(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Roles:        []string{},
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return a, nil
}

// Login verifies credentials and mints a bearer token. Unknown email and
// wrong password both return ErrBadCredentials so the two cases are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *auth.Claims, error) {
	email = normalizeEmail(email)

	lookupCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	a, err := s.repo.GetByEmail(lookupCtx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, ErrBadCredentials
		}
		return "", nil, fmt.Errorf("find account: %w", err)
	}
	if !s.hasher.Verify(a.PasswordHash, password) {
		return "", nil, ErrBadCredentials
	}

	token, claims, err := s.issuer.Issue(a.ID, a.Email, a.Username, a.Roles)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}
	return token, claims, nil
}

// ChangePassword verifies the current password before storing a hash of the
// new one. A wrong current password leaves the stored hash untouched.
func (s *Service) ChangePassword(ctx context.Context, id, current, next string) error {
	if len(next) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	a, err := s.repo.GetByID(lookupCtx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("find account: %w", err)
	}
	if !s.hasher.Verify(a.PasswordHash, current) {
		return ErrBadCredentials
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	updateCtx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.repo.UpdatePasswordHash(updateCtx, id, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// Profile returns the live account for an authenticated id.
func (s *Service) Profile(ctx context.Context, id string) (*entity.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return a, nil
}

// normalizeEmail lowercases and trims so uniqueness and lookup share one
// case policy.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	at := strings.Index(email, "@")
	if email == "" || at <= 0 || at == len(email)-1 {
		return fmt.Errorf("%w: malformed email", ErrValidation)
	}
	return nil
}
