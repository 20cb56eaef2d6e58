package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/account/entity"
)

// ErrDuplicateEmail is returned when an insert trips the unique constraint on
// accounts.email.
var ErrDuplicateEmail = errors.New("email already registered")

// AccountRepo provides data access for the accounts table using sqlx.
// It is the only component allowed to mutate account state.
type AccountRepo struct {
	db *sqlx.DB
}

func NewAccountRepo(db *sqlx.DB) *AccountRepo { return &AccountRepo{db: db} }

// EnsureTable creates the accounts table if not exists (idempotent).
func (r *AccountRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS accounts (
  id varchar(32) PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  username TEXT NOT NULL DEFAULT '',
  password_hash TEXT NOT NULL,
  roles TEXT[] NOT NULL DEFAULT '{}',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new account as a single atomic statement. Uniqueness of
// email is enforced by the table constraint, never by a pre-check, so
// concurrent registrations for the same email yield exactly one success and
// one ErrDuplicateEmail.
func (r *AccountRepo) Create(ctx context.Context, a *entity.Account) error {
	const q = `INSERT INTO accounts (id, email, username, password_hash, roles)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, q, a.ID, a.Email, a.Username, a.PasswordHash, pq.Array([]string(a.Roles)))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

// GetByEmail returns the account for an email or sql.ErrNoRows.
func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*entity.Account, error) {
	const q = `SELECT id, email, username, password_hash, roles, created_at, updated_at
		FROM accounts WHERE email=$1`
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, email); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByID returns the account for an id or sql.ErrNoRows.
func (r *AccountRepo) GetByID(ctx context.Context, id string) (*entity.Account, error) {
	const q = `SELECT id, email, username, password_hash, roles, created_at, updated_at
		FROM accounts WHERE id=$1`
	var a entity.Account
	if err := r.db.GetContext(ctx, &a, q, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdatePasswordHash replaces the stored hash for an account. Returns
// sql.ErrNoRows when the account is absent.
func (r *AccountRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const q = `UPDATE accounts SET password_hash=$2, updated_at=NOW() WHERE id=$1`
	res, err := r.db.ExecContext(ctx, q, id, hash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// isUniqueViolation reports whether err is a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
