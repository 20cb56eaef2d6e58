package account

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
)

// --- helpers ---

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func newTestService(t *testing.T, db *sqlx.DB) *Service {
	t.Helper()
	issuer, err := auth.NewIssuer(auth.Config{
		Secret:   "test-secret-key",
		Issuer:   "localhost",
		Audience: "localhost",
		Lifetime: 2 * time.Hour,
	})
	require.NoError(t, err)
	return NewService(db, nil, BcryptHasher{Cost: bcrypt.MinCost}, issuer)
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := BcryptHasher{Cost: bcrypt.MinCost}.Hash(pw)
	require.NoError(t, err)
	return h
}

func accountRows(email, hash string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "roles", "created_at", "updated_at"}).
		AddRow("acc-1", email, "a", hash, "{}", now, now)
}

// bcryptHashOf matches any argument that is a bcrypt hash verifying against
// the given plaintext. Used to prove the repo never sees the plaintext itself.
type bcryptHashOf struct{ plaintext string }

func (m bcryptHashOf) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	if s == m.plaintext {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(s), []byte(m.plaintext)) == nil
}

// --- tests ---

func TestRegisterStoresVerifyingHash(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(t, db)

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(sqlmock.AnyArg(), "a@x.com", "a", bcryptHashOf{plaintext: "Secret1!"}, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a, err := svc.Register(context.Background(), " A@X.com ", "", "Secret1!")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", a.Email)
	assert.Equal(t, "a", a.Username)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, "Secret1!", a.PasswordHash)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(t, db)

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "accounts_email_key"})

	_, err := svc.Register(context.Background(), "a@x.com", "", "Secret1!")
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterValidation(t *testing.T) {
	db, _ := newMockDB(t)
	svc := newTestService(t, db)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "Secret1!"},
		{"no at sign", "ax.com", "Secret1!"},
		{"at sign first", "@x.com", "Secret1!"},
		{"at sign last", "a@", "Secret1!"},
		{"short password", "a@x.com", "short"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.email, "", tc.password)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestLoginSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(t, db)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("a@x.com").
		WillReturnRows(accountRows("a@x.com", mustHash(t, "Secret1!")))

	token, claims, err := svc.Login(context.Background(), "A@X.COM", "Secret1!")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "acc-1", claims.AccountID())
	assert.Equal(t, "a@x.com", claims.Email)

	validator, err := auth.NewValidator(auth.Config{
		Secret:   "test-secret-key",
		Issuer:   "localhost",
		Audience: "localhost",
		Lifetime: 2 * time.Hour,
	})
	require.NoError(t, err)
	parsed, err := validator.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", parsed.AccountID())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(t, db)

	// unknown email
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("nobody@x.com").
		WillReturnError(sql.ErrNoRows)
	_, _, errUnknown := svc.Login(context.Background(), "nobody@x.com", "Secret1!")

	// wrong password
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("a@x.com").
		WillReturnRows(accountRows("a@x.com", mustHash(t, "Secret1!")))
	_, _, errWrong := svc.Login(context.Background(), "a@x.com", "WrongPass")

	assert.ErrorIs(t, errUnknown, ErrBadCredentials)
	assert.ErrorIs(t, errWrong, ErrBadCredentials)
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangePasswordWrongCurrentLeavesHash(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(t, db)

	// only the lookup runs; no UPDATE is expected
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs("acc-1").
		WillReturnRows(accountRows("a@x.com", mustHash(t, "Secret1!")))

	err := svc.ChangePassword(context.Background(), "acc-1", "WrongPass", "NewSecret1!")
	assert.ErrorIs(t, err, ErrBadCredentials)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangePasswordSuccess(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(t, db)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs("acc-1").
		WillReturnRows(accountRows("a@x.com", mustHash(t, "Secret1!")))
	mock.ExpectExec("UPDATE accounts SET password_hash").
		WithArgs("acc-1", bcryptHashOf{plaintext: "NewSecret1!"}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.ChangePassword(context.Background(), "acc-1", "Secret1!", "NewSecret1!")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestChangePasswordAccountMissing(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(t, db)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)

	err := svc.ChangePassword(context.Background(), "gone", "Secret1!", "NewSecret1!")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	svc := newTestService(t, db)

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs("gone").
		WillReturnError(sql.ErrNoRows)

	_, err := svc.Profile(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
