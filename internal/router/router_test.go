package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/auth"
)

func testAuthConfig() auth.Config {
	return auth.Config{
		Secret:   "test-secret-key",
		Issuer:   "localhost",
		Audience: "localhost",
		Lifetime: 2 * time.Hour,
	}
}

func newTestServer(t *testing.T) (*httptest.Server, sqlmock.Sqlmock, *auth.Issuer) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	issuer, err := auth.NewIssuer(testAuthConfig())
	require.NoError(t, err)
	validator, err := auth.NewValidator(testAuthConfig())
	require.NoError(t, err)

	handler := RegisterRoutes(zap.NewNop().Sugar(), sqlx.NewDb(db, "postgres"), issuer, validator)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, mock, issuer
}

func do(t *testing.T, method, url, token, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func accountRows(t *testing.T, password string) *sqlmock.Rows {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "email", "username", "password_hash", "roles", "created_at", "updated_at"}).
		AddRow("acc-1", "a@x.com", "a", string(hash), "{}", now, now)
}

func TestAuthFlow(t *testing.T) {
	srv, mock, _ := newTestServer(t)

	// register
	mock.ExpectExec("INSERT INTO accounts").WillReturnResult(sqlmock.NewResult(0, 1))
	resp, body := do(t, http.MethodPost, srv.URL+"/auth-api/register", "", `{"email":"a@x.com","password":"Secret1!"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a@x.com", body["email"])

	// login with the correct password yields a token
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("a@x.com").
		WillReturnRows(accountRows(t, "Secret1!"))
	resp, body = do(t, http.MethodPost, srv.URL+"/auth-api/login", "", `{"email":"a@x.com","password":"Secret1!"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "acc-1", body["user_id"])
	assert.EqualValues(t, 7200, body["expires_in"])

	// profile with the issued token
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id").
		WithArgs("acc-1").
		WillReturnRows(accountRows(t, "Secret1!"))
	resp, body = do(t, http.MethodGet, srv.URL+"/auth-api/profile", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "acc-1", body["user_id"])

	// login with the wrong password is a 401
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email").
		WithArgs("a@x.com").
		WillReturnRows(accountRows(t, "Secret1!"))
	resp, _ = do(t, http.MethodPost, srv.URL+"/auth-api/login", "", `{"email":"a@x.com","password":"WrongPass"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// one character changed in the signature segment is a 401, no DB reached
	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)
	resp, _ = do(t, http.MethodGet, srv.URL+"/auth-api/profile", tampered, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// logout succeeds with a valid token and is purely local
	resp, _ = do(t, http.MethodPost, srv.URL+"/auth-api/logout", token, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDuplicateRegistrationIsRejected(t *testing.T) {
	srv, mock, _ := newTestServer(t)

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "accounts_email_key"})
	resp, body := do(t, http.MethodPost, srv.URL+"/auth-api/register", "", `{"email":"a@x.com","password":"Secret1!"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "email already registered", body["error"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/auth-api/profile"},
		{http.MethodPost, "/auth-api/change-password"},
		{http.MethodPost, "/auth-api/logout"},
		{http.MethodGet, "/auth-api/records"},
	} {
		resp, body := do(t, tc.method, srv.URL+tc.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", tc.method, tc.path)
		assert.Equal(t, "unauthenticated", body["error"])
	}
}

func TestExpiredTokenIsRejected(t *testing.T) {
	srv, _, _ := newTestServer(t)

	// a one-nanosecond lifetime expires the token before the request lands
	cfg := testAuthConfig()
	cfg.Lifetime = time.Nanosecond
	issuer, err := auth.NewIssuer(cfg)
	require.NoError(t, err)
	token, _, err := issuer.Issue("acc-1", "a@x.com", "a", nil)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)

	resp, _ := do(t, http.MethodGet, srv.URL+"/auth-api/profile", token, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRecordWritesRequireRole(t *testing.T) {
	srv, mock, issuer := newTestServer(t)

	plain, _, err := issuer.Issue("acc-1", "a@x.com", "a", nil)
	require.NoError(t, err)
	editor, _, err := issuer.Issue("acc-2", "e@x.com", "e", []string{"editor"})
	require.NoError(t, err)

	// a token without the editor role is refused before any storage call
	resp, body := do(t, http.MethodPost, srv.URL+"/auth-api/records", plain, `{"category":"notes","detail":{}}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "forbidden", body["error"])

	mock.ExpectExec("INSERT INTO records").WillReturnResult(sqlmock.NewResult(0, 1))
	resp, body = do(t, http.MethodPost, srv.URL+"/auth-api/records", editor, `{"category":"notes","detail":{}}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "acc-2", body["owner_id"])
	require.NoError(t, mock.ExpectationsWereMet())
}
