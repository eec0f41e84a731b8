package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuthanhcam/sport-field-booking/internal/config"
	"github.com/cuthanhcam/sport-field-booking/internal/repository"
	"github.com/cuthanhcam/sport-field-booking/internal/utils"
)

func setupAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	h := NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db))
	return h, mock, func() { db.Close() }
}

func authContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewRequestValidator()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func userRow(id uint64, email, role, passwordHash string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "password_hash", "role_id", "name", "is_active", "created_at", "updated_at",
	}).AddRow(id, email, passwordHash, 1, role, true, time.Now(), time.Now())
}

func TestLoginUnknownEmailIsUnauthorized(t *testing.T) {
	h, mock, done := setupAuthHandler(t)
	defer done()

	// An empty result set makes QueryRow report no rows.
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u JOIN roles r")).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "password_hash", "role_id", "name", "is_active", "created_at", "updated_at",
		}))

	c, rec := authContext(t, `{"email":"ghost@example.com","password":"whatever"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid credentials")
}

func TestLoginWrongPasswordIsUnauthorized(t *testing.T) {
	h, mock, done := setupAuthHandler(t)
	defer done()

	hash, err := utils.HashPassword("right-password", 4)
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u JOIN roles r")).
		WithArgs("ann@example.com").
		WillReturnRows(userRow(1, "ann@example.com", "CUSTOMER", hash))

	c, rec := authContext(t, `{"email":"ann@example.com","password":"wrong-password"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	// No token may be minted for a failed login.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginReturnsSessionWithTokenPair(t *testing.T) {
	h, mock, done := setupAuthHandler(t)
	defer done()

	hash, err := utils.HashPassword("s3cret-pass", 4)
	require.NoError(t, err)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users u JOIN roles r")).
		WithArgs("ann@example.com").
		WillReturnRows(userRow(1, "ann@example.com", "CUSTOMER", hash))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c, rec := authContext(t, `{"email":"ann@example.com","password":"s3cret-pass"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Account struct {
			ID   uint64 `json:"id"`
			Role string `json:"role"`
		} `json:"account"`
		Tokens struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"tokens"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.Account.ID)
	assert.Equal(t, "CUSTOMER", resp.Account.Role)
	assert.NotEmpty(t, resp.Tokens.AccessToken)
	assert.NotEmpty(t, resp.Tokens.RefreshToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogoutRevokesPresentedToken(t *testing.T) {
	h, mock, done := setupAuthHandler(t)
	defer done()

	hash := utils.HashRefreshRaw("raw-refresh")
	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash=?")).
		WithArgs(hash).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).
			AddRow(uint64(1), time.Now().Add(time.Hour), nil))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at=NOW() WHERE token_hash=?")).
		WithArgs(hash).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c, rec := authContext(t, `{"refresh_token":"raw-refresh"}`)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogoutWithoutCredentialsIsBadRequest(t *testing.T) {
	h, _, done := setupAuthHandler(t)
	defer done()

	c, rec := authContext(t, `{}`)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
