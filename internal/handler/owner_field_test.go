package handler

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuthanhcam/sport-field-booking/internal/repository"
)

func setupOwnerHandler(t *testing.T) (*OwnerHandler, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	h := &OwnerHandler{Fields: repository.NewFieldRepo(db)}
	return h, mock, func() { db.Close() }
}

func ownerContext(t *testing.T, method, body string, paramName, paramValue string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewRequestValidator()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(1))
	if paramName != "" {
		c.SetParamNames(paramName)
		c.SetParamValues(paramValue)
	}
	return c, rec
}

func fieldRow(id, ownerID uint64, openMin, closeMin int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "name", "address", "open_min", "close_min", "is_active", "created_at", "updated_at",
	}).AddRow(id, ownerID, "Arena", "1 Main St", openMin, closeMin, true, "2025-01-01 00:00:00", "2025-01-01 00:00:00")
}

func TestCreateSubFieldRejectsWindowOutsideField(t *testing.T) {
	h, mock, done := setupOwnerHandler(t)
	defer done()

	// Parent opens 08:00 and closes 18:00.
	mock.ExpectQuery(regexp.QuoteMeta("FROM fields WHERE id = ? AND owner_id = ?")).
		WithArgs(uint64(5), uint64(1)).
		WillReturnRows(fieldRow(5, 1, 8*60, 18*60))

	body := `{"name":"Pitch A","open_time":"06:00","close_time":"23:00","default_price_cents":100000}`
	c, rec := ownerContext(t, http.MethodPost, body, "id", "5")

	require.NoError(t, h.CreateSubField(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "within the field window")
	// No INSERT may be attempted for an out-of-window sub-field.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSubFieldRejectsWindowOutsideField(t *testing.T) {
	h, mock, done := setupOwnerHandler(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("FROM sub_fields WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "field_id", "name", "open_min", "close_min", "default_price_cents", "is_active", "created_at", "updated_at",
		}).AddRow(7, 5, "Pitch A", 8*60, 18*60, 100000, true, "2025-01-01 00:00:00", "2025-01-01 00:00:00"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM fields WHERE id = ?")).
		WithArgs(uint64(5)).
		WillReturnRows(fieldRow(5, 1, 8*60, 18*60))

	body := `{"name":"Pitch A","open_time":"07:00","close_time":"19:00","default_price_cents":100000}`
	c, rec := ownerContext(t, http.MethodPut, body, "id", "7")

	require.NoError(t, h.UpdateSubField(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFieldRejectsWindowExcludingSubField(t *testing.T) {
	h, mock, done := setupOwnerHandler(t)
	defer done()

	// An existing sub-field runs 08:00 to 22:00; the new venue window would
	// cut its evening hours off.
	mock.ExpectQuery(regexp.QuoteMeta("FROM sub_fields WHERE field_id = ?")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "field_id", "name", "open_min", "close_min", "default_price_cents", "is_active", "created_at", "updated_at",
		}).AddRow(7, 5, "Pitch A", 8*60, 22*60, 100000, true, "2025-01-01 00:00:00", "2025-01-01 00:00:00"))

	body := `{"name":"Arena","address":"1 Main St","open_time":"09:00","close_time":"18:00"}`
	c, rec := ownerContext(t, http.MethodPut, body, "id", "5")

	require.NoError(t, h.UpdateField(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "Pitch A")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFieldForeignOwnerIsForbidden(t *testing.T) {
	h, mock, done := setupOwnerHandler(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("FROM sub_fields WHERE field_id = ?")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "field_id", "name", "open_min", "close_min", "default_price_cents", "is_active", "created_at", "updated_at",
		}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM fields WHERE id = ?")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(uint64(99)))

	body := `{"name":"Arena","address":"1 Main St","open_time":"08:00","close_time":"18:00"}`
	c, rec := ownerContext(t, http.MethodPut, body, "id", "5")

	require.NoError(t, h.UpdateField(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateFieldMissingIsNotFound(t *testing.T) {
	h, mock, done := setupOwnerHandler(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("FROM sub_fields WHERE field_id = ?")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "field_id", "name", "open_min", "close_min", "default_price_cents", "is_active", "created_at", "updated_at",
		}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT owner_id FROM fields WHERE id = ?")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}))

	body := `{"name":"Arena","address":"1 Main St","open_time":"08:00","close_time":"18:00"}`
	c, rec := ownerContext(t, http.MethodPut, body, "id", "5")

	require.NoError(t, h.UpdateField(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRetireSubFieldForeignOwnerIsForbidden(t *testing.T) {
	h, mock, done := setupOwnerHandler(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT f.owner_id FROM sub_fields sf")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(uint64(99)))

	c, rec := ownerContext(t, http.MethodDelete, "", "id", "7")

	require.NoError(t, h.RetireSubField(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRetireSubFieldMissingIsNotFound(t *testing.T) {
	h, mock, done := setupOwnerHandler(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT f.owner_id FROM sub_fields sf")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"owner_id"}))

	c, rec := ownerContext(t, http.MethodDelete, "", "id", "7")

	require.NoError(t, h.RetireSubField(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
