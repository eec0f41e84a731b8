package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/cuthanhcam/sport-field-booking/internal/config"
	"github.com/cuthanhcam/sport-field-booking/internal/repository"
	"github.com/cuthanhcam/sport-field-booking/internal/utils"
)

// AuthHandler serves registration, login and refresh-token rotation.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, tokens *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Tokens: tokens}
}

type registerReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"` // CUSTOMER or OWNER, defaults to CUSTOMER
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type accountResp struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// tokenGrant carries a freshly issued pair.  The raw refresh token appears
// only here; the database keeps its hash.
type tokenGrant struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type sessionResp struct {
	Account accountResp `json:"account"`
	Tokens  tokenGrant  `json:"tokens"`
}

// authCtx bounds auth database work so a stuck pool cannot hold the request.
func authCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// issueSession mints an access token and a rotated refresh token for the
// account and persists the refresh hash.
func (h *AuthHandler) issueSession(ctx context.Context, id uint64, email, role string) (*sessionResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, id, role, h.Cfg.AccessTTLMin)
	if err != nil {
		return nil, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return nil, err
	}
	if err := h.Tokens.StoreRefresh(ctx, id, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return nil, err
	}
	return &sessionResp{
		Account: accountResp{ID: id, Email: email, Role: role},
		Tokens: tokenGrant{
			AccessToken:      access.Token,
			AccessExpiresAt:  access.Exp,
			RefreshToken:     refresh.Raw,
			RefreshExpiresAt: refresh.Exp,
		},
	}, nil
}

// Register handles POST /v1/auth/register.  The account is usable
// immediately, so the response carries a first session.
func (h *AuthHandler) Register(c echo.Context) error {
	var body registerReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	role := strings.ToUpper(strings.TrimSpace(body.Role))
	if role != "OWNER" {
		role = "CUSTOMER"
	}

	ctx, cancel := authCtx(c)
	defer cancel()

	roleID, err := h.Users.RoleIDByName(ctx, role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not resolve role"})
	}
	id, err := h.Users.Create(ctx, email, body.Password, roleID, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create account"})
	}

	session, err := h.issueSession(ctx, id, email, role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue session"})
	}
	return c.JSON(http.StatusCreated, session)
}

// Login handles POST /v1/auth/login.  Unknown email and wrong password read
// the same to the caller.
func (h *AuthHandler) Login(c echo.Context) error {
	var body loginReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := authCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, body.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !utils.VerifyPassword(u.PasswordHash, body.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	session, err := h.issueSession(ctx, u.ID, u.Email, u.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue session"})
	}
	return c.JSON(http.StatusOK, session)
}

// Refresh handles POST /v1/auth/refresh.  The presented token is revoked and
// a new pair is issued, so every raw refresh token is good for one rotation.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var body refreshReq
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(body.RefreshToken))

	ctx, cancel := authCtx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	_ = h.Tokens.RevokeByHash(ctx, hash)

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	session, err := h.issueSession(ctx, u.ID, u.Email, u.Role)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue session"})
	}
	return c.JSON(http.StatusOK, session)
}

// RefreshAccess handles POST /v1/auth/refresh-access.  It trades a still
// valid refresh token for a short-lived access token without rotating the
// refresh token, which keeps long-polling clients off the rotation path.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
	var body refreshReq
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(body.RefreshToken))

	ctx, cancel := authCtx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not issue access token"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"access_token":      access.Token,
		"access_expires_at": access.Exp,
	})
}

// bearerSubject pulls the user id out of a Bearer access token, if the
// request carries a valid one.  Logout accepts either credential, so the
// header is parsed here instead of behind the JWT middleware.
func (h *AuthHandler) bearerSubject(c echo.Context) (uint64, bool) {
	header := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return 0, false
	}
	tok, err := jwt.Parse(strings.TrimPrefix(header, "Bearer "), func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(h.Cfg.JWTSecret), nil
	})
	if err != nil || !tok.Valid {
		return 0, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}
	switch sub := claims["sub"].(type) {
	case float64:
		return uint64(sub), sub > 0
	case string:
		if id, err := strconv.ParseUint(sub, 10, 64); err == nil && id > 0 {
			return id, true
		}
	}
	return 0, false
}

// Logout handles POST /v1/auth/logout.  A refresh token in the body revokes
// that one session; a bare Bearer token revokes every session of the account.
func (h *AuthHandler) Logout(c echo.Context) error {
	var body refreshReq
	_ = c.Bind(&body)
	refreshToken := strings.TrimSpace(body.RefreshToken)

	ctx, cancel := authCtx(c)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh token"})
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}

	if uid, ok := h.bearerSubject(c); ok {
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
		}
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "provide a refresh_token or Authorization header"})
}

// Me handles GET /v1/me and echoes the identity the middleware resolved.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id": c.Get("user_id"),
		"role":    c.Get("role"),
	})
}
