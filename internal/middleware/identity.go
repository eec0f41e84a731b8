package middleware

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// userID pulls an identifier out of the JWT on the context for rate limit
// and cache keys.  Anonymous requests all share the "guest" identity.
func userID(c echo.Context) string {
	tok, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return "guest"
	}
	cl, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "guest"
	}
	if v, ok := cl["sub"].(string); ok && v != "" {
		return v
	}
	if v, ok := cl["user_id"].(string); ok && v != "" {
		return v
	}
	return "guest"
}
