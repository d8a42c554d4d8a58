package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking-engine/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the caller in the request context.  Handlers read it with
// PrincipalFrom; "user_id" and "role" are also set as plain strings for
// middleware that only needs a key.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			p, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(principalKey, p)
			c.Set(userIDKey, strconv.FormatUint(p.UserID, 10))
			c.Set(roleKey, string(p.Role))
			return next(c)
		}
	}
}
