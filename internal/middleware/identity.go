package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// Context keys set by JWTAuth.
const (
	principalKey = "principal"
	userIDKey    = "user_id"
	roleKey      = "role"
)

// PrincipalFrom returns the caller stored by JWTAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok
}

// currentUserID identifies the caller for rate limiting and idempotency
// keys; unauthenticated requests share "anon".
func currentUserID(c echo.Context) string {
	if p, ok := PrincipalFrom(c); ok {
		return strconv.FormatUint(p.UserID, 10)
	}
	return "anon"
}
