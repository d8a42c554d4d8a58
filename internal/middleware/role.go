package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// RequireRole rejects callers whose role is not one of roles with 403.  It
// must run after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok || !allowed[p.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireHotelScope makes sure staff and admins only touch their own hotel,
// named by the path parameter param.  Guests pass through; their access is
// decided per booking by the handlers.
func RequireHotelScope(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			if p.Role == model.RoleGuest {
				return next(c)
			}
			hotelID, err := strconv.ParseUint(c.Param(param), 10, 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid " + param})
			}
			if !p.CanManageHotel(hotelID) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden: other hotel"})
			}
			return next(c)
		}
	}
}
