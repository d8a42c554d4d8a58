// Package router wires the HTTP surface: global middleware, the public
// webhook and the JWT protected /v1 groups.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking-engine/internal/config"
	"github.com/iliyamo/hotel-booking-engine/internal/handler"
	"github.com/iliyamo/hotel-booking-engine/internal/middleware"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
)

// Deps carries what the middleware chain needs.  A nil Redis disables rate
// limiting, caching and idempotency.
type Deps struct {
	JWTSecret   string
	Redis       *redis.Client
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig
	Idempotency config.IdempotencyConfig
	Log         logrus.FieldLogger
}

// Register mounts every route on e.
func Register(e *echo.Echo, h *handler.Handler, d Deps) {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	e.Use(middleware.Tracing(), middleware.AccessLog(d.Log))

	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1")
	// The payment provider authenticates with the webhook token, not a JWT.
	v1.POST("/payments/confirm", h.ConfirmPayment)

	auth := v1.Group("",
		middleware.JWTAuth(d.JWTSecret),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log),
	)
	registerHotel(auth, h, d)
	registerBookings(auth, h)
}

var (
	anyRole   = middleware.RequireRole(model.RoleGuest, model.RoleStaff, model.RoleAdmin)
	staffRole = middleware.RequireRole(model.RoleStaff, model.RoleAdmin)
	adminRole = middleware.RequireRole(model.RoleAdmin)
)

// registerHotel mounts /v1/hotels/:hotel_id.  Staff and admins are limited
// to their own hotel; guests may browse and book any hotel.
func registerHotel(auth *echo.Group, h *handler.Handler, d Deps) {
	g := auth.Group("/hotels/:hotel_id", middleware.RequireHotelScope("hotel_id"))
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	idem := middleware.NewIdempotency(d.Idempotency, d.Redis, d.Log)

	// ---- Availability ----
	g.GET("/availability/daily", h.DailyAvailability, anyRole, cache)
	g.GET("/availability/hourly", h.HourlyAvailability, anyRole, cache)
	g.GET("/room-types", h.ListRoomTypes, anyRole)

	// ---- Reservations ----
	g.POST("/bookings/daily", h.ReserveDaily, anyRole, idem)
	g.POST("/bookings/hourly", h.ReserveHourly, anyRole, idem)

	// ---- Catalog ----
	g.POST("/room-types", h.CreateRoomType, adminRole)
	g.GET("/room-types/:rt_id", h.GetRoomType, staffRole)
	g.PATCH("/room-types/:rt_id/capacity", h.ResizeRoomType, adminRole)
	g.PATCH("/room-types/:rt_id/active", h.SetRoomTypeActive, adminRole)

	// ---- Inventory ledger ----
	g.GET("/room-types/:rt_id/inventory", h.ListInventory, staffRole)
	g.PUT("/room-types/:rt_id/inventory", h.BulkUpsertInventory, adminRole)
	g.PUT("/room-types/:rt_id/inventory/:date", h.UpsertInventoryDay, adminRole)

	// ---- Hourly slots ----
	g.GET("/room-types/:rt_id/slots", h.ListSlots, staffRole)
	g.PUT("/room-types/:rt_id/slots", h.BulkUpsertSlots, adminRole)
	g.PUT("/room-types/:rt_id/slots/:date/:start_hour", h.UpsertSlot, adminRole)
}

// registerBookings mounts /v1/bookings/:id.  Visibility is checked per
// booking in the handlers.
func registerBookings(auth *echo.Group, h *handler.Handler) {
	g := auth.Group("/bookings")
	g.GET("/:id", h.GetBooking, anyRole)
	g.POST("/:id/cancel", h.CancelBooking, anyRole)
	g.POST("/:id/release", h.ReleaseBooking, staffRole)
	g.POST("/:id/check-in", h.CheckIn, staffRole)
	g.POST("/:id/check-out", h.CheckOut, staffRole)
}
