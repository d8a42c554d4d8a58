package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/iliyamo/hotel-booking-engine/internal/config"
	"github.com/iliyamo/hotel-booking-engine/internal/model"
	"github.com/iliyamo/hotel-booking-engine/internal/utils"
)

const secret = "mw-secret"

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func bearer(t *testing.T, p model.Principal) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, p, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func whoAmI(c echo.Context) error {
	p, _ := PrincipalFrom(c)
	return c.JSON(http.StatusOK, echo.Map{"user_id": p.UserID, "role": p.Role})
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	e.GET("/me", whoAmI, JWTAuth(secret))

	rec := do(e, http.MethodGet, "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/me", "", map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/me", "", map[string]string{"Authorization": bearer(t, model.Principal{UserID: 5, Role: model.RoleGuest})})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":5,"role":"GUEST"}`, rec.Body.String())
}

func TestRequireRoleAndHotelScope(t *testing.T) {
	e := echo.New()
	g := e.Group("/hotels/:hotel_id", JWTAuth(secret), RequireRole(model.RoleStaff, model.RoleAdmin), RequireHotelScope("hotel_id"))
	g.GET("/desk", whoAmI)

	guest := bearer(t, model.Principal{UserID: 1, Role: model.RoleGuest})
	staff7 := bearer(t, model.Principal{UserID: 2, Role: model.RoleStaff, HotelID: 7})

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/hotels/7/desk", "", map[string]string{"Authorization": guest}).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/hotels/7/desk", "", map[string]string{"Authorization": staff7}).Code)
	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/hotels/8/desk", "", map[string]string{"Authorization": staff7}).Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/hotels/x/desk", "", map[string]string{"Authorization": staff7}).Code)
}

func TestTokenBucketBlocksAfterCapacity(t *testing.T) {
	log, _ := test.NewNullLogger()
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute, TTL: 5 * time.Minute, Prefix: "rl", KeyStrategy: "ip"}
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") }, NewTokenBucket(cfg, newRedis(t), log))

	for i := 0; i < 2; i++ {
		rec := do(e, http.MethodGet, "/ping", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(e, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRedisCacheServesHit(t *testing.T) {
	var calls atomic.Int32
	cfg := config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, TTL: time.Minute, Prefix: "avail"}
	e := echo.New()
	e.GET("/hotels/:hotel_id/availability", func(c echo.Context) error {
		calls.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"hotel": c.Param("hotel_id")})
	}, NewRedisCache(cfg, newRedis(t)))

	first := do(e, http.MethodGet, "/hotels/1/availability?check_in=2025-06-01", "", nil)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	second := do(e, http.MethodGet, "/hotels/1/availability?check_in=2025-06-01", "", nil)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	other := do(e, http.MethodGet, "/hotels/2/availability?check_in=2025-06-01", "", nil)
	assert.Equal(t, "MISS", other.Header().Get("X-Cache"))
	assert.JSONEq(t, `{"hotel":"2"}`, other.Body.String())
	assert.EqualValues(t, 2, calls.Load())
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	log, _ := test.NewNullLogger()
	var calls atomic.Int32
	cfg := config.IdempotencyConfig{Enabled: true, TTL: time.Hour, LockTTL: time.Minute, Prefix: "idem"}
	e := echo.New()
	e.POST("/bookings", func(c echo.Context) error {
		n := calls.Add(1)
		return c.JSON(http.StatusCreated, echo.Map{"booking": n})
	}, JWTAuth(secret), NewIdempotency(cfg, newRedis(t), log))

	auth := bearer(t, model.Principal{UserID: 9, Role: model.RoleGuest})
	hdr := map[string]string{"Authorization": auth, HeaderIdempotencyKey: "k-1"}

	first := do(e, http.MethodPost, "/bookings", `{"rooms":1}`, hdr)
	require.Equal(t, http.StatusCreated, first.Code)
	second := do(e, http.MethodPost, "/bookings", `{"rooms":1}`, hdr)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(headerReplayed))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.EqualValues(t, 1, calls.Load())

	mismatch := do(e, http.MethodPost, "/bookings", `{"rooms":2}`, hdr)
	assert.Equal(t, http.StatusUnprocessableEntity, mismatch.Code)

	other := do(e, http.MethodPost, "/bookings", `{"rooms":1}`, map[string]string{"Authorization": bearer(t, model.Principal{UserID: 10, Role: model.RoleGuest}), HeaderIdempotencyKey: "k-1"})
	assert.Equal(t, http.StatusCreated, other.Code)
	assert.EqualValues(t, 2, calls.Load())
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	log, _ := test.NewNullLogger()
	var calls atomic.Int32
	cfg := config.IdempotencyConfig{Enabled: true, TTL: time.Hour, LockTTL: time.Minute, Prefix: "idem"}
	e := echo.New()
	e.POST("/bookings", func(c echo.Context) error {
		if calls.Add(1) == 1 {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "busy"})
		}
		return c.JSON(http.StatusCreated, echo.Map{"ok": true})
	}, NewIdempotency(cfg, newRedis(t), log))

	hdr := map[string]string{HeaderIdempotencyKey: "retry-me"}
	assert.Equal(t, http.StatusServiceUnavailable, do(e, http.MethodPost, "/bookings", `{}`, hdr).Code)
	assert.Equal(t, http.StatusCreated, do(e, http.MethodPost, "/bookings", `{}`, hdr).Code)
	assert.EqualValues(t, 2, calls.Load())
}

func TestTracingAndAccessLog(t *testing.T) {
	prev := otel.GetTracerProvider()
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	log, hook := test.NewNullLogger()
	e := echo.New()
	e.Use(Tracing(), AccessLog(log))
	e.GET("/missing/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})

	rec := do(e, http.MethodGet, "/missing/3", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	traceID := rec.Header().Get("X-Trace-Id")
	assert.Len(t, traceID, 32)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, http.StatusNotFound, entry.Data["status"])
	assert.Equal(t, "/missing/:id", entry.Data["route"])
	assert.Equal(t, traceID, entry.Data["trace_id"])
}
