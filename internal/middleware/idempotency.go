package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/hotel-booking-engine/internal/config"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 128
)

// inFlight marks a key claimed by a request that has not finished yet.  The
// request fingerprint follows the marker.
const inFlight = "inflight:"

// NewIdempotency replays the stored response when a request repeats an
// Idempotency-Key.  The key is scoped by caller, method and path; reusing it
// with a different body is rejected with 422, and a repeat that arrives
// while the first request is still running gets 409.  Server errors are not
// stored so the client can retry them.  Requests without the header pass
// through.
func NewIdempotency(cfg config.IdempotencyConfig, rdb *redis.Client, log logrus.FieldLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passThrough
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			idem := strings.TrimSpace(c.Request().Header.Get(HeaderIdempotencyKey))
			if idem == "" {
				return next(c)
			}
			if len(idem) > maxIdempotencyKeyLen {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "Idempotency-Key too long"})
			}

			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
			}
			c.Request().Body = io.NopCloser(bytes.NewReader(body))
			sum := sha256.Sum256(body)
			fingerprint := hex.EncodeToString(sum[:])

			ctx := c.Request().Context()
			key := strings.Join([]string{cfg.Prefix, currentUserID(c), c.Request().Method, c.Request().URL.Path, idem}, ":")
			claimed, err := rdb.SetNX(ctx, key, inFlight+fingerprint, cfg.LockTTL).Result()
			if err != nil {
				log.WithError(err).WithField("key", key).Warn("idempotency store unavailable")
				return next(c)
			}
			if !claimed {
				return replayStored(c, rdb, key, fingerprint)
			}

			cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK}
			c.Response().Writer = cw
			herr := next(c)
			if herr != nil {
				// Let echo render the error so the status below is final.
				c.Error(herr)
			}

			store := context.WithoutCancel(ctx)
			if cw.status >= http.StatusInternalServerError || !c.Response().Committed {
				_ = rdb.Del(store, key).Err()
				return nil
			}
			hdr := cloneHeader(c.Response().Header())
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err == nil {
				err = rdb.Set(store, key, fingerprint+"\n"+string(payload), cfg.TTL).Err()
			}
			if err != nil {
				log.WithError(err).WithField("key", key).Warn("storing idempotent response failed")
				_ = rdb.Del(store, key).Err()
			}
			return nil
		}
	}
}

func replayStored(c echo.Context, rdb *redis.Client, key, fingerprint string) error {
	stored, err := rdb.Get(c.Request().Context(), key).Result()
	if errors.Is(err, redis.Nil) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "request with this Idempotency-Key expired mid-flight, retry"})
	}
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "idempotency store unavailable"})
	}
	if rest, ok := strings.CutPrefix(stored, inFlight); ok {
		if rest != fingerprint {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Idempotency-Key reused with a different request body"})
		}
		return c.JSON(http.StatusConflict, echo.Map{"error": "request with this Idempotency-Key is still in progress"})
	}
	storedPrint, payload, ok := strings.Cut(stored, "\n")
	if !ok {
		return c.JSON(http.StatusConflict, echo.Map{"error": "corrupt idempotency record"})
	}
	if storedPrint != fingerprint {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "Idempotency-Key reused with a different request body"})
	}
	status, hdr, body, ok := decodePayload([]byte(payload))
	if !ok {
		return c.JSON(http.StatusConflict, echo.Map{"error": "corrupt idempotency record"})
	}
	c.Response().Header().Set(headerReplayed, "true")
	replay(c, status, hdr, body)
	return nil
}
