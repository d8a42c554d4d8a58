package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// AccessLog writes one line per request.  Errors returned by handlers are
// rendered first so the logged status is what the client saw.
func AccessLog(log logrus.FieldLogger) echo.MiddlewareFunc {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			fields := logrus.Fields{
				"method":     req.Method,
				"path":       req.URL.Path,
				"route":      c.Path(),
				"status":     status,
				"latency_ms": time.Since(start).Milliseconds(),
				"client_ip":  c.RealIP(),
				"user_agent": req.UserAgent(),
				"bytes_out":  c.Response().Size,
			}
			if id := TraceID(c); id != "" {
				fields["trace_id"] = id
			}
			if uid := currentUserID(c); uid != "anon" {
				fields["user_id"] = uid
			}
			entry := log.WithFields(fields)
			if err != nil {
				entry = entry.WithError(err)
			}
			switch {
			case status >= 500:
				entry.Error("request failed")
			case status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request processed")
			}
			return nil
		}
	}
}
