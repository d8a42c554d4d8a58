package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/iliyamo/hotel-booking-engine/internal/middleware"

// Tracing starts a server span per request, continuing any trace context
// the caller sent, and puts it on the request context so engine spans nest
// under it.  The trace id is echoed in the X-Trace-Id header.
func Tracing() echo.MiddlewareFunc {
	tracer := otel.Tracer(tracerName)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ctx := otel.GetTextMapPropagator().Extract(req.Context(), propagation.HeaderCarrier(req.Header))
			route := c.Path()
			if route == "" {
				route = req.URL.Path
			}
			ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", req.Method, route),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(req.Method),
					semconv.HTTPRoute(route),
					semconv.URLPath(req.URL.Path),
					semconv.ClientAddress(c.RealIP()),
				),
			)
			defer span.End()
			c.SetRequest(req.WithContext(ctx))
			if sc := span.SpanContext(); sc.HasTraceID() {
				c.Response().Header().Set("X-Trace-Id", sc.TraceID().String())
			}

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			span.SetAttributes(semconv.HTTPResponseStatusCode(status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			if err != nil {
				span.RecordError(err)
				span.SetAttributes(attribute.Bool("error", true))
			}
			return nil
		}
	}
}

// TraceID returns the trace id of the request span, or "".
func TraceID(c echo.Context) string {
	sc := trace.SpanContextFromContext(c.Request().Context())
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
