package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupTracingWithoutEndpoint(t *testing.T) {
	tp, shutdown, err := SetupTracing(context.Background(), TracingOptions{ServiceName: "test"})
	require.NoError(t, err)
	assert.Nil(t, tp)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, otel.GetTextMapPropagator().Fields())
}

func TestSetupTracingWithEndpoint(t *testing.T) {
	tp, shutdown, err := SetupTracing(context.Background(), TracingOptions{
		ServiceName: "test",
		Endpoint:    "http://127.0.0.1:4318",
	})
	require.NoError(t, err)
	require.NotNil(t, tp)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}
