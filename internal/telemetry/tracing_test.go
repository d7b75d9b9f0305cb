package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitInstallsProviders(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	providers, err := Init(ctx, Options{ServiceName: "smartqa-test", Version: "test", Registerer: reg})
	require.NoError(t, err)
	require.NotNil(t, providers.Tracer)
	require.NotNil(t, providers.Meter)

	_, span := otel.Tracer("test").Start(ctx, "unit")
	require.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, providers.Shutdown(ctx))
}

func TestShutdownNilProviders(t *testing.T) {
	t.Parallel()

	var p *Providers
	require.NoError(t, p.Shutdown(context.Background()))
}
