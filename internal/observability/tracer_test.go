package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitGlobalTracerDisabledInstallsNoopProvider(t *testing.T) {
	tp, err := InitGlobalTracer(context.Background(), TracerConfig{Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tp)

	tracer := tp.Tracer("test")
	_, span := tracer.Start(context.Background(), "op")
	span.End()
}

func TestInitGlobalTracerStdoutExporter(t *testing.T) {
	tp, err := InitGlobalTracer(context.Background(), TracerConfig{
		Enabled:      true,
		ExporterType: "stdout",
		ServiceName:  "hexboard-test",
		SamplingRate: 1.0,
	})
	require.NoError(t, err)
	require.NotNil(t, tp)

	shutdowner, ok := tp.(interface{ Shutdown(context.Context) error })
	require.True(t, ok)
	assert.NoError(t, shutdowner.Shutdown(context.Background()))
}
