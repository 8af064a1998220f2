package observability

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

type capturedRecord struct {
	body     string
	severity otellog.Severity
}

type captureExporter struct {
	mu      sync.Mutex
	records []capturedRecord
}

func (e *captureExporter) Export(ctx context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, capturedRecord{body: r.Body().AsString(), severity: r.Severity()})
	}
	return nil
}

func (e *captureExporter) Shutdown(ctx context.Context) error   { return nil }
func (e *captureExporter) ForceFlush(ctx context.Context) error { return nil }

func TestOTelHook_ForwardsLogLines(t *testing.T) {
	exporter := &captureExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exporter)))
	global.SetLoggerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	logger := zerolog.New(io.Discard).Hook(newOTelHook("test"))
	logger.Warn().Str("prefix", "search_analytics").Msg("cache unavailable")
	logger.Info().Msg("")

	require.Len(t, exporter.records, 1)
	assert.Equal(t, "cache unavailable", exporter.records[0].body)
	assert.Equal(t, otellog.SeverityWarn, exporter.records[0].severity)
}

func TestOTelSeverity(t *testing.T) {
	assert.Equal(t, otellog.SeverityDebug, otelSeverity(zerolog.DebugLevel))
	assert.Equal(t, otellog.SeverityError, otelSeverity(zerolog.ErrorLevel))
	assert.Equal(t, otellog.SeverityUndefined, otelSeverity(zerolog.NoLevel))
}

func TestLoggerFromContext_PrefersScopedLogger(t *testing.T) {
	scoped := zerolog.New(io.Discard).With().Str("request_id", "r1").Logger()
	ctx := scoped.WithContext(context.Background())

	logger := LoggerFromContext(ctx)
	require.NotNil(t, logger)
	assert.Equal(t, scoped.GetLevel(), logger.GetLevel())
}
