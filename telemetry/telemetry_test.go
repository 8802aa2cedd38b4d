package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestOTELHook_Run(t *testing.T) {
	tests := []struct {
		name        string
		setupCtx    func() context.Context
		expectTrace bool
	}{
		{
			name:        "no context",
			setupCtx:    func() context.Context { return nil },
			expectTrace: false,
		},
		{
			name:        "context without span",
			setupCtx:    context.Background,
			expectTrace: false,
		},
		{
			name:        "context with valid span",
			setupCtx:    createContextWithSpan,
			expectTrace: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)

			hook := OTELHook{}
			event := logger.Info().Ctx(tt.setupCtx())

			hook.Run(event, zerolog.InfoLevel, "test message")
			event.Msg("test")

			if tt.expectTrace {
				assert.Contains(t, buf.String(), "trace_id")
				assert.Contains(t, buf.String(), "span_id")
			} else {
				assert.NotContains(t, buf.String(), "trace_id")
				assert.NotContains(t, buf.String(), "span_id")
			}
		})
	}
}

func createContextWithSpan() context.Context {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(
		trace.WithSyncer(exporter),
	)
	ctx, _ := provider.Tracer("test").Start(context.Background(), "test-span")
	return ctx
}

func TestOTELHook_ErrorLevel(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
	ctx, span := provider.Tracer("test").Start(context.Background(), "test-span")

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	hook := OTELHook{}
	event := logger.Error().Ctx(ctx)

	hook.Run(event, zerolog.ErrorLevel, "error message")
	event.Msg("test error")

	span.End()
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "error message", spans[0].Status.Description)
}

func TestNewLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "test-service", "warn")

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "test-service")
}

func TestNewLoggerTo_UnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "svc", "loud")

	logger.Debug().Msg("debug line")
	logger.Info().Msg("info line")

	assert.NotContains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "info line")
}

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "svc", "info").Component("storage")

	logger.Info().Msg("hello")
	assert.Contains(t, buf.String(), `"component":"storage"`)
}

func TestLogger_LogSpanEnd(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		level   string
	}{
		{name: "successful span", message: "span completed", level: "debug"},
		{name: "failed span", err: assert.AnError, message: "span failed", level: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := &Logger{Logger: zerolog.New(&buf)}

			logger.LogSpanEnd(context.Background(), "test-span", tt.err)

			output := buf.String()
			assert.Contains(t, output, "test-span")
			assert.Contains(t, output, tt.message)
			assert.Contains(t, output, `level":"`+tt.level)
		})
	}
}

func TestAddAttributeToEvent(t *testing.T) {
	tests := []struct {
		name     string
		attr     attribute.KeyValue
		expected string
	}{
		{name: "string attribute", attr: attribute.String("key", "value"), expected: `"key":"value"`},
		{name: "int64 attribute", attr: attribute.Int64("count", 42), expected: `"count":42`},
		{name: "float64 attribute", attr: attribute.Float64("rate", 3.14), expected: `"rate":3.14`},
		{name: "bool attribute", attr: attribute.Bool("enabled", true), expected: `"enabled":true`},
		{name: "string slice", attr: attribute.StringSlice("fields", []string{"name", "credentials"}), expected: `"fields":["name","credentials"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)

			event := addAttributeToEvent(logger.Info(), tt.attr)
			event.Msg("test")

			assert.Contains(t, buf.String(), tt.expected)
		})
	}
}

func TestLogger_ConvenienceMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := &Logger{Logger: zerolog.New(&buf)}
	ctx := context.Background()

	logger.LogCompaction(ctx, 100, 200)
	assert.Contains(t, buf.String(), "starting compaction")
	assert.Contains(t, buf.String(), "200")
	buf.Reset()

	logger.LogCompactionComplete(ctx, 50, 1234.56)
	assert.Contains(t, buf.String(), "compaction completed")
	assert.Contains(t, buf.String(), "1234.56")
	buf.Reset()

	logger.LogSubmitted(ctx, "id-1", "Dev", "AWS", 7)
	assert.Contains(t, buf.String(), "cloud saved")
	assert.Contains(t, buf.String(), `"revision":7`)
	buf.Reset()

	logger.LogRejected(ctx, "Dev", "AWS", []string{"name"})
	assert.Contains(t, buf.String(), "cloud rejected")
	assert.Contains(t, buf.String(), `"fields":["name"]`)
	buf.Reset()

	logger.LogStorageError(ctx, "save", assert.AnError)
	assert.Contains(t, buf.String(), "storage operation failed")
	assert.Contains(t, buf.String(), `level":"error`)
}

func TestConfig_Defaults(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	cfg := applyConfigDefaults(Config{})
	assert.Equal(t, "cloudctl", cfg.ServiceName)
	assert.Equal(t, "localhost:4317", cfg.OTELEndpoint)

	cfg = applyConfigDefaults(Config{DisableOTLP: true})
	assert.Empty(t, cfg.OTELEndpoint)
}

func TestConfig_EnvironmentVariable(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector.example.com:4317")

	cfg := applyConfigDefaults(Config{})
	assert.Equal(t, "collector.example.com:4317", cfg.OTELEndpoint)
}

func TestInitOTEL_PrometheusOnly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	shutdown, err := InitOTEL(ctx, Config{ServiceName: "test", DisableOTLP: true})
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	defer func() { _ = shutdown(context.Background()) }()

	assert.NotNil(t, PrometheusRegistry)

	Submissions.Add(ctx, 1)
	families, err := PrometheusRegistry.Gather()
	require.NoError(t, err)

	var exported bool
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "cloudctl_submissions") {
			exported = true
		}
	}
	assert.True(t, exported)
}

func TestInitOTEL_WithEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// exporters connect lazily so no collector is needed
	shutdown, err := InitOTEL(ctx, Config{OTELEndpoint: "localhost:4317", Insecure: true})
	assert.NoError(t, err)
	if shutdown != nil {
		_ = shutdown(context.Background())
	}
}

func TestGlobalMetricsInitialization(t *testing.T) {
	assert.NotNil(t, ValidationFailures)
	assert.NotNil(t, Submissions)
	assert.NotNil(t, PolicyViolations)
	assert.NotNil(t, StorageWrites)
	assert.NotNil(t, SubmitDuration)
	assert.NotNil(t, StorageRevision)
	assert.NotNil(t, CloudsInStorage)
}

func TestRecordEvents(t *testing.T) {
	reader := metric.NewManualReader()
	metricProvider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(metricProvider)
	Meter = metricProvider.Meter("test")
	require.NoError(t, initMetrics())

	exporter := tracetest.NewInMemoryExporter()
	traceProvider := trace.NewTracerProvider(trace.WithSyncer(exporter))

	ctx, span := StartSubmit(context.Background(), traceProvider.Tracer("test"), "AWS", "Dev", "create")
	RecordValidationFailedEvent(ctx, span, "AWS", []string{"name", "credentials.accessKeyId"})
	RecordPolicyViolationEvent(ctx, span, "cloudctl.policy", "proxyUrl", "must use https")
	RecordSubmitted(ctx, span, "AWS", OutcomeInvalid, 20*time.Millisecond)
	RecordStorageWrite(ctx, "save", 3, 2)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "cloud.submit", spans[0].Name)
	require.Len(t, spans[0].Events, 2)
	assert.Equal(t, "cloud.validation.failed", spans[0].Events[0].Name)
	assert.Equal(t, "cloud.policy.violation", spans[0].Events[1].Name)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
			if m.Name == "cloudctl.validation.failures.total" {
				sum, ok := m.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				var total int64
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
				assert.Equal(t, int64(2), total)
			}
		}
	}
	for _, name := range []string{
		"cloudctl.validation.failures.total",
		"cloudctl.policy.violations.total",
		"cloudctl.submissions.total",
		"cloudctl.submit.duration.seconds",
		"cloudctl.storage.writes.total",
		"cloudctl.storage.clouds.current",
	} {
		assert.True(t, found[name], name)
	}
}

func TestNopLogger(t *testing.T) {
	logger := Nop()
	logger.Info().Msg("nothing")
	assert.NotNil(t, logger.WithContext(context.Background()))
}
