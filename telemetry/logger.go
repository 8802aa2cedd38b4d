package telemetry

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTELHook adds trace and span IDs to every log entry
type OTELHook struct{}

func (h OTELHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return
	}

	e.Str("trace_id", span.SpanContext().TraceID().String())
	e.Str("span_id", span.SpanContext().SpanID().String())

	if level == zerolog.ErrorLevel {
		span.SetStatus(codes.Error, msg)
	}
}

// Logger wraps zerolog with OTEL integration
type Logger struct {
	zerolog.Logger
}

// NewLoggerTo creates a logger on w at the named level. Unknown levels
// fall back to info.
func NewLoggerTo(w io.Writer, service, level string) *Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	logger := zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Logger().
		Hook(OTELHook{})

	return &Logger{Logger: logger}
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithContext returns a logger with context (for trace propagation)
func (l *Logger) WithContext(ctx context.Context) *zerolog.Logger {
	logger := l.Logger.With().Ctx(ctx).Logger()
	return &logger
}

// Component returns a child logger tagged with a component name
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.Logger.With().Str("component", name).Logger()}
}

// LogSpanStart logs the start of a span with attributes
func (l *Logger) LogSpanStart(ctx context.Context, spanName string, attrs ...attribute.KeyValue) {
	logger := l.WithContext(ctx)

	event := logger.Debug().Str("span_name", spanName)
	for _, attr := range attrs {
		event = addAttributeToEvent(event, attr)
	}
	event.Msg("span started")
}

// LogSpanEnd logs the end of a span with results
func (l *Logger) LogSpanEnd(ctx context.Context, spanName string, err error) {
	logger := l.WithContext(ctx)

	if err != nil {
		logger.Error().
			Err(err).
			Str("span_name", spanName).
			Msg("span failed")
	} else {
		logger.Debug().
			Str("span_name", spanName).
			Msg("span completed")
	}
}

func addAttributeToEvent(event *zerolog.Event, attr attribute.KeyValue) *zerolog.Event {
	key := string(attr.Key)

	switch attr.Value.Type() {
	case attribute.STRING:
		return event.Str(key, attr.Value.AsString())
	case attribute.INT64:
		return event.Int64(key, attr.Value.AsInt64())
	case attribute.FLOAT64:
		return event.Float64(key, attr.Value.AsFloat64())
	case attribute.BOOL:
		return event.Bool(key, attr.Value.AsBool())
	case attribute.STRINGSLICE:
		return event.Strs(key, attr.Value.AsStringSlice())
	default:
		return event.Str(key, attr.Value.Emit())
	}
}

// Convenience methods for storage operations

func (l *Logger) LogCompaction(ctx context.Context, keepRevisions int64, currentRev int64) {
	l.WithContext(ctx).Info().
		Int64("keep_revisions", keepRevisions).
		Int64("current_revision", currentRev).
		Str("operation", "compaction").
		Msg("starting compaction")
}

func (l *Logger) LogCompactionComplete(ctx context.Context, deletedCount int, duration float64) {
	l.WithContext(ctx).Info().
		Int("deleted_keys", deletedCount).
		Float64("duration_ms", duration).
		Str("operation", "compaction").
		Msg("compaction completed")
}

func (l *Logger) LogRebuildComplete(ctx context.Context, cloudCount int, duration float64) {
	l.WithContext(ctx).Debug().
		Int("clouds_indexed", cloudCount).
		Float64("duration_ms", duration).
		Str("operation", "rebuild_index").
		Msg("index rebuild completed")
}

func (l *Logger) LogStorageError(ctx context.Context, operation string, err error) {
	l.WithContext(ctx).Error().
		Err(err).
		Str("operation", operation).
		Msg("storage operation failed")
}

// Convenience methods for the submit pipeline

func (l *Logger) LogSubmitted(ctx context.Context, id, name, provider string, revision int64) {
	l.WithContext(ctx).Info().
		Str("cloud_id", id).
		Str("cloud_name", name).
		Str("provider", provider).
		Int64("revision", revision).
		Msg("cloud saved")
}

func (l *Logger) LogRejected(ctx context.Context, name, provider string, paths []string) {
	l.WithContext(ctx).Warn().
		Str("cloud_name", name).
		Str("provider", provider).
		Strs("fields", paths).
		Msg("cloud rejected")
}
