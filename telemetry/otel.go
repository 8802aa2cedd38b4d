package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	promclient "github.com/prometheus/client_golang/prometheus"
)

const instrumentationName = "github.com/yairfalse/cloudctl"

// Global telemetry handles
var (
	Tracer = otel.Tracer(instrumentationName)
	Meter  = otel.Meter(instrumentationName)

	// PrometheusRegistry is set by InitOTEL and served on /metrics
	PrometheusRegistry *promclient.Registry

	ValidationFailures metric.Int64Counter
	Submissions        metric.Int64Counter
	PolicyViolations   metric.Int64Counter
	StorageWrites      metric.Int64Counter
	SubmitDuration     metric.Float64Histogram
	StorageRevision    metric.Int64Gauge
	CloudsInStorage    metric.Int64Gauge
)

func init() {
	// instruments from the global meter forward to whatever provider
	// InitOTEL installs later
	if err := initMetrics(); err != nil {
		panic(err)
	}
}

// Config for OTEL initialization
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTELEndpoint   string // e.g. "localhost:4317"
	Insecure       bool
	// DisableOTLP keeps tracing and metrics in-process with only the
	// Prometheus reader attached
	DisableOTLP bool
}

// InitOTEL installs the global tracer and meter providers. Metrics are
// always readable through PrometheusRegistry; traces and metrics are also
// pushed over OTLP unless cfg.DisableOTLP is set.
func InitOTEL(ctx context.Context, cfg Config) (shutdown func(context.Context) error, err error) {
	cfg = applyConfigDefaults(cfg)

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, cfg, res)
	if err != nil {
		return nil, fmt.Errorf("trace provider: %w", err)
	}
	mp, registry, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("meter provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	otel.SetMeterProvider(mp)
	Tracer = tp.Tracer(instrumentationName)
	Meter = mp.Meter(instrumentationName)
	PrometheusRegistry = registry

	shutdown = func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}
	if err := initMetrics(); err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("instruments: %w", err)
	}
	return shutdown, nil
}

func applyConfigDefaults(cfg Config) Config {
	if cfg.OTELEndpoint == "" && !cfg.DisableOTLP {
		cfg.OTELEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
		if cfg.OTELEndpoint == "" {
			cfg.OTELEndpoint = "localhost:4317"
		}
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "cloudctl"
	}
	return cfg
}

func dialOptions(cfg Config) []grpc.DialOption {
	if !cfg.Insecure {
		return nil
	}
	return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if !cfg.DisableOTLP {
		exporter, err := otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(cfg.OTELEndpoint),
			otlptracegrpc.WithDialOption(dialOptions(cfg)...),
		)
		if err != nil {
			return nil, fmt.Errorf("otlp trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// newMeterProvider attaches a Prometheus reader on a fresh registry and,
// unless disabled, a periodic OTLP reader
func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, *promclient.Registry, error) {
	registry := promclient.NewRegistry()
	promReader, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("prometheus exporter: %w", err)
	}

	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promReader),
	}
	if !cfg.DisableOTLP && cfg.OTELEndpoint != "" {
		exporter, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(cfg.OTELEndpoint),
			otlpmetricgrpc.WithDialOption(dialOptions(cfg)...),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second)),
		))
	}
	return sdkmetric.NewMeterProvider(opts...), registry, nil
}

func initMetrics() error {
	for _, fn := range []func() error{initCounters, initHistograms, initGauges} {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}

func initCounters() error {
	var err error

	ValidationFailures, err = Meter.Int64Counter("cloudctl.validation.failures.total",
		metric.WithDescription("Total number of field validation failures"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("create validation_failures counter: %w", err)
	}

	Submissions, err = Meter.Int64Counter("cloudctl.submissions.total",
		metric.WithDescription("Total number of cloud submissions by outcome"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("create submissions counter: %w", err)
	}

	PolicyViolations, err = Meter.Int64Counter("cloudctl.policy.violations.total",
		metric.WithDescription("Total number of policy denials on submit"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("create policy_violations counter: %w", err)
	}

	StorageWrites, err = Meter.Int64Counter("cloudctl.storage.writes.total",
		metric.WithDescription("Total number of storage write operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("create storage_writes counter: %w", err)
	}

	return nil
}

func initHistograms() error {
	var err error

	SubmitDuration, err = Meter.Float64Histogram("cloudctl.submit.duration.seconds",
		metric.WithDescription("Duration of submit operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create submit_duration histogram: %w", err)
	}

	return nil
}

func initGauges() error {
	var err error

	StorageRevision, err = Meter.Int64Gauge("cloudctl.storage.revision.current",
		metric.WithDescription("Current storage revision number"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("create storage_revision gauge: %w", err)
	}

	CloudsInStorage, err = Meter.Int64Gauge("cloudctl.storage.clouds.current",
		metric.WithDescription("Current number of registered clouds"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("create clouds_in_storage gauge: %w", err)
	}

	return nil
}
