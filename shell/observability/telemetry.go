package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/AntonStoeckl/fakersql-go/fakersql/oteladapters"
	"github.com/AntonStoeckl/fakersql-go/fakersql/postgresengine"
	"github.com/AntonStoeckl/fakersql-go/fakersql/promadapters"
	"github.com/AntonStoeckl/fakersql-go/shell/config"
)

const (
	instrumentationName = "github.com/AntonStoeckl/fakersql-go"
	serviceVersion      = "1.0.0"
	shutdownTimeout     = 5 * time.Second
)

// Telemetry holds the logger, the tracer provider and the metrics collector of one process.
type Telemetry struct {
	Logger   *slog.Logger
	LevelVar *slog.LevelVar

	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	metrics        *promadapters.MetricsCollector
}

// Setup creates the logger writing to w, and the tracer provider and metrics collector if
// they are enabled in cfg. Tracing also installs the global tracer provider and propagators.
func Setup(ctx context.Context, cfg config.Config, w io.Writer) (*Telemetry, error) {
	logger, levelVar := NewLogger(w, cfg.Log.Format, cfg.Log.Level)

	t := &Telemetry{
		Logger:   logger,
		LevelVar: levelVar,
		tracer:   noop.NewTracerProvider().Tracer(instrumentationName),
	}

	if cfg.Tracing.Endpoint != "" {
		tp, err := newTracerProvider(ctx, cfg.Tracing)
		if err != nil {
			return nil, err
		}

		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

		t.tracerProvider = tp
		t.tracer = tp.Tracer(instrumentationName)
	}

	if cfg.Metrics.Enabled {
		t.metrics = promadapters.NewMetricsCollector(nil, nil)
	}

	return t, nil
}

func newTracerProvider(ctx context.Context, cfg config.TracingConfig) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var endpointOption otlptracehttp.Option
	if strings.Contains(cfg.Endpoint, "://") {
		endpointOption = otlptracehttp.WithEndpointURL(cfg.Endpoint)
	} else {
		endpointOption = otlptracehttp.WithEndpoint(cfg.Endpoint)
	}

	exporter, err := otlptracehttp.New(ctx, endpointOption, otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("create OTLP exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRate)),
	), nil
}

func sampler(rate float64) sdktrace.Sampler {
	if rate >= 0 && rate < 1 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
	}

	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

// TracingEnabled reports whether spans are exported.
func (t *Telemetry) TracingEnabled() bool {
	return t.tracerProvider != nil
}

// Tracer returns the service tracer, a no-op tracer when tracing is disabled.
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracer
}

// Metrics returns the Prometheus metrics collector, nil when metrics are disabled.
func (t *Telemetry) Metrics() *promadapters.MetricsCollector {
	return t.metrics
}

// PoolOptions returns the postgresengine options that connect the pool to this telemetry.
func (t *Telemetry) PoolOptions() []postgresengine.Option {
	options := []postgresengine.Option{postgresengine.WithLogger(t.Logger)}

	if t.tracerProvider != nil {
		options = append(options,
			postgresengine.WithTracing(oteladapters.NewTracingCollector(t.tracer)),
			postgresengine.WithContextualLogger(oteladapters.NewSlogBridgeLoggerWithHandler(t.Logger.Handler())),
		)
	}

	if t.metrics != nil {
		options = append(options, postgresengine.WithMetrics(t.metrics))
	}

	return options
}

// RegisterPool exports the pool's stats when metrics are enabled.
func (t *Telemetry) RegisterPool(source promadapters.StatsSource) error {
	if t.metrics == nil {
		return nil
	}

	if err := t.metrics.Registry().Register(promadapters.NewPoolCollector(source)); err != nil {
		return fmt.Errorf("register pool collector: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the tracer provider, waiting at most five seconds.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.tracerProvider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return t.tracerProvider.Shutdown(ctx)
}
