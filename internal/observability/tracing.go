package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// OTLP exporter defaults.
const (
	DefaultOTLPRetryInitialInterval = 1 * time.Second
	DefaultOTLPRetryMaxInterval     = 30 * time.Second
	DefaultOTLPRetryMaxElapsedTime  = 1 * time.Minute
	DefaultOTLPTimeout              = 10 * time.Second
)

// Span names and attribute keys used by the router.
const (
	SpanResolve  = "router.resolve"
	SpanNavigate = "router.navigate"

	AttrLocation     = attribute.Key("navroute.location")
	AttrPath         = attribute.Key("navroute.path")
	AttrRoute        = attribute.Key("navroute.route")
	AttrOutcome      = attribute.Key("navroute.outcome")
	AttrResolutionID = attribute.Key("navroute.resolution_id")
)

// TracerConfig contains tracing configuration.
type TracerConfig struct {
	ServiceName  string
	OTLPEndpoint string
	SamplingRate float64
	Enabled      bool
}

// Tracer wraps OpenTelemetry tracing functionality.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   TracerConfig
}

// NewTracer creates a new tracer. A disabled configuration yields a tracer
// whose spans are never recorded.
func NewTracer(cfg TracerConfig) (*Tracer, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "navroute"
	}
	if !cfg.Enabled {
		return &Tracer{
			config: cfg,
			tracer: noop.NewTracerProvider().Tracer(cfg.ServiceName),
		}, nil
	}

	var exporter *otlptrace.Exporter
	if cfg.OTLPEndpoint != "" {
		var err error
		exporter, err = otlptracegrpc.New(context.Background(), buildOTLPExporterOptions(cfg)...)
		if err != nil {
			return nil, err
		}
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return nil, err
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(createSampler(cfg.SamplingRate)),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
		config:   cfg,
	}, nil
}

// NewTracerWithProvider wraps an existing SDK provider. Tests use it with an
// in-memory span recorder.
func NewTracerWithProvider(provider *sdktrace.TracerProvider, serviceName string) *Tracer {
	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(serviceName),
		config:   TracerConfig{ServiceName: serviceName, Enabled: true, SamplingRate: 1},
	}
}

// SetInternalLogger routes OpenTelemetry's own diagnostics to logger.
func SetInternalLogger(logger Logger) {
	otel.SetLogger(Logr(logger))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		logger.Warn("opentelemetry error", Error(err))
	}))
}

func createSampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1.0:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func buildOTLPExporterOptions(cfg TracerConfig) []otlptracegrpc.Option {
	return []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
		otlptracegrpc.WithTimeout(DefaultOTLPTimeout),
		otlptracegrpc.WithRetry(otlptracegrpc.RetryConfig{
			Enabled:         true,
			InitialInterval: DefaultOTLPRetryInitialInterval,
			MaxInterval:     DefaultOTLPRetryMaxInterval,
			MaxElapsedTime:  DefaultOTLPRetryMaxElapsedTime,
		}),
	}
}

// Enabled reports whether spans are exported or recorded.
func (t *Tracer) Enabled() bool {
	return t != nil && t.provider != nil
}

// Shutdown flushes pending spans and shuts down the provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// StartSpan starts a new span. A nil Tracer returns a non-recording span
// that is detached from any parent in ctx.
func (t *Tracer) StartSpan(
	ctx context.Context,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if t == nil || t.tracer == nil {
		return ctx, trace.SpanFromContext(context.Background())
	}
	return t.tracer.Start(ctx, name, opts...)
}

// StartResolveSpan starts the span covering one resolution.
func (t *Tracer) StartResolveSpan(ctx context.Context, location string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{AttrLocation.String(location)}
	if id := ResolutionIDFromContext(ctx); id != "" {
		attrs = append(attrs, AttrResolutionID.String(id))
	}
	return t.StartSpan(ctx, SpanResolve,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndResolveSpan annotates span with the resolution outcome and ends it.
func EndResolveSpan(span trace.Span, path, route, outcome string, err error) {
	span.SetAttributes(
		AttrPath.String(path),
		AttrOutcome.String(outcome),
	)
	if route != "" {
		span.SetAttributes(AttrRoute.String(route))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
