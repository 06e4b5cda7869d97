package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/telemetry"

type TracerConfig struct {
	ServiceName string `json:"service_name" yaml:"service_name"`
	// OTLP HTTP endpoint host:port, e.g. "localhost:4318"
	Endpoint   string  `json:"endpoint" yaml:"endpoint"`
	Insecure   bool    `json:"insecure" yaml:"insecure"`
	SampleRate float64 `json:"sample_rate" yaml:"sample_rate"`
}

// InitTracer installs a global tracer provider exporting over OTLP/HTTP. The returned provider
// has to be shut down on exit.
func InitTracer(ctx context.Context, config TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case config.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case config.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(config.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", config.ServiceName))),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	)
	otel.SetTracerProvider(tp)
	return tp, nil
}

// OTelSink records traces as span events and exceptions as span errors. When the context
// carries no recording span, a short-lived span is started for the record.
type OTelSink struct {
	tracer trace.Tracer
}

// NewOTelSink uses the global tracer provider when tp is nil.
func NewOTelSink(tp trace.TracerProvider) *OTelSink {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &OTelSink{tracer: tp.Tracer(defaultTracerName)}
}

func (s *OTelSink) TrackTrace(ctx context.Context, message string, properties map[string]string) {
	span, end := s.span(ctx, "trace")
	defer end()
	span.AddEvent(message, trace.WithAttributes(propertiesToKeyValues(properties)...))
}

func (s *OTelSink) TrackException(ctx context.Context, err error, properties map[string]string) {
	if err == nil {
		return
	}
	span, end := s.span(ctx, "exception")
	defer end()
	span.RecordError(err, trace.WithAttributes(propertiesToKeyValues(properties)...))
	span.SetStatus(codes.Error, err.Error())
}

func (s *OTelSink) span(ctx context.Context, name string) (trace.Span, func()) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		return span, func() {}
	}
	_, span = s.tracer.Start(ctx, "telemetry."+name)
	return span, func() { span.End() }
}

func propertiesToKeyValues(properties map[string]string) []attribute.KeyValue {
	attrs := propertiesToAttrs(properties)
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		kvs = append(kvs, attribute.String(a.Key, a.Value.String()))
	}
	return kvs
}
