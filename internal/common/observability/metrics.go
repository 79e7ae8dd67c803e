package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"signalx/internal/common/logger"
)

// Observability owns the OpenTelemetry meter and tracer providers for a process.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	jobCounter     otelmetric.Int64Counter
	jobDuration    otelmetric.Float64Histogram
	httpDuration   otelmetric.Float64Histogram
}

// New wires the prometheus metric exporter and, when jaegerEndpoint is set,
// a jaeger span exporter. Exporter failures degrade to no-op instruments.
func New(serviceName, jaegerEndpoint string, log logger.Logger) *Observability {
	o := &Observability{tracer: otel.Tracer(serviceName)}
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("prometheus exporter unavailable", map[string]interface{}{"error": err.Error()})
	} else {
		o.meterProvider = metric.NewMeterProvider(metric.WithReader(exporter), metric.WithResource(res))
		otel.SetMeterProvider(o.meterProvider)

		meter := o.meterProvider.Meter(serviceName)
		o.jobCounter, _ = meter.Int64Counter("jobs.processed",
			otelmetric.WithDescription("Number of workflow jobs processed"))
		o.jobDuration, _ = meter.Float64Histogram("jobs.duration",
			otelmetric.WithDescription("Workflow job processing duration"),
			otelmetric.WithUnit("ms"))
		o.httpDuration, _ = meter.Float64Histogram("http.server.duration",
			otelmetric.WithDescription("HTTP handler duration"),
			otelmetric.WithUnit("ms"))
	}

	if jaegerEndpoint != "" {
		spanExporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
		if err != nil {
			log.Warn("jaeger exporter unavailable", map[string]interface{}{"error": err.Error()})
		} else {
			o.tracerProvider = sdktrace.NewTracerProvider(
				sdktrace.WithBatcher(spanExporter),
				sdktrace.WithResource(res),
			)
			otel.SetTracerProvider(o.tracerProvider)
			o.tracer = o.tracerProvider.Tracer(serviceName)
		}
	}

	return o
}

// StartSpan starts a span on the process tracer.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o.jobCounter != nil {
		o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string) {
	if o.jobDuration != nil {
		o.jobDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("task_type", taskType),
			attribute.String("status", status),
		))
	}
}

func (o *Observability) RecordHTTPDuration(ctx context.Context, route string, status int, duration time.Duration) {
	if o.httpDuration != nil {
		o.httpDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("route", route),
			attribute.Int("status", status),
		))
	}
}

func (o *Observability) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}
