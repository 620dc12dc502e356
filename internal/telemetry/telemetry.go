// Package telemetry sets up OpenTelemetry tracing for the crawler.
//
// Without an endpoint Setup leaves the global no-op tracer provider in
// place, so the per-item spans of the crawl engine and the SQL spans of the
// store cost nothing. With an endpoint, spans are batched and exported over
// OTLP/gRPC.
package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

// DefaultServiceName is reported when Options.ServiceName is empty.
const DefaultServiceName = "gocrawler"

// exporterTimeout bounds the creation of the OTLP exporter.
const exporterTimeout = 5 * time.Second

// ShutdownFunc flushes and stops the tracing pipeline.
type ShutdownFunc func(context.Context) error

// Options configures Setup.
type Options struct {
	// Endpoint is the OTLP/gRPC collector address (host:port). Empty
	// disables export.
	Endpoint string

	// Insecure disables TLS towards the collector.
	Insecure bool

	// ServiceName and ServiceVersion describe the process in the resource.
	ServiceName    string
	ServiceVersion string

	// Exporter replaces the OTLP exporter. It is used even without Endpoint.
	Exporter sdktrace.SpanExporter
}

// Enabled reports whether Setup will install a real tracer provider.
func (o Options) Enabled() bool {
	return o.Endpoint != "" || o.Exporter != nil
}

// Setup installs the global tracer provider. The returned ShutdownFunc is
// never nil and must be called before the process exits.
func Setup(ctx context.Context, opts Options) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }
	if !opts.Enabled() {
		return noop, nil
	}

	exporter := opts.Exporter
	if exporter == nil {
		var err error
		exporter, err = newGRPCExporter(ctx, opts.Endpoint, opts.Insecure)
		if err != nil {
			return noop, err
		}
	}

	serviceName := opts.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(opts.ServiceVersion),
		))
	if err != nil {
		return noop, errors.Join(err, exporter.Shutdown(ctx))
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxQueueSize(1000),
			sdktrace.WithMaxExportBatchSize(1000),
		),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

func newGRPCExporter(ctx context.Context, endpoint string, insecure bool) (sdktrace.SpanExporter, error) {
	ctx, cancel := context.WithTimeout(ctx, exporterTimeout)
	defer cancel()

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	return otlptracegrpc.New(ctx, opts...)
}
