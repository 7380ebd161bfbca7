package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"

	"github.com/parleylabs/parley-relay/internal/config"
)

// setupTelemetry installs the global tracer and meter providers. It returns
// a combined shutdown and the scrape handler served at /metrics. Spans are
// exported over OTLP gRPC when an endpoint is configured and pretty-printed
// to stdout otherwise; metrics always go through the prometheus reader, and
// a reader that cannot be built fails startup since the scrape endpoint is
// part of the service surface.
func setupTelemetry(cfg config.Config, logger *slog.Logger) (func(context.Context) error, http.Handler, error) {
	ctx := context.Background()

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	spanExporter, exporterName, err := newSpanExporter(ctx, cfg.Telemetry)
	if err != nil {
		return nil, nil, fmt.Errorf("build span exporter: %w", err)
	}
	traces := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(traces)
	logger.Info("tracing enabled", slog.String("exporter", exporterName))

	scrape, err := prometheus.New()
	if err != nil {
		shutdownCtx := context.Background()
		_ = traces.Shutdown(shutdownCtx)
		return nil, nil, fmt.Errorf("build prometheus reader: %w", err)
	}
	meters := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(scrape),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(meters)

	shutdown := func(ctx context.Context) error {
		return errors.Join(meters.Shutdown(ctx), traces.Shutdown(ctx))
	}
	return shutdown, promhttp.Handler(), nil
}

func newSpanExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, string, error) {
	endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
	if endpoint == "" {
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		return exporter, "stdout", err
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	return exporter, "otlp:" + endpoint, err
}
