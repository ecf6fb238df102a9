package main

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/toastnco/prometheus/config"
	"github.com/toastnco/prometheus/observability"
)

const serviceName = "prometheus"

// setupTelemetry installs the OpenTelemetry metrics SDK with an OTLP/HTTP
// exporter when telemetry.metrics is set. It returns a nil meter when metrics
// are disabled. The shutdown func flushes pending points and is always safe
// to call.
func setupTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) (metric.Meter, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Telemetry.Metrics {
		return nil, noop, nil
	}

	interval, err := cfg.ExportInterval()
	if err != nil {
		return nil, noop, err
	}

	exporter, err := otlpmetrichttp.New(ctx)
	if err != nil {
		return nil, noop, fmt.Errorf("telemetry: create metric exporter: %w", err)
	}

	mp := newMeterProvider(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	otel.SetMeterProvider(mp)

	logger.Info("OpenTelemetry metrics enabled", "export_interval", interval)
	return mp.Meter(observability.MeterName), mp.Shutdown, nil
}

func newMeterProvider(reader sdkmetric.Reader) *sdkmetric.MeterProvider {
	res := resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", version),
	)
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
}
