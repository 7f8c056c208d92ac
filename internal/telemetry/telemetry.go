// Package telemetry owns the OpenTelemetry meter provider and the metric
// instruments the server records.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophdrop/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// ExportInterval is how often metrics are pushed to the collector.
const ExportInterval = 10 * time.Second

var newMetricExporter = func(ctx context.Context) (sdkmetric.Exporter, error) {
	return otlpmetricgrpc.New(ctx)
}

// InitTelemetry installs a global meter provider exporting over OTLP/gRPC.
// Exporter settings come from the standard OTEL_EXPORTER_OTLP_* variables.
// When OTEL_EXPORTER_OTLP_ENDPOINT is unset nothing is installed and the
// instruments stay no-ops.
//
// Returns a shutdown function that should be called on graceful shutdown.
func InitTelemetry(ctx context.Context, serviceName, version string, logger logging.Logger) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	if os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") == "" {
		logger.Debug(ctx, "OTLP endpoint not set, metrics export disabled")
		return noop, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
		resource.WithFromEnv(),
		resource.WithHost(),
	)
	if err != nil {
		return noop, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newMetricExporter(ctx)
	if err != nil {
		return noop, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(ExportInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info(ctx, "OpenTelemetry initialized", "service", serviceName, "version", version)

	return mp.Shutdown, nil
}
