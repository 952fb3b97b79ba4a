// Copyright (c) 2026 Devrun Team
// Devrun - developer task runner
// This source code is licensed under the MIT license found in the LICENSE file.

// Package telemetry exports task spans over OTLP when an endpoint is set.
package telemetry

import (
	"context"
	"os"
	"strings"

	"github.com/toeirei/devrun/buildvars"
	"github.com/toeirei/devrun/config"
	"github.com/toeirei/devrun/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and stops the exporter.
type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Setup installs a global tracer provider exporting to the configured OTLP
// gRPC endpoint, falling back to OTEL_EXPORTER_OTLP_ENDPOINT. Without an
// endpoint tracing stays a no-op. Exporter failures are logged, not fatal.
func Setup(ctx context.Context, cfg config.TelemetryConfig, serviceName string) ShutdownFunc {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	if endpoint == "" {
		return noop
	}

	var opts []otlptracegrpc.Option
	if strings.Contains(endpoint, "://") {
		opts = append(opts, otlptracegrpc.WithEndpointURL(endpoint))
	} else {
		opts = append(opts, otlptracegrpc.WithEndpoint(endpoint))
	}
	if cfg.Insecure || os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true" {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		logging.Warnf("otel exporter error: %v", err)
		return noop
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(buildvars.VersionOrDefault("dev")),
	))
	if err != nil {
		logging.Warnf("otel resource error: %v", err)
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	logging.Debugf("tracing to %s", endpoint)

	return provider.Shutdown
}
