// Package telemetry installs OpenTelemetry providers for the ceedling binary.
package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	// ExporterEnvVar selects the exporter: none, stdout, otlp-grpc or otlp-http.
	ExporterEnvVar = "CEEDLING_OTEL_EXPORTER"
	// InstanceEnvVar overrides the value hashed into service.instance.id.
	InstanceEnvVar = "CEEDLING_INSTANCE_ID"
	// ServiceName is reported on every span.
	ServiceName = "ceedling"
)

const ShutdownTimeout = 5 * time.Second

type exporters struct {
	trace  sdktrace.SpanExporter
	metric sdkmetric.Exporter
}

var (
	stdoutFactory = func(context.Context) (exporters, error) {
		tr, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return exporters{}, err
		}
		mt, err := stdoutmetric.New()
		if err != nil {
			return exporters{}, err
		}
		return exporters{trace: tr, metric: mt}, nil
	}
	otlpGRPCFactory = func(ctx context.Context) (exporters, error) {
		tr, err := otlptrace.New(ctx, otlptracegrpc.NewClient())
		return exporters{trace: tr}, err
	}
	otlpHTTPFactory = func(ctx context.Context) (exporters, error) {
		tr, err := otlptrace.New(ctx, otlptracehttp.NewClient())
		return exporters{trace: tr}, err
	}
)

func noopShutdown(context.Context) error { return nil }

// InitProvider configures global OpenTelemetry providers from CEEDLING_OTEL_EXPORTER.
// Unknown or empty values leave the global no-op providers in place.
func InitProvider(ctx context.Context) (func(context.Context) error, error) {
	var factory func(context.Context) (exporters, error)
	switch strings.ToLower(strings.TrimSpace(os.Getenv(ExporterEnvVar))) {
	case "stdout":
		factory = stdoutFactory
	case "otlp-grpc":
		factory = otlpGRPCFactory
	case "otlp-http":
		factory = otlpHTTPFactory
	default:
		return noopShutdown, nil
	}

	exp, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}
	return installProvider(ctx, exp)
}

func installProvider(ctx context.Context, exp exporters) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(ServiceName),
			semconv.ServiceInstanceIDKey.String(hashInstanceID()),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp.trace),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	var mp *sdkmetric.MeterProvider
	if exp.metric != nil {
		mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp.metric)),
			sdkmetric.WithResource(res),
		)
		otel.SetMeterProvider(mp)
	}

	return func(ctx context.Context) error {
		if mp != nil {
			if err := mp.Shutdown(ctx); err != nil {
				return err
			}
		}
		return tp.Shutdown(ctx)
	}, nil
}

func hashInstanceID() string {
	input := os.Getenv(InstanceEnvVar)
	if input == "" {
		if host, err := os.Hostname(); err == nil {
			input = host
		}
	}
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}
