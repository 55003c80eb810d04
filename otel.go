package swapplanner

import (
	"context"
	"errors"
	"fmt"

	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	TracerNamePlanner = "swapplanner/planner"
	MeterNamePlanner  = "swapplanner/planner"
)

// OtelConfig is a configuration struct for the OpenTelemetry providers.
type OtelConfig struct {
	Endpoint       string `env:"OTEL_EXPORTER_OTLP_ENDPOINT,default=set-me"`
	Headers        string `env:"OTEL_EXPORTER_OTLP_HEADERS,default=set-me"`
	ServiceVersion string `env:"OTEL_SERVICE_VERSION,default=0.1.0"`
	ServiceName    string `env:"OTEL_SERVICE_NAME,default=swap-planner"`
	DeployEnv      string `env:"OTEL_DEPLOY_ENV,default=development"`
}

type otelShutdown func(ctx context.Context) error

// errExporterShutdown is what the gRPC exporters report when the providers
// already shut them down.
const errExporterShutdown = "gRPC exporter is shutdown"

// InitOtel registers global trace and meter providers exporting over OTLP/gRPC
// and returns them with a shutdown function. Exporters connect lazily, so a
// missing collector does not fail startup.
func InitOtel(ctx context.Context) (*sdktrace.TracerProvider, *metric.MeterProvider, otelShutdown, error) {
	var cfg OtelConfig
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, nil, nil, err
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("otel resource: %w", err)
	}

	tracerProvider, err := newTracerProvider(ctx, res)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("otel traces: %w", err)
	}

	meterProvider, err := newMeterProvider(ctx, res)
	if err != nil {
		return nil, nil, nil, errors.Join(fmt.Errorf("otel metrics: %w", err), tracerProvider.Shutdown(ctx))
	}

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	shutdown := func(ctx context.Context) error {
		err := errors.Join(
			tracerProvider.Shutdown(ctx),
			meterProvider.Shutdown(ctx),
		)
		if err != nil && err.Error() == errExporterShutdown {
			return nil
		}
		return err
	}

	return tracerProvider, meterProvider, shutdown, nil
}

// newResource describes the planner service. The service attributes carry no
// schema URL so they merge with the SDK default whatever semconv version the
// SDK was built against.
func newResource(cfg OtelConfig) (*resource.Resource, error) {
	return resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.DeployEnv),
	))
}

func newTracerProvider(ctx context.Context, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptrace.New(ctx, otlptracegrpc.NewClient())
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	), nil
}

func newMeterProvider(ctx context.Context, res *resource.Resource) (*metric.MeterProvider, error) {
	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, err
	}
	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	), nil
}
