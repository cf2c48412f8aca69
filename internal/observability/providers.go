package observability

import (
	"context"
	"fmt"

	"github.com/ca-srg/aisearch/internal/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Init installs global tracer and meter providers. When OpenTelemetry is
// disabled the providers are still installed but never export.
func Init(ctx context.Context, rootCfg *types.Config) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	cfg, err := ConfigFrom(rootCfg)
	if err != nil {
		return noop, err
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if !cfg.Enabled {
		tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample()))
		mp := sdkmetric.NewMeterProvider()
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		return NewShutdownFunc(tp, mp), nil
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return noop, fmt.Errorf("observability: failed to build resource: %w", err)
	}

	spanExporter, err := newSpanExporter(ctx, cfg)
	if err != nil {
		return noop, fmt.Errorf("observability: failed to create trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler(cfg)),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(spanExporter),
	)

	metricExporter, err := newMetricExporter(ctx, cfg)
	if err != nil {
		_ = NewShutdownFunc(tp, nil)(ctx)
		return noop, fmt.Errorf("observability: failed to create metric exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter, sdkmetric.WithInterval(cfg.ExportInterval))),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	return NewShutdownFunc(tp, mp), nil
}

func sampler(cfg *Config) sdktrace.Sampler {
	switch cfg.Sampler {
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplerArg))
	case "parentbased_always_on":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	default:
		return sdktrace.AlwaysSample()
	}
}

func buildResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	attrs := make([]attribute.KeyValue, 0, len(cfg.ResourceAttributes))
	for key, value := range cfg.ResourceAttributes {
		attrs = append(attrs, attribute.String(key, value))
	}

	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
}
