package observability

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func newSpanExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	if cfg.Protocol == ProtocolGRPC {
		target, insecure, err := grpcTarget(cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
		if insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}

	endpoint, err := signalURL(cfg.Endpoint, "/v1/traces")
	if err != nil {
		return nil, err
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
	if strings.HasPrefix(endpoint, "http://") {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

func newMetricExporter(ctx context.Context, cfg *Config) (sdkmetric.Exporter, error) {
	if cfg.Protocol == ProtocolGRPC {
		target, insecure, err := grpcTarget(cfg.Endpoint)
		if err != nil {
			return nil, err
		}
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
		if insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	}

	endpoint, err := signalURL(cfg.Endpoint, "/v1/metrics")
	if err != nil {
		return nil, err
	}
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(endpoint)}
	if strings.HasPrefix(endpoint, "http://") {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

// signalURL appends the per-signal path (e.g. /v1/traces) unless the endpoint
// already ends with it. Query strings are kept.
func signalURL(endpoint, signalPath string) (string, error) {
	if strings.TrimSpace(endpoint) == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	base := strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(base, signalPath) {
		base += signalPath
	}
	u.Path = base
	return u.String(), nil
}

// grpcTarget returns host:port and whether the connection should skip TLS.
// Bare host:port targets are treated as plaintext.
func grpcTarget(endpoint string) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, fmt.Errorf("endpoint cannot be empty")
	}
	if !strings.Contains(endpoint, "://") {
		if !strings.Contains(endpoint, ":") {
			return "", false, fmt.Errorf("grpc endpoint must be host:port")
		}
		return endpoint, true, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("grpc endpoint must include a host")
	}
	switch u.Scheme {
	case "http", "grpc":
		return u.Host, true, nil
	case "https", "grpcs":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}
