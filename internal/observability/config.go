// Package observability wires OpenTelemetry tracing and metrics for the search backend.
package observability

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ca-srg/aisearch/internal/types"
)

const (
	defaultServiceName    = "aisearch"
	ProtocolHTTPProtobuf  = "http/protobuf"
	ProtocolGRPC          = "grpc"
	serviceNameAttribute  = "service.name"
	defaultExportInterval = 30 * time.Second
)

// Config holds the OpenTelemetry settings derived from the root configuration.
type Config struct {
	Enabled            bool
	ServiceName        string
	Endpoint           string
	Protocol           string
	ResourceAttributes map[string]string
	Sampler            string
	SamplerArg         float64
	ExportInterval     time.Duration
}

// ConfigFrom extracts and validates the OTEL_* fields of cfg.
func ConfigFrom(cfg *types.Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("observability: nil configuration")
	}

	attrs, err := parseResourceAttributes(cfg.OTelResourceAttributes)
	if err != nil {
		return nil, fmt.Errorf("observability: invalid OTEL_RESOURCE_ATTRIBUTES: %w", err)
	}

	c := &Config{
		Enabled:            cfg.OTelEnabled,
		ServiceName:        strings.TrimSpace(cfg.OTelServiceName),
		Endpoint:           strings.TrimSpace(cfg.OTelExporterOTLPEndpoint),
		Protocol:           strings.ToLower(strings.TrimSpace(cfg.OTelExporterOTLPProtocol)),
		ResourceAttributes: attrs,
		Sampler:            strings.ToLower(strings.TrimSpace(cfg.OTelTracesSampler)),
		SamplerArg:         cfg.OTelTracesSamplerArg,
	}
	if err := c.normalize(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) normalize() error {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.Protocol == "" {
		c.Protocol = ProtocolHTTPProtobuf
	}
	if c.Sampler == "" {
		c.Sampler = "always_on"
	}
	if c.ExportInterval <= 0 {
		c.ExportInterval = defaultExportInterval
	}
	if c.ResourceAttributes == nil {
		c.ResourceAttributes = map[string]string{}
	}
	if _, ok := c.ResourceAttributes[serviceNameAttribute]; !ok {
		c.ResourceAttributes[serviceNameAttribute] = c.ServiceName
	}

	if !c.Enabled {
		return nil
	}

	if c.Endpoint == "" {
		return fmt.Errorf("observability: OTEL_EXPORTER_OTLP_ENDPOINT is required when OTEL_ENABLED=true")
	}

	switch c.Protocol {
	case ProtocolHTTPProtobuf:
		u, err := url.Parse(c.Endpoint)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("observability: endpoint %q must be an http(s) URL for %s", c.Endpoint, ProtocolHTTPProtobuf)
		}
	case ProtocolGRPC:
		if _, _, err := grpcTarget(c.Endpoint); err != nil {
			return fmt.Errorf("observability: endpoint %q: %w", c.Endpoint, err)
		}
	default:
		return fmt.Errorf("observability: unsupported OTLP protocol %q", c.Protocol)
	}

	if c.Sampler == "traceidratio" && (c.SamplerArg <= 0 || c.SamplerArg > 1) {
		return fmt.Errorf("observability: OTEL_TRACES_SAMPLER_ARG must be in (0, 1] for traceidratio")
	}
	return nil
}

// parseResourceAttributes reads "k1=v1,k2=v2".
func parseResourceAttributes(raw string) (map[string]string, error) {
	attrs := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("malformed attribute %q", pair)
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs, nil
}
