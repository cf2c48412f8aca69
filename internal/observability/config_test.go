package observability

import (
	"testing"

	"github.com/ca-srg/aisearch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromDisabledDefaults(t *testing.T) {
	cfg, err := ConfigFrom(&types.Config{})
	require.NoError(t, err)

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "aisearch", cfg.ServiceName)
	assert.Equal(t, ProtocolHTTPProtobuf, cfg.Protocol)
	assert.Equal(t, "always_on", cfg.Sampler)
	assert.Equal(t, "aisearch", cfg.ResourceAttributes["service.name"])
}

func TestConfigFromValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     types.Config
		wantErr string
	}{
		{
			name:    "missing endpoint",
			cfg:     types.Config{OTelEnabled: true},
			wantErr: "OTEL_EXPORTER_OTLP_ENDPOINT",
		},
		{
			name:    "http protocol needs scheme",
			cfg:     types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "collector:4318"},
			wantErr: "http(s) URL",
		},
		{
			name:    "grpc needs port",
			cfg:     types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "collector", OTelExporterOTLPProtocol: "grpc"},
			wantErr: "host:port",
		},
		{
			name:    "unknown protocol",
			cfg:     types.Config{OTelEnabled: true, OTelExporterOTLPEndpoint: "http://c:4318", OTelExporterOTLPProtocol: "thrift"},
			wantErr: "unsupported OTLP protocol",
		},
		{
			name: "ratio out of range",
			cfg: types.Config{
				OTelEnabled:              true,
				OTelExporterOTLPEndpoint: "http://c:4318",
				OTelTracesSampler:        "traceidratio",
				OTelTracesSamplerArg:     1.5,
			},
			wantErr: "OTEL_TRACES_SAMPLER_ARG",
		},
		{
			name:    "bad resource attributes",
			cfg:     types.Config{OTelResourceAttributes: "env"},
			wantErr: "OTEL_RESOURCE_ATTRIBUTES",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ConfigFrom(&tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := ConfigFrom(nil)
	assert.Error(t, err)
}

func TestConfigFromResourceAttributes(t *testing.T) {
	cfg, err := ConfigFrom(&types.Config{
		OTelServiceName:        "search-api",
		OTelResourceAttributes: "deployment.environment=staging, team = search ,",
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"deployment.environment": "staging",
		"team":                   "search",
		"service.name":           "search-api",
	}, cfg.ResourceAttributes)
}

func TestSignalURL(t *testing.T) {
	tests := []struct {
		endpoint string
		want     string
	}{
		{"https://collector:4318", "https://collector:4318/v1/traces"},
		{"https://example.com/otlp/", "https://example.com/otlp/v1/traces"},
		{"https://example.com/otlp/v1/traces", "https://example.com/otlp/v1/traces"},
		{"https://example.com/otlp?token=abc", "https://example.com/otlp/v1/traces?token=abc"},
	}
	for _, tt := range tests {
		got, err := signalURL(tt.endpoint, "/v1/traces")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := signalURL("", "/v1/traces")
	assert.Error(t, err)
}

func TestGRPCTarget(t *testing.T) {
	target, insecure, err := grpcTarget("collector:4317")
	require.NoError(t, err)
	assert.Equal(t, "collector:4317", target)
	assert.True(t, insecure)

	target, insecure, err = grpcTarget("https://otel.example.com:443")
	require.NoError(t, err)
	assert.Equal(t, "otel.example.com:443", target)
	assert.False(t, insecure)

	_, _, err = grpcTarget("ftp://x:1")
	assert.Error(t, err)
}
