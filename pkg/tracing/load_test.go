// Copyright (c) Bas van Beek 2022.
// Copyright (c) Tetrate, Inc 2021.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const configFile = `
Logging:
  Level: debug
OpenTelemetry:
  ServiceName: Checkout
  Sampling:
    Ratio: 0.25
  Sources:
    Prefix: Checkout.*
  Filter:
    ExcludedPaths: [/health, /metrics]
  Instrumentation:
    Database:
      Enabled: true
      RecordStatement: false
  Exporters:
    Jaeger:
      AgentHost: zipkin
      AgentPort: 9411
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tracing.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	expected := Defaults()
	assert.Equal(t, expected, cfg)
}

func TestLoadFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, configFile))
	require.NoError(t, err)

	assert.Equal(t, "Checkout", cfg.ServiceName)
	assert.Equal(t, 0.25, cfg.Sampling.Ratio)
	assert.Equal(t, "Checkout.*", cfg.Sources.Prefix)
	assert.Equal(t, []string{"/health", "/metrics"}, cfg.Filter.ExcludedPaths)
	assert.True(t, cfg.Instrumentation.Database.Enabled)
	assert.False(t, cfg.Instrumentation.Database.RecordStatement)
	assert.Equal(t, "zipkin", cfg.Exporters.Jaeger.AgentHost)
	assert.Equal(t, 9411, cfg.Exporters.Jaeger.AgentPort)
	// untouched keys keep their defaults
	assert.True(t, cfg.Instrumentation.Inbound.Enabled)
	assert.Equal(t, DefaultKafkaTopic, cfg.Exporters.Kafka.Topic)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "Billing")
	t.Setenv("OTEL_SAMPLING_RATIO", "0.5")
	t.Setenv("OTEL_EXPORTERS_JAEGER_AGENT_PORT", "14268")
	t.Setenv("OTEL_EXPORTERS_KAFKA_BROKERS", "kafka-0:9092,kafka-1:9092")
	t.Setenv("OTEL_INSTRUMENTATION_OUTBOUND_ENABLED", "false")

	cfg, err := Load(writeConfig(t, configFile))
	require.NoError(t, err)

	assert.Equal(t, "Billing", cfg.ServiceName)
	assert.Equal(t, 0.5, cfg.Sampling.Ratio)
	assert.Equal(t, "zipkin", cfg.Exporters.Jaeger.AgentHost)
	assert.Equal(t, 14268, cfg.Exporters.Jaeger.AgentPort)
	assert.Equal(t, []string{"kafka-0:9092", "kafka-1:9092"}, cfg.Exporters.Kafka.Brokers)
	assert.False(t, cfg.Instrumentation.Outbound.Enabled)
}

func TestLoadSourcePrefixFollowsServiceName(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "Billing")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Billing", cfg.SourcePrefix())

	cfg.ServiceName = "Ledger"
	assert.Equal(t, "Ledger", cfg.SourcePrefix())

	t.Setenv("OTEL_SOURCES_PREFIX", "Billing.*")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "Billing.*", cfg.SourcePrefix())
}

func TestLoadErrors(t *testing.T) {
	var cErr *ConfigurationError

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.As(err, &cErr))

	_, err = Load(writeConfig(t, "OpenTelemetry: [not, a, map]"))
	assert.True(t, errors.As(err, &cErr))

	t.Setenv("OTEL_SAMPLING_RATIO", "half")
	_, err = Load("")
	assert.True(t, errors.As(err, &cErr))
}

func TestDecodeEmpty(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Decode(nil, &cfg))
	assert.Equal(t, Defaults(), cfg)
}
