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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basvanbeek/routetracer/pkg"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "MyApp", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.Sampling.Ratio)
	assert.Equal(t, "localhost", cfg.Exporters.Jaeger.AgentHost)
	assert.Equal(t, 6831, cfg.Exporters.Jaeger.AgentPort)
	assert.Equal(t, []string{"/health", "/favicon", "/assets", "/css", "/js", "/img"}, cfg.Filter.ExcludedPaths)
	assert.False(t, cfg.UsesKafka())
	assert.Equal(t, "localhost:6831", cfg.ExporterAddress())
	require.NoError(t, cfg.Validate())
}

func TestValidateSamplingRatio(t *testing.T) {
	tests := []struct {
		ratio float64
		valid bool
	}{
		{0, true},
		{0.00001, true},
		{0.5, true},
		{1, true},
		{-0.1, false},
		{1.0001, false},
		{math.NaN(), false},
		{math.Inf(1), false},
	}

	for _, tt := range tests {
		cfg := Defaults()
		cfg.Sampling.Ratio = tt.ratio
		err := cfg.Validate()
		if tt.valid {
			assert.NoError(t, err, "ratio %v", tt.ratio)
			continue
		}
		var cErr *ConfigurationError
		require.True(t, errors.As(err, &cErr), "ratio %v", tt.ratio)
		assert.True(t, pkg.HasError(err, ErrSamplingRatio), "ratio %v", tt.ratio)
		assert.ErrorContains(t, err, FlagSampleRatio)
	}
}

func TestValidateExporterPort(t *testing.T) {
	for _, port := range []int{1, 6831, 65535} {
		cfg := Defaults()
		cfg.Exporters.Jaeger.AgentPort = port
		assert.NoError(t, cfg.Validate(), "port %d", port)
	}
	for _, port := range []int{-1, 0, 65536, 100000} {
		cfg := Defaults()
		cfg.Exporters.Jaeger.AgentPort = port
		err := cfg.Validate()
		var cErr *ConfigurationError
		require.True(t, errors.As(err, &cErr), "port %d", port)
		assert.True(t, pkg.HasError(err, ErrExporterPort), "port %d", port)
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.ServiceName = ""
	cfg.Sampling.Ratio = 2
	cfg.Exporters.Jaeger.AgentHost = ""
	cfg.Exporters.Jaeger.AgentPort = 0
	cfg.Sources.Prefix = "MyApp.[" // unterminated class
	cfg.Exporters.Kafka.Brokers = []string{"kafka"}
	cfg.Exporters.Kafka.Topic = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid tracing configuration")
	for _, flag := range []string{
		FlagServiceName, FlagSampleRatio, FlagExporterHost, FlagExporterPort,
		FlagSourcePrefix, FlagKafkaBrokers, FlagKafkaTopic,
	} {
		assert.ErrorContains(t, err, "--"+flag)
	}
}

func TestKafka(t *testing.T) {
	cfg := Defaults()
	cfg.Exporters.Kafka.Brokers = []string{"kafka-0:9092", "kafka-1:9092"}
	assert.True(t, cfg.UsesKafka())
	assert.NoError(t, cfg.Validate())
}
