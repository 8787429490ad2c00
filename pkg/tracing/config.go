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

// Package tracing holds the backend neutral building blocks of a tracing
// pipeline: its configuration, the resource identity, the trace ID based
// sampler, the request noise filter and the instrumentation sources to enable.
//
// Concrete tracing backends assemble these into a running pipeline.
package tracing

import (
	"fmt"
	"math"
	"net"

	"github.com/tetratelabs/multierror"
	"github.com/tetratelabs/run/pkg/version"

	"github.com/basvanbeek/routetracer/pkg"
)

const (
	// ErrSamplingRatio is reported when the sampling ratio is outside [0,1].
	ErrSamplingRatio pkg.Error = "sampling ratio must be between 0.0 and 1.0"
	// ErrExporterPort is reported when the exporter port is not a valid port.
	ErrExporterPort pkg.Error = "exporter port must be between 1 and 65535"

	errKafkaTopic pkg.Error = "kafka topic is required when brokers are set"
)

// default configuration values
const (
	DefaultServiceName  = "MyApp"
	DefaultSampleRatio  = 1.0
	DefaultExporterHost = "localhost"
	DefaultExporterPort = 6831
	DefaultKafkaTopic   = "zipkin"
)

// DefaultExcludedPaths holds the path fragments that are not worth tracing:
// health checks and static assets.
func DefaultExcludedPaths() []string {
	return []string{"/health", "/favicon", "/assets", "/css", "/js", "/img"}
}

// Config is the immutable input of a tracing pipeline. It is built once at
// process start from defaults, an optional config file, the environment and
// command line flags, and never changes after the pipeline is assembled.
type Config struct {
	ServiceName     string                `yaml:"ServiceName" env:"SERVICE_NAME"`
	ServiceVersion  string                `yaml:"ServiceVersion" env:"SERVICE_VERSION"`
	Sampling        SamplingConfig        `yaml:"Sampling" envPrefix:"SAMPLING_"`
	Sources         SourcesConfig         `yaml:"Sources" envPrefix:"SOURCES_"`
	Filter          FilterConfig          `yaml:"Filter" envPrefix:"FILTER_"`
	Instrumentation InstrumentationConfig `yaml:"Instrumentation" envPrefix:"INSTRUMENTATION_"`
	Exporters       ExportersConfig       `yaml:"Exporters" envPrefix:"EXPORTERS_"`
}

// SamplingConfig holds the sampling policy.
type SamplingConfig struct {
	Ratio float64 `yaml:"Ratio" env:"RATIO"`
}

// SourcesConfig holds the namespace of manually created spans to capture.
type SourcesConfig struct {
	Enabled bool `yaml:"Enabled" env:"ENABLED"`
	// Prefix is either a plain name prefix ("LMS") or a glob ("LMS.*"). If
	// empty the service name is used.
	Prefix string `yaml:"Prefix" env:"PREFIX"`
}

// FilterConfig holds the inbound request noise filter settings.
type FilterConfig struct {
	ExcludedPaths []string `yaml:"ExcludedPaths" env:"EXCLUDED_PATHS" envSeparator:","`
}

// InstrumentationConfig toggles and configures the automatic instrumentation
// sources.
type InstrumentationConfig struct {
	Inbound  HTTPSourceConfig     `yaml:"Inbound" envPrefix:"INBOUND_"`
	Outbound HTTPSourceConfig     `yaml:"Outbound" envPrefix:"OUTBOUND_"`
	Database DatabaseSourceConfig `yaml:"Database" envPrefix:"DATABASE_"`
}

// HTTPSourceConfig configures an inbound or outbound HTTP source.
type HTTPSourceConfig struct {
	Enabled         bool `yaml:"Enabled" env:"ENABLED"`
	RecordException bool `yaml:"RecordException" env:"RECORD_EXCEPTION"`
}

// DatabaseSourceConfig configures the database driver source.
type DatabaseSourceConfig struct {
	Enabled         bool `yaml:"Enabled" env:"ENABLED"`
	RecordStatement bool `yaml:"RecordStatement" env:"RECORD_STATEMENT"`
	RecordException bool `yaml:"RecordException" env:"RECORD_EXCEPTION"`
}

// ExportersConfig holds the exporter sink targets.
type ExportersConfig struct {
	Jaeger JaegerConfig `yaml:"Jaeger" envPrefix:"JAEGER_"`
	Kafka  KafkaConfig  `yaml:"Kafka" envPrefix:"KAFKA_"`
}

// JaegerConfig holds the collector agent endpoint.
type JaegerConfig struct {
	AgentHost string `yaml:"AgentHost" env:"AGENT_HOST"`
	AgentPort int    `yaml:"AgentPort" env:"AGENT_PORT"`
}

// KafkaConfig switches the exporter sink to Kafka when Brokers is not empty.
type KafkaConfig struct {
	Brokers []string `yaml:"Brokers" env:"BROKERS" envSeparator:","`
	Topic   string   `yaml:"Topic" env:"TOPIC"`
}

// Defaults returns a Config holding the default values of every setting.
func Defaults() Config {
	return Config{
		ServiceName:    DefaultServiceName,
		ServiceVersion: version.Parse(),
		Sampling:       SamplingConfig{Ratio: DefaultSampleRatio},
		Sources:        SourcesConfig{Enabled: true},
		Filter:         FilterConfig{ExcludedPaths: DefaultExcludedPaths()},
		Instrumentation: InstrumentationConfig{
			Inbound:  HTTPSourceConfig{Enabled: true, RecordException: true},
			Outbound: HTTPSourceConfig{Enabled: true, RecordException: true},
			Database: DatabaseSourceConfig{Enabled: true, RecordStatement: true, RecordException: true},
		},
		Exporters: ExportersConfig{
			Jaeger: JaegerConfig{AgentHost: DefaultExporterHost, AgentPort: DefaultExporterPort},
			Kafka:  KafkaConfig{Topic: DefaultKafkaTopic},
		},
	}
}

// UsesKafka reports whether spans are exported to Kafka instead of the
// collector agent.
func (c Config) UsesKafka() bool {
	return len(c.Exporters.Kafka.Brokers) > 0
}

// SourcePrefix returns the name prefix or glob of captured custom spans. It
// follows the service name unless a prefix is set explicitly.
func (c Config) SourcePrefix() string {
	if c.Sources.Prefix != "" {
		return c.Sources.Prefix
	}
	return c.ServiceName
}

// ExporterAddress returns the host:port of the collector agent.
func (c Config) ExporterAddress() string {
	return net.JoinHostPort(c.Exporters.Jaeger.AgentHost, fmt.Sprint(c.Exporters.Jaeger.AgentPort))
}

// Validate checks the configuration. All problems found are reported at once,
// wrapped in a *ConfigurationError.
func (c Config) Validate() error {
	var mErr error

	if c.ServiceName == "" {
		mErr = multierror.Append(mErr,
			fmt.Errorf(pkg.FlagErr, FlagServiceName, pkg.ErrRequired))
	}
	if r := c.Sampling.Ratio; math.IsNaN(r) || r < 0 || r > 1 {
		mErr = multierror.Append(mErr,
			fmt.Errorf(pkg.FlagErr, FlagSampleRatio, fmt.Errorf("%w: was %v", ErrSamplingRatio, r)))
	}
	if c.Exporters.Jaeger.AgentHost == "" {
		mErr = multierror.Append(mErr,
			fmt.Errorf(pkg.FlagErr, FlagExporterHost, pkg.ErrRequired))
	}
	if p := c.Exporters.Jaeger.AgentPort; p < 1 || p > 65535 {
		mErr = multierror.Append(mErr,
			fmt.Errorf(pkg.FlagErr, FlagExporterPort, fmt.Errorf("%w: was %d", ErrExporterPort, p)))
	}
	if _, err := NewSourceMatcher(c.SourcePrefix()); err != nil {
		mErr = multierror.Append(mErr,
			fmt.Errorf(pkg.FlagErr, FlagSourcePrefix, err))
	}
	if c.UsesKafka() {
		if c.Exporters.Kafka.Topic == "" {
			mErr = multierror.Append(mErr,
				fmt.Errorf(pkg.FlagErr, FlagKafkaTopic, errKafkaTopic))
		}
		for _, broker := range c.Exporters.Kafka.Brokers {
			if _, _, err := net.SplitHostPort(broker); err != nil {
				mErr = multierror.Append(mErr,
					fmt.Errorf(pkg.FlagErr, FlagKafkaBrokers, err))
			}
		}
	}

	if mErr != nil {
		return &ConfigurationError{Err: mErr}
	}
	return nil
}

// ConfigurationError is returned when a tracing pipeline can not be built
// from the provided configuration. It is fatal: the process should not start.
type ConfigurationError struct {
	Err error
}

// Error implements error.
func (e *ConfigurationError) Error() string {
	return "invalid tracing configuration: " + e.Err.Error()
}

// Unwrap returns the underlying validation error(s).
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
