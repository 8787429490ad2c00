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
	"github.com/tetratelabs/run"
)

// flags
const (
	FlagServiceName     = "tracing-service-name"
	FlagServiceVersion  = "tracing-service-version"
	FlagSampleRatio     = "tracing-sample-ratio"
	FlagSources         = "tracing-custom-spans"
	FlagSourcePrefix    = "tracing-source-prefix"
	FlagExcludedPaths   = "tracing-excluded-paths"
	FlagExporterHost    = "tracing-exporter-host"
	FlagExporterPort    = "tracing-exporter-port"
	FlagKafkaBrokers    = "tracing-kafka-brokers"
	FlagKafkaTopic      = "tracing-kafka-topic"
	FlagInbound         = "tracing-inbound-http"
	FlagOutbound        = "tracing-outbound-http"
	FlagDatabase        = "tracing-database"
	FlagRecordStatement = "tracing-record-statement"
)

// FlagSet returns the command line flags overriding the configuration. The
// current values of c are used as flag defaults.
func (c *Config) FlagSet() *run.FlagSet {
	flags := run.NewFlagSet("Tracing pipeline config")

	flags.StringVar(
		&c.ServiceName,
		FlagServiceName,
		c.ServiceName,
		`Service name reported by the tracing pipeline`)
	flags.StringVar(
		&c.ServiceVersion,
		FlagServiceVersion,
		c.ServiceVersion,
		`Service version reported by the tracing pipeline`)
	flags.Float64Var(
		&c.Sampling.Ratio,
		FlagSampleRatio,
		c.Sampling.Ratio,
		`Ratio of traces to sample, between never (0.0) and always (1.0)`)
	flags.BoolVar(
		&c.Sources.Enabled,
		FlagSources,
		c.Sources.Enabled,
		`Capture custom spans created by the service`)
	flags.StringVar(
		&c.Sources.Prefix,
		FlagSourcePrefix,
		c.Sources.Prefix,
		`Name prefix or glob of custom span sources to capture, e.g. "MyApp" or "MyApp.*", defaults to the service name`)
	flags.StringSliceVar(
		&c.Filter.ExcludedPaths,
		FlagExcludedPaths,
		c.Filter.ExcludedPaths,
		`Request path fragments (case-insensitive) to exclude from tracing`)
	flags.StringVar(
		&c.Exporters.Jaeger.AgentHost,
		FlagExporterHost,
		c.Exporters.Jaeger.AgentHost,
		`Host of the span collector`)
	flags.IntVar(
		&c.Exporters.Jaeger.AgentPort,
		FlagExporterPort,
		c.Exporters.Jaeger.AgentPort,
		`Port of the span collector`)
	flags.StringSliceVar(
		&c.Exporters.Kafka.Brokers,
		FlagKafkaBrokers,
		c.Exporters.Kafka.Brokers,
		`Kafka brokers (host:port) to export spans to instead of the collector`)
	flags.StringVar(
		&c.Exporters.Kafka.Topic,
		FlagKafkaTopic,
		c.Exporters.Kafka.Topic,
		`Kafka topic to export spans to`)
	flags.BoolVar(
		&c.Instrumentation.Inbound.Enabled,
		FlagInbound,
		c.Instrumentation.Inbound.Enabled,
		`Trace inbound HTTP requests`)
	flags.BoolVar(
		&c.Instrumentation.Outbound.Enabled,
		FlagOutbound,
		c.Instrumentation.Outbound.Enabled,
		`Trace outbound HTTP client requests`)
	flags.BoolVar(
		&c.Instrumentation.Database.Enabled,
		FlagDatabase,
		c.Instrumentation.Database.Enabled,
		`Trace database queries`)
	flags.BoolVar(
		&c.Instrumentation.Database.RecordStatement,
		FlagRecordStatement,
		c.Instrumentation.Database.RecordStatement,
		`Record the SQL statement text on database spans`)

	return flags
}
