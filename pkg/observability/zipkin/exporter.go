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

package zipkin

import (
	"fmt"
	"net/http"
	"time"

	"github.com/openzipkin/zipkin-go/model"
	"github.com/openzipkin/zipkin-go/reporter"
	zrpr "github.com/openzipkin/zipkin-go/reporter/http"
	"go.uber.org/zap"

	"github.com/basvanbeek/routetracer/pkg/observability"
	"github.com/basvanbeek/routetracer/pkg/tracing"
)

// exporter transports
const (
	TransportHTTP  = "http"
	TransportKafka = "kafka"
)

const (
	collectorPath    = "/api/v2/spans"
	collectorTimeout = 5 * time.Second
)

// CollectorURL returns the Zipkin v2 HTTP collector endpoint of the configured
// exporter host and port.
func CollectorURL(cfg tracing.Config) string {
	return fmt.Sprintf("http://%s%s", cfg.ExporterAddress(), collectorPath)
}

func exporterName(cfg tracing.Config, external reporter.Reporter) string {
	switch {
	case external != nil:
		return "external"
	case cfg.UsesKafka():
		return TransportKafka
	default:
		return TransportHTTP
	}
}

// newExporter creates the exporter sink. Kafka brokers take precedence over the
// collector agent.
func newExporter(cfg tracing.Config, logger *zap.Logger, metrics *observability.Metrics) reporter.Reporter {
	if cfg.UsesKafka() {
		return newKafkaReporter(cfg.Exporters.Kafka, logger, metrics)
	}
	return zrpr.NewReporter(
		CollectorURL(cfg),
		zrpr.Client(&countingDoer{
			client:  &http.Client{Timeout: collectorTimeout},
			metrics: metrics,
		}),
		zrpr.Logger(zap.NewStdLog(logger.Named("exporter"))),
	)
}

// countingDoer counts failed span batch uploads.
type countingDoer struct {
	client  *http.Client
	metrics *observability.Metrics
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	res, err := d.client.Do(req)
	if err != nil || res.StatusCode < 200 || res.StatusCode > 299 {
		d.metrics.ExportFailed(TransportHTTP)
	}
	return res, err
}

// countingReporter counts the spans handed to the exporter sink.
type countingReporter struct {
	reporter.Reporter
	metrics *observability.Metrics
}

func (r *countingReporter) Send(s model.SpanModel) {
	r.metrics.SpanReported()
	r.Reporter.Send(s)
}
