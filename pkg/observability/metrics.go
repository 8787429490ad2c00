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

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "routetracer"

// Metrics holds the tracing pipeline counters. A nil *Metrics is valid and
// counts nothing.
type Metrics struct {
	requestsFiltered prometheus.Counter
	spansEnriched    prometheus.Counter
	spansReported    prometheus.Counter
	exportErrors     *prometheus.CounterVec
}

// NewMetrics creates the tracing pipeline counters and registers them with reg.
// A nil reg creates unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requestsFiltered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_filtered_total",
			Help:      "Inbound requests excluded from tracing by the noise filter.",
		}),
		spansEnriched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "spans_enriched_total",
			Help:      "Server spans renamed after their route pattern.",
		}),
		spansReported: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "spans_reported_total",
			Help:      "Sampled spans handed to the exporter sink.",
		}),
		exportErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "export_errors_total",
			Help:      "Span export failures by exporter transport.",
		}, []string{"transport"}),
	}
}

// RequestFiltered counts a request excluded by the noise filter.
func (m *Metrics) RequestFiltered() {
	if m != nil {
		m.requestsFiltered.Inc()
	}
}

// SpanEnriched counts a span renamed after its route.
func (m *Metrics) SpanEnriched() {
	if m != nil {
		m.spansEnriched.Inc()
	}
}

// SpanReported counts a span handed to the exporter sink.
func (m *Metrics) SpanReported() {
	if m != nil {
		m.spansReported.Inc()
	}
}

// ExportFailed counts a failed export over the named transport.
func (m *Metrics) ExportFailed(transport string) {
	if m != nil {
		m.exportErrors.WithLabelValues(transport).Inc()
	}
}
