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
	"testing"

	"github.com/openzipkin/zipkin-go/model"
	"github.com/openzipkin/zipkin-go/reporter/recorder"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/basvanbeek/routetracer/pkg/tracing"
)

func TestExporterName(t *testing.T) {
	cfg := tracing.Defaults()
	assert.Equal(t, TransportHTTP, exporterName(cfg, nil))
	assert.Equal(t, "external", exporterName(cfg, recorder.NewReporter()))
	cfg.Exporters.Kafka.Brokers = []string{"kafka:9092"}
	assert.Equal(t, TransportKafka, exporterName(cfg, nil))
}

func TestCountingReporter(t *testing.T) {
	rec := recorder.NewReporter()
	r := &countingReporter{Reporter: rec}
	r.Send(model.SpanModel{Name: "a"})
	r.Send(model.SpanModel{Name: "b"})
	assert.Len(t, rec.Flush(), 2)
}

func TestKafkaReporterWriter(t *testing.T) {
	r := newKafkaReporter(tracing.KafkaConfig{
		Brokers: []string{"kafka-0:9092", "kafka-1:9092"},
		Topic:   "spans",
	}, zap.NewNop(), nil)

	assert.Equal(t, "spans", r.writer.Topic)
	assert.Equal(t, "kafka-0:9092,kafka-1:9092", r.writer.Addr.String())
	assert.True(t, r.writer.Async)
	assert.NoError(t, r.Close())
}
