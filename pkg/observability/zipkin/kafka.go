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
	"context"
	"time"

	"github.com/openzipkin/zipkin-go/model"
	"github.com/openzipkin/zipkin-go/reporter"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/basvanbeek/routetracer/pkg/observability"
	"github.com/basvanbeek/routetracer/pkg/tracing"
)

const kafkaBatchTimeout = 100 * time.Millisecond

// kafkaReporter publishes each span as a Zipkin v2 JSON list holding a single
// span, keyed by trace ID so all spans of a trace land on the same partition.
type kafkaReporter struct {
	writer     *kafka.Writer
	serializer reporter.SpanSerializer
	logger     *zap.Logger
	metrics    *observability.Metrics
}

func newKafkaReporter(cfg tracing.KafkaConfig, logger *zap.Logger, metrics *observability.Metrics) *kafkaReporter {
	r := &kafkaReporter{
		serializer: reporter.JSONSerializer{},
		logger:     logger.Named("kafka"),
		metrics:    metrics,
	}
	r.writer = &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: kafkaBatchTimeout,
		Async:        true,
		Completion:   r.completion,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			r.logger.Sugar().Warnf(msg, args...)
		}),
	}
	return r
}

// Send implements reporter.Reporter
func (r *kafkaReporter) Send(s model.SpanModel) {
	payload, err := r.serializer.Serialize([]*model.SpanModel{&s})
	if err != nil {
		r.metrics.ExportFailed(TransportKafka)
		r.logger.Warn("failed to serialize span", zap.Error(err))
		return
	}
	// the writer is asynchronous, delivery failures are reported to completion
	if err = r.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(s.TraceID.String()),
		Value: payload,
	}); err != nil {
		r.metrics.ExportFailed(TransportKafka)
		r.logger.Warn("failed to enqueue span", zap.Error(err))
	}
}

// Close implements reporter.Reporter
func (r *kafkaReporter) Close() error {
	return r.writer.Close()
}

func (r *kafkaReporter) completion(messages []kafka.Message, err error) {
	if err == nil {
		return
	}
	r.metrics.ExportFailed(TransportKafka)
	r.logger.Warn("failed to export spans",
		zap.Int("spans", len(messages)),
		zap.Error(err),
	)
}
