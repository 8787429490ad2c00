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
	"fmt"
	"net"
	"net/http"

	"github.com/openzipkin/zipkin-go"
	zmw "github.com/openzipkin/zipkin-go/middleware/http"
	"github.com/openzipkin/zipkin-go/propagation/baggage"
	"github.com/openzipkin/zipkin-go/reporter"
	"go.uber.org/zap"

	"github.com/basvanbeek/routetracer/pkg"
	"github.com/basvanbeek/routetracer/pkg/observability"
	"github.com/basvanbeek/routetracer/pkg/tracing"
)

// Option configures a Pipeline at assembly time.
type Option func(*Pipeline)

// WithReporter makes the Pipeline export spans to rep instead of creating its
// own exporter sink. The caller owns rep and is responsible for closing it.
func WithReporter(rep reporter.Reporter) Option {
	return func(p *Pipeline) {
		p.external = rep
	}
}

// WithLogger sets the logger used by the Pipeline and its exporter sink.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics makes the Pipeline count filtered requests, reported spans and
// export failures.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithLocalHostport sets the ip:port reported as local endpoint of each span.
func WithLocalHostport(hostport string) Option {
	return func(p *Pipeline) {
		p.localHostport = hostport
	}
}

// WithSharedSpans toggles Zipkin RPC shared spans. Enabled by default.
func WithSharedSpans(shared bool) Option {
	return func(p *Pipeline) {
		p.sharedSpans = shared
	}
}

// Pipeline is an assembled Zipkin tracing pipeline. It is immutable once
// assembled and safe for concurrent use.
type Pipeline struct {
	Resource tracing.Resource
	Sampler  tracing.Sampler
	Sources  []tracing.Source
	Filter   tracing.NoiseFilter
	Exporter reporter.Reporter

	tracer        *zipkin.Tracer
	sourceMatcher tracing.SourceMatcher
	logger        *zap.Logger
	metrics       *observability.Metrics
	localHostport string
	sharedSpans   bool
	external      reporter.Reporter
	ownsExporter  bool
}

// static compile time interface validation
var _ observability.Instrumenter = (*Pipeline)(nil)

// Assemble validates cfg and builds the tracing pipeline from it. Assembly is
// all or nothing: if any setting is invalid a *tracing.ConfigurationError
// holding every problem found is returned and nothing is constructed.
//
// The exporter sink is created but connectivity is not checked; export
// failures are logged and counted later, they never reach request handling.
func Assemble(cfg tracing.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{sharedSpans: true}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.L()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p.localHostport != "" {
		if _, _, err := net.SplitHostPort(p.localHostport); err != nil {
			return nil, &tracing.ConfigurationError{Err: fmt.Errorf(pkg.FlagErr, LocalHostport, err)}
		}
	}

	var err error

	// 1. resource identity
	p.Resource = tracing.NewResource(cfg.ServiceName, cfg.ServiceVersion)

	// 2. trace ID ratio sampler
	if p.Sampler, err = tracing.NewSampler(cfg.Sampling.Ratio); err != nil {
		return nil, &tracing.ConfigurationError{Err: fmt.Errorf(pkg.FlagErr, tracing.FlagSampleRatio, err)}
	}

	// 3. instrumentation sources
	p.Sources = cfg.RegisteredSources()

	// 4. inbound request noise filter
	p.Filter = tracing.NewNoiseFilter(cfg.Filter.ExcludedPaths)

	// 5. custom span source
	if p.sourceMatcher, err = tracing.NewSourceMatcher(cfg.SourcePrefix()); err != nil {
		return nil, &tracing.ConfigurationError{Err: fmt.Errorf(pkg.FlagErr, tracing.FlagSourcePrefix, err)}
	}

	// 6. exporter sink
	ep, err := zipkin.NewEndpoint(p.Resource.ServiceName, p.localHostport)
	if err != nil {
		return nil, &tracing.ConfigurationError{Err: err}
	}
	rep := p.external
	if rep == nil {
		p.ownsExporter = true
		rep = newExporter(cfg, p.logger, p.metrics)
	}
	p.Exporter = &countingReporter{Reporter: rep, metrics: p.metrics}

	tags := p.Resource.Tags()
	if p.Resource.ServiceVersion != "" {
		tags[observability.VersionTag] = p.Resource.ServiceVersion
	}

	p.tracer, err = zipkin.NewTracer(
		p.Exporter,
		zipkin.WithLocalEndpoint(ep),
		zipkin.WithSharedSpans(p.sharedSpans),
		zipkin.WithSampler(zipkin.Sampler(p.Sampler)),
		zipkin.WithNoopSpan(true),
		zipkin.WithTags(tags),
	)
	if err != nil {
		_ = p.Close() // nolint: errcheck
		return nil, err
	}

	p.logger.Info("tracing pipeline assembled",
		zap.String("service", p.Resource.ServiceName),
		zap.String("version", p.Resource.ServiceVersion),
		zap.Float64("sampling_ratio", cfg.Sampling.Ratio),
		zap.String("exporter", exporterName(cfg, p.external)),
	)

	return p, nil
}

// Close flushes and closes the exporter sink if the Pipeline created it.
func (p *Pipeline) Close() error {
	if p.ownsExporter && p.Exporter != nil {
		return p.Exporter.Close()
	}
	return nil
}

// Source implements observability.Sourcer
func (p *Pipeline) Source(kind tracing.SourceKind) tracing.Source {
	src, _ := tracing.LookupSource(p.Sources, kind)
	return src
}

// Tracer implements observability.Tracerer
func (p *Pipeline) Tracer() observability.Tracer {
	return &traceAdapter{delegate: p.tracer}
}

// SourceTracer implements observability.Tracerer
func (p *Pipeline) SourceTracer(name string) observability.Tracer {
	if !p.Source(tracing.SourceCustom).Enabled || !p.sourceMatcher(name) {
		return observability.NoopTracer
	}
	return &traceAdapter{delegate: p.tracer}
}

// SpanFromContext implements observability.Contexter. Spans of traces dropped
// by the sampler are not returned.
func (p *Pipeline) SpanFromContext(ctx context.Context) observability.Span {
	span := zipkin.SpanFromContext(ctx)
	if span == nil || zipkin.IsNoop(span) {
		return nil
	}
	return &spanAdapter{span, ctx}
}

// Middleware implements observability.Middlewareer. Requests excluded by the
// noise filter are not traced at all.
func (p *Pipeline) Middleware() func(http.Handler) http.Handler {
	src := p.Source(tracing.SourceInbound)
	if !src.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	opts := []zmw.ServerOption{
		zmw.TagResponseSize(true),
		// Add baggage fields to be extracted and propagated.
		zmw.EnableBaggage(baggage.New(observability.BaggageRequestID)),
	}
	if !src.RecordException {
		opts = append(opts, zmw.ServerErrHandler(ignoreErr))
	}

	return observability.Filtered(p.Filter, zmw.NewServerMiddleware(p.tracer, opts...), p.metrics)
}

// Transport implements observability.Transporter
func (p *Pipeline) Transport(transport http.RoundTripper) (http.RoundTripper, error) {
	src := p.Source(tracing.SourceOutbound)
	if !src.Enabled {
		if transport == nil {
			transport = http.DefaultTransport
		}
		return transport, nil
	}

	opts := []zmw.TransportOption{
		zmw.RoundTripper(transport),
		zmw.TransportLogger(zap.NewStdLog(p.logger.Named("transport"))),
	}
	if !src.RecordException {
		opts = append(opts, zmw.TransportErrHandler(ignoreErr))
	}
	return zmw.NewTransport(p.tracer, opts...)
}

func ignoreErr(zipkin.Span, error, int) {}

type traceAdapter struct {
	delegate *zipkin.Tracer
}

type spanAdapter struct {
	delegate zipkin.Span
	ctx      context.Context
}

// Context implements observability.Span
func (s *spanAdapter) Context() context.Context {
	return s.ctx
}

// TraceID implements observability.Span
func (s *spanAdapter) TraceID() string {
	return s.delegate.Context().TraceID.String()
}

// SetName implements observability.Span
func (s *spanAdapter) SetName(name string) {
	s.delegate.SetName(name)
}

// Tag implements observability.Span
func (s *spanAdapter) Tag(key string, value string) {
	s.delegate.Tag(key, value)
}

// Finish implements observability.Span
func (s *spanAdapter) Finish() {
	s.delegate.Finish()
}

// StartSpanFromContext implements observability.Tracer
func (t *traceAdapter) StartSpanFromContext(ctx context.Context, name string) observability.Span {
	span, ctx := t.delegate.StartSpanFromContext(ctx, name)
	return &spanAdapter{span, ctx}
}
