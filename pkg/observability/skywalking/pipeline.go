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

package skywalking

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SkyAPM/go2sky"
	go2SkyHttp "github.com/SkyAPM/go2sky/plugins/http"
	"github.com/SkyAPM/go2sky/reporter"
	"go.uber.org/zap"

	"github.com/basvanbeek/routetracer/pkg"
	"github.com/basvanbeek/routetracer/pkg/observability"
	"github.com/basvanbeek/routetracer/pkg/tracing"
)

const errKafkaUnsupported pkg.Error = "kafka exporter is not supported by the skywalking instrumenter"

// Option configures a Pipeline at assembly time.
type Option func(*Pipeline)

// WithReporter makes the Pipeline export segments to rep instead of creating
// its own gRPC reporter. The caller owns rep and is responsible for closing it.
func WithReporter(rep go2sky.Reporter) Option {
	return func(p *Pipeline) {
		p.external = rep
	}
}

// WithInstance sets the service instance name reported to the OAP server.
func WithInstance(name string) Option {
	return func(p *Pipeline) {
		p.instance = name
	}
}

// WithLogger sets the logger used by the Pipeline.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics makes the Pipeline count filtered requests.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// Pipeline is an assembled SkyWalking tracing pipeline.
type Pipeline struct {
	Resource tracing.Resource
	Sources  []tracing.Source
	Filter   tracing.NoiseFilter
	Reporter go2sky.Reporter

	tracer        *go2sky.Tracer
	sourceMatcher tracing.SourceMatcher
	instance      string
	logger        *zap.Logger
	metrics       *observability.Metrics
	external      go2sky.Reporter
	ownsReporter  bool
}

// static compile time interface validation
var _ observability.Instrumenter = (*Pipeline)(nil)

// Assemble validates cfg and builds a SkyWalking tracing pipeline reporting
// over gRPC to the configured exporter host and port. SkyWalking samples per
// segment at random, the sampling ratio is used as its sampling rate.
func Assemble(cfg tracing.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.L()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.UsesKafka() {
		return nil, &tracing.ConfigurationError{Err: fmt.Errorf(pkg.FlagErr, tracing.FlagKafkaBrokers, errKafkaUnsupported)}
	}

	var err error

	p.Resource = tracing.NewResource(cfg.ServiceName, cfg.ServiceVersion)
	sampler := go2sky.NewRandomSampler(cfg.Sampling.Ratio)
	p.Sources = cfg.RegisteredSources()
	p.Filter = tracing.NewNoiseFilter(cfg.Filter.ExcludedPaths)
	if p.sourceMatcher, err = tracing.NewSourceMatcher(cfg.SourcePrefix()); err != nil {
		return nil, &tracing.ConfigurationError{Err: fmt.Errorf(pkg.FlagErr, tracing.FlagSourcePrefix, err)}
	}

	rep := p.external
	if rep == nil {
		// we create our own reporter
		p.ownsReporter = true
		if rep, err = reporter.NewGRPCReporter(cfg.ExporterAddress(), reporter.WithCheckInterval(0)); err != nil {
			return nil, err
		}
	}

	if p.instance == "" {
		p.instance = p.Resource.ServiceName
	}

	// create our tracer
	p.tracer, err = go2sky.NewTracer(p.Resource.ServiceName,
		go2sky.WithInstance(p.instance),
		go2sky.WithReporter(rep),
		go2sky.WithCustomSampler(sampler),
	)
	if err != nil {
		if p.ownsReporter {
			// we handle the lifecycle of the reporter internally
			rep.Close()
		}
		return nil, err
	}
	p.Reporter = rep

	p.logger.Info("tracing pipeline assembled",
		zap.String("service", p.Resource.ServiceName),
		zap.String("instance", p.instance),
		zap.Float64("sampling_ratio", cfg.Sampling.Ratio),
		zap.String("exporter", cfg.ExporterAddress()),
	)

	return p, nil
}

// Close closes the reporter if the Pipeline created it.
func (p *Pipeline) Close() {
	if p.ownsReporter && p.Reporter != nil {
		p.Reporter.Close()
	}
}

type traceAdapter struct {
	delegate *go2sky.Tracer
}

type spanAdapter struct {
	delegate go2sky.Span
	ctx      context.Context
}

// Context implements observability.Span
func (s *spanAdapter) Context() context.Context {
	return s.ctx
}

// TraceID implements observability.Span
func (s *spanAdapter) TraceID() string {
	return go2sky.TraceID(s.ctx)
}

// SetName implements observability.Span
func (s *spanAdapter) SetName(name string) {
	s.delegate.SetOperationName(name)
}

// Tag implements observability.Span
func (s *spanAdapter) Tag(key string, value string) {
	s.delegate.Tag(go2sky.Tag(key), value)
}

// Finish implements observability.Span
func (s *spanAdapter) Finish() {
	s.delegate.End()
}

// SpanFromContext implements observability.Contexter. Spans of segments
// dropped by the sampler are not returned.
func (p *Pipeline) SpanFromContext(ctx context.Context) observability.Span {
	span := go2sky.ActiveSpan(ctx)
	if span == nil {
		return nil
	}
	if _, noop := span.(*go2sky.NoopSpan); noop {
		return nil
	}
	return &spanAdapter{span, ctx}
}

// StartSpanFromContext implements observability.Tracer
func (t *traceAdapter) StartSpanFromContext(ctx context.Context, name string) observability.Span {
	span, ctx, _ := t.delegate.CreateLocalSpan(ctx, go2sky.WithOperationName(name))
	return &spanAdapter{span, ctx}
}

// Tracer implements observability.Tracerer
func (p *Pipeline) Tracer() observability.Tracer {
	return &traceAdapter{p.tracer}
}

// SourceTracer implements observability.Tracerer
func (p *Pipeline) SourceTracer(name string) observability.Tracer {
	if !p.Source(tracing.SourceCustom).Enabled || !p.sourceMatcher(name) {
		return observability.NoopTracer
	}
	return &traceAdapter{p.tracer}
}

// Source implements observability.Sourcer
func (p *Pipeline) Source(kind tracing.SourceKind) tracing.Source {
	src, _ := tracing.LookupSource(p.Sources, kind)
	return src
}

// Middleware implements observability.Middlewareer
func (p *Pipeline) Middleware() func(http.Handler) http.Handler {
	if !p.Source(tracing.SourceInbound).Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	var serverOpts []go2SkyHttp.ServerOption
	for k, v := range p.Resource.Tags() {
		serverOpts = append(serverOpts, go2SkyHttp.WithServerTag(k, v))
	}
	if p.Resource.ServiceVersion != "" {
		serverOpts = append(serverOpts, go2SkyHttp.WithServerTag(observability.VersionTag, p.Resource.ServiceVersion))
	}
	mw, _ := go2SkyHttp.NewServerMiddleware(p.tracer, serverOpts...) // err is not nil only when the provided tracer is nil.

	instrument := func(next http.Handler) http.Handler {
		baggageHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := go2sky.GetCorrelation(r.Context(), observability.BaggageRequestID)
			if reqID == "" {
				reqID = r.Header.Get(observability.BaggageRequestID)
			}
			if reqID != "" {
				if span := go2sky.ActiveSpan(r.Context()); span != nil {
					span.Tag(observability.BaggageRequestID, reqID)
				}
				go2sky.PutCorrelation(r.Context(), observability.BaggageRequestID, reqID)
			}
			if next != nil {
				next.ServeHTTP(w, r)
			}
		})
		return mw(baggageHandler)
	}

	return observability.Filtered(p.Filter, instrument, p.metrics)
}

// Transport implements observability.Transporter
func (p *Pipeline) Transport(transport http.RoundTripper) (http.RoundTripper, error) {
	if !p.Source(tracing.SourceOutbound).Enabled {
		if transport == nil {
			transport = http.DefaultTransport
		}
		return transport, nil
	}

	var opts []go2SkyHttp.ClientOption
	if transport != nil {
		// Need to create a new client to extract from it the provided transport in go2SkyHttp.NewClient
		opts = append(opts, go2SkyHttp.WithClient(&http.Client{Transport: transport}))
	}
	client, err := go2SkyHttp.NewClient(p.tracer, opts...)
	if err != nil {
		return nil, err
	}
	return client.Transport, nil
}
