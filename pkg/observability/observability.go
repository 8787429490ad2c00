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

// Package observability defines the tracing abstractions used by this module,
// independent of the tracing backend in use, and the HTTP middleware that
// names server spans after the route a request matched.
package observability

import (
	"context"
	"net/http"

	"github.com/basvanbeek/routetracer/pkg/tracing"
)

// Span interface as returned by Tracer.StartSpanFromContext and
// Contexter.SpanFromContext.
type Span interface {
	// Context returns the Go context holding the Span.
	Context() context.Context
	// TraceID returns the Span's trace identifier.
	TraceID() string
	// SetName updates the Span's display name.
	SetName(string)
	// Tag sets Tag with given key and value to the Span. If key already exists in
	// the Span the value will be overridden except for error tags where the first
	// value is persisted.
	Tag(string, string)
	// Finish the Span and send to the exporter.
	Finish()
}

// Tracer creates spans.
type Tracer interface {
	// StartSpanFromContext creates and starts a span, using the span found in
	// ctx as parent.
	StartSpanFromContext(ctx context.Context, name string) Span
}

// Contexter is a extension interface to retrieve current span from Go's context.
type Contexter interface {
	// SpanFromContext retrieves a Span from Go's context propagation
	// mechanism if found. If not found, returns nil.
	SpanFromContext(ctx context.Context) Span
}

// Tracerer is an extension interface that observability Services can implement
// to provide tracing functionalities.
type Tracerer interface {
	// Tracer returns the tracer used by the instrumentation sources.
	Tracer() Tracer
	// SourceTracer returns a tracer for manually created spans of the named
	// source. Sources not matching the configured prefix get a noop Tracer.
	SourceTracer(name string) Tracer
}

// Middlewareer is an extension interface that observability Services can implement
// to provide an instrumented middleware.
type Middlewareer interface {
	Middleware() func(http.Handler) http.Handler
}

// Transporter is an extension interface that observability Services can implement
// to provide an instrumented http.RoundTripper.
type Transporter interface {
	Transport(transport http.RoundTripper) (http.RoundTripper, error)
}

// Sourcer is an extension interface exposing the registered instrumentation
// sources and their options.
type Sourcer interface {
	Source(kind tracing.SourceKind) tracing.Source
}

// Instrumenter is an interface a concrete tracing provider needs to implement.
type Instrumenter interface {
	Tracerer
	Contexter
	Middlewareer
	Transporter
	Sourcer
}

// NoopTracer creates spans that are never recorded.
var NoopTracer Tracer = noopTracer{}

type noopTracer struct{}

type noopSpan struct {
	ctx context.Context
}

// StartSpanFromContext implements Tracer.
func (noopTracer) StartSpanFromContext(ctx context.Context, _ string) Span {
	return noopSpan{ctx: ctx}
}

func (s noopSpan) Context() context.Context { return s.ctx }
func (noopSpan) TraceID() string            { return "" }
func (noopSpan) SetName(string)             {}
func (noopSpan) Tag(string, string)         {}
func (noopSpan) Finish()                    {}
