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

// Package pgxtrace is the database driver instrumentation source: it traces
// queries executed through pgx.
package pgxtrace

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/basvanbeek/routetracer/pkg/observability"
	"github.com/basvanbeek/routetracer/pkg/tracing"
)

// span tags
const (
	TagDBSystem       = "db.system"
	TagDBStatement    = "db.statement"
	TagDBRowsAffected = "db.rows_affected"
	TagError          = "error"

	dbSystem = "postgresql"
)

// Tracer implements pgx.QueryTracer, creating a span per query.
type Tracer struct {
	tracer observability.Tracer
	source tracing.Source
}

var _ pgx.QueryTracer = (*Tracer)(nil)

type spanKey struct{}

// New returns a query tracer creating spans with tracer, configured by the
// database source options.
func New(tracer observability.Tracer, source tracing.Source) *Tracer {
	return &Tracer{tracer: tracer, source: source}
}

// Attach installs a query tracer on cfg if the database source is enabled.
func Attach(cfg *pgx.ConnConfig, tracer observability.Tracer, source tracing.Source) {
	if !source.Enabled {
		return
	}
	cfg.Tracer = New(tracer, source)
}

// TraceQueryStart implements pgx.QueryTracer.
func (t *Tracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	span := t.tracer.StartSpanFromContext(ctx, SpanName(data.SQL))
	span.Tag(TagDBSystem, dbSystem)
	if t.source.RecordStatement {
		span.Tag(TagDBStatement, data.SQL)
	}
	return context.WithValue(span.Context(), spanKey{}, span)
}

// TraceQueryEnd implements pgx.QueryTracer.
func (t *Tracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span, ok := ctx.Value(spanKey{}).(observability.Span)
	if !ok {
		return
	}
	if data.Err != nil {
		if t.source.RecordException {
			span.Tag(TagError, data.Err.Error())
		}
	} else {
		span.Tag(TagDBRowsAffected, strconv.FormatInt(data.CommandTag.RowsAffected(), 10))
	}
	span.Finish()
}

// SpanName returns the span name of a statement: its leading keyword in upper
// case, e.g. "SELECT".
func SpanName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "query"
	}
	return strings.ToUpper(fields[0])
}
