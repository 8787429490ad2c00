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

package pgxtrace

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basvanbeek/routetracer/pkg/observability"
	"github.com/basvanbeek/routetracer/pkg/tracing"
)

type recordedSpan struct {
	ctx      context.Context
	name     string
	tags     map[string]string
	finished bool
}

func (s *recordedSpan) Context() context.Context { return s.ctx }
func (s *recordedSpan) TraceID() string          { return "" }
func (s *recordedSpan) SetName(name string)      { s.name = name }
func (s *recordedSpan) Tag(key, value string)    { s.tags[key] = value }
func (s *recordedSpan) Finish()                  { s.finished = true }

type recordingTracer struct {
	spans []*recordedSpan
}

func (t *recordingTracer) StartSpanFromContext(ctx context.Context, name string) observability.Span {
	span := &recordedSpan{ctx: ctx, name: name, tags: map[string]string{}}
	t.spans = append(t.spans, span)
	return span
}

func trace(tr *Tracer, sql string, err error) {
	ctx := tr.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: sql})
	tr.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{
		CommandTag: pgconn.NewCommandTag("SELECT 1"),
		Err:        err,
	})
}

func TestTracerRecordsQuery(t *testing.T) {
	rt := &recordingTracer{}
	tr := New(rt, tracing.Source{Kind: tracing.SourceDatabase, Enabled: true, RecordStatement: true, RecordException: true})

	trace(tr, "select id, name from users where id = $1", nil)

	require.Len(t, rt.spans, 1)
	span := rt.spans[0]
	assert.Equal(t, "SELECT", span.name)
	assert.True(t, span.finished)
	assert.Equal(t, map[string]string{
		TagDBSystem:       "postgresql",
		TagDBStatement:    "select id, name from users where id = $1",
		TagDBRowsAffected: "1",
	}, span.tags)
}

func TestTracerOptions(t *testing.T) {
	rt := &recordingTracer{}
	tr := New(rt, tracing.Source{Kind: tracing.SourceDatabase, Enabled: true})

	trace(tr, "UPDATE users SET name = $1", errors.New("deadlock detected"))

	require.Len(t, rt.spans, 1)
	span := rt.spans[0]
	assert.True(t, span.finished)
	assert.NotContains(t, span.tags, TagDBStatement)
	assert.NotContains(t, span.tags, TagError)
	assert.NotContains(t, span.tags, TagDBRowsAffected)

	tr = New(rt, tracing.Source{Kind: tracing.SourceDatabase, Enabled: true, RecordException: true})
	trace(tr, "UPDATE users SET name = $1", errors.New("deadlock detected"))
	assert.Equal(t, "deadlock detected", rt.spans[1].tags[TagError])
}

func TestTraceQueryEndWithoutStart(t *testing.T) {
	tr := New(&recordingTracer{}, tracing.Source{Enabled: true})
	assert.NotPanics(t, func() {
		tr.TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{})
	})
}

func TestAttach(t *testing.T) {
	cfg, err := pgx.ParseConfig("postgres://app@localhost:5432/users")
	require.NoError(t, err)

	Attach(cfg, observability.NoopTracer, tracing.Source{Kind: tracing.SourceDatabase})
	assert.Nil(t, cfg.Tracer)

	Attach(cfg, observability.NoopTracer, tracing.Source{Kind: tracing.SourceDatabase, Enabled: true})
	assert.IsType(t, &Tracer{}, cfg.Tracer)
}

func TestSpanName(t *testing.T) {
	assert.Equal(t, "SELECT", SpanName("  select 1"))
	assert.Equal(t, "WITH", SpanName("with x as (select 1) select * from x"))
	assert.Equal(t, "query", SpanName(" \n\t"))
}
