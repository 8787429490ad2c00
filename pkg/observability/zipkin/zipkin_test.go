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
	"testing"

	"github.com/openzipkin/zipkin-go/reporter/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basvanbeek/routetracer/pkg/tracing"
)

func TestServiceLifecycle(t *testing.T) {
	cfg := tracing.Defaults()
	rec := recorder.NewReporter()
	s := &Service{Config: &cfg, Reporter: rec, LocalHostport: "127.0.0.1:8000"}

	require.NotNil(t, s.FlagSet())
	require.NoError(t, s.Validate())
	require.NoError(t, s.PreRun())

	s.Tracer().StartSpanFromContext(context.Background(), "work").Finish()
	spans := rec.Flush()
	require.Len(t, spans, 1)
	assert.Equal(t, "MyApp", spans[0].LocalEndpoint.ServiceName)

	done := make(chan error)
	go func() { done <- s.Serve() }()
	s.GracefulStop()
	assert.NoError(t, <-done)
}

func TestServiceValidate(t *testing.T) {
	s := &Service{LocalHostport: "8000"}
	err := s.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, LocalHostport)
	assert.ErrorContains(t, err, "tracing config")
}

func TestServicePreRunInvalidConfig(t *testing.T) {
	cfg := tracing.Defaults()
	cfg.Sampling.Ratio = 3
	s := &Service{Config: &cfg}
	assert.Error(t, s.PreRun())
	assert.Nil(t, s.Pipeline)
}
