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

// Package zipkin assembles a Zipkin tracing pipeline and exposes it as a
// run.Group service for this binary.
package zipkin

import (
	"fmt"
	"net"

	"github.com/openzipkin/zipkin-go/reporter"
	"github.com/tetratelabs/multierror"
	"github.com/tetratelabs/run"
	"go.uber.org/zap"

	"github.com/basvanbeek/routetracer/pkg"
	"github.com/basvanbeek/routetracer/pkg/observability"
	"github.com/basvanbeek/routetracer/pkg/tracing"
)

// flags
const (
	LocalHostport   = "zipkin-local-hostport"
	SinglehostSpans = "zipkin-singlehost-spans"
)

// Service implements run.GroupService. The pipeline is assembled from Config
// in PreRun and its exporter sink is closed on GracefulStop.
type Service struct {
	*Pipeline

	Config          *tracing.Config
	LocalHostport   string
	SingleHostSpans bool
	Reporter        reporter.Reporter
	Metrics         *observability.Metrics

	closer chan error
}

// static compile time run interfaces validation
var (
	_ run.Config                 = (*Service)(nil)
	_ run.PreRunner              = (*Service)(nil)
	_ run.Service                = (*Service)(nil)
	_ observability.Instrumenter = (*Service)(nil)
)

// Name implements run.Unit.
func (s *Service) Name() string {
	return observability.ZipkinInstrumenter
}

// FlagSet implements run.Config
func (s *Service) FlagSet() *run.FlagSet {
	// create our configuration flags
	flags := run.NewFlagSet("Zipkin Tracer Config")

	flags.StringVar(
		&s.LocalHostport,
		LocalHostport,
		s.LocalHostport,
		`Local ip:port to report`)
	flags.BoolVar(
		&s.SingleHostSpans,
		SinglehostSpans,
		s.SingleHostSpans,
		`Do not use Zipkin RPC shared spans`)

	return flags
}

// Validate implements run.Config
func (s *Service) Validate() error {
	var mErr error

	if s.Config == nil {
		mErr = multierror.Append(mErr, fmt.Errorf("tracing config: %w", pkg.ErrRequired))
	}
	if s.LocalHostport != "" {
		if _, _, err := net.SplitHostPort(s.LocalHostport); err != nil {
			mErr = multierror.Append(mErr,
				fmt.Errorf(pkg.FlagErr, LocalHostport, err))
		}
	}

	return mErr
}

// PreRun implements run.PreRunner
func (s *Service) PreRun() error {
	opts := []Option{
		WithLogger(zap.L().Named(s.Name())),
		WithMetrics(s.Metrics),
		WithLocalHostport(s.LocalHostport),
		WithSharedSpans(!s.SingleHostSpans),
	}
	if s.Reporter != nil {
		opts = append(opts, WithReporter(s.Reporter))
	}

	p, err := Assemble(*s.Config, opts...)
	if err != nil {
		return err
	}

	s.Pipeline = p
	s.closer = make(chan error)

	return nil
}

// Serve implements run.GroupService
func (s *Service) Serve() error {
	return <-s.closer
}

// GracefulStop implements run.GroupService
func (s *Service) GracefulStop() {
	close(s.closer)
	// we handle the lifecycle of the exporter sink internally
	if err := s.Pipeline.Close(); err != nil {
		zap.L().Named(s.Name()).Warn("failed to close exporter", zap.Error(err))
	}
}
