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

// Package skywalking assembles a SkyWalking tracing pipeline and exposes it as
// a run.Group service for this binary.
package skywalking

import (
	"fmt"

	"github.com/SkyAPM/go2sky"
	"github.com/tetratelabs/multierror"
	"github.com/tetratelabs/run"
	"go.uber.org/zap"

	"github.com/basvanbeek/routetracer/pkg"
	"github.com/basvanbeek/routetracer/pkg/observability"
	"github.com/basvanbeek/routetracer/pkg/tracing"
)

// flags
const (
	LocalServiceInstanceName = "skywalking-local-serviceinstancename"
)

// Service implements run.GroupService
type Service struct {
	*Pipeline

	Config              *tracing.Config
	ServiceInstanceName string
	Reporter            go2sky.Reporter
	Metrics             *observability.Metrics

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
	return observability.SkywalkingInstrumenter
}

// FlagSet implements run.Config
func (s *Service) FlagSet() *run.FlagSet {
	// create our configuration flags
	flags := run.NewFlagSet("Skywalking Tracer Config")

	flags.StringVar(
		&s.ServiceInstanceName,
		LocalServiceInstanceName,
		s.ServiceInstanceName,
		`Local ServiceInstanceName to report, defaults to the service name`)

	return flags
}

// Validate implements run.Config
func (s *Service) Validate() error {
	var mErr error

	if s.Config == nil {
		mErr = multierror.Append(mErr, fmt.Errorf("tracing config: %w", pkg.ErrRequired))
	}

	return mErr
}

// PreRun implements run.PreRunner
func (s *Service) PreRun() error {
	opts := []Option{
		WithInstance(s.ServiceInstanceName),
		WithLogger(zap.L().Named(s.Name())),
		WithMetrics(s.Metrics),
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
	// we handle the lifecycle of the reporter internally
	s.Pipeline.Close()
}
