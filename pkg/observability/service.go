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

package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/tetratelabs/multierror"
	"github.com/tetratelabs/run"

	"github.com/basvanbeek/routetracer/pkg"
	"github.com/basvanbeek/routetracer/pkg/tracing"
)

const (
	ObservabilityInstrumenter = "observability-instrumenter"
	ZipkinInstrumenter        = "zipkin"
	SkywalkingInstrumenter    = "skywalking"

	BaggageRequestID = "X-Request-Id"
	VersionTag       = "version"
)

// InstrumenterService is an interface a concrete service tracing provider needs to implement.
type InstrumenterService interface {
	Instrumenter
	run.Config
	run.PreRunner
	run.Service
}

// Service implements run.GroupService. It owns the tracing configuration flags
// and delegates to the selected tracing backend.
type Service struct {
	Config                    *tracing.Config
	ObservabilityInstrumenter string
	Instrumenters             []InstrumenterService

	delegate InstrumenterService
}

// static compile time run interfaces validation
var (
	_ run.Config    = (*Service)(nil)
	_ run.PreRunner = (*Service)(nil)
	_ run.Service   = (*Service)(nil)
	_ Instrumenter  = (*Service)(nil)
)

func supportedInstrumenters() []string {
	return []string{ZipkinInstrumenter, SkywalkingInstrumenter}
}

// Name implements run.Unit.
func (s *Service) Name() string {
	if s.delegate == nil {
		return ObservabilityInstrumenter
	}
	return fmt.Sprintf("%s[%s]", ObservabilityInstrumenter, s.delegate.Name())
}

// FlagSet implements run.Config
func (s *Service) FlagSet() *run.FlagSet {
	if s.Config == nil {
		cfg := tracing.Defaults()
		s.Config = &cfg
	}
	if s.ObservabilityInstrumenter == "" {
		s.ObservabilityInstrumenter = ZipkinInstrumenter
	}

	// create our configuration flags
	flags := run.NewFlagSet("Observability instrumenter config")

	flags.StringVar(
		&s.ObservabilityInstrumenter,
		ObservabilityInstrumenter,
		s.ObservabilityInstrumenter,
		fmt.Sprintf(`Name of the instrumenter to use, one of %v`, supportedInstrumenters()))

	flags.AddFlagSet(s.Config.FlagSet().FlagSet)
	for _, instrumenter := range s.Instrumenters {
		flags.AddFlagSet(instrumenter.FlagSet().FlagSet)
	}
	return flags
}

// Validate implements run.Config. Configuration problems of the tracing
// pipeline and of the instrumenter selection are reported together as a
// *tracing.ConfigurationError.
func (s *Service) Validate() error {
	var mErr error

	if s.Config == nil {
		mErr = multierror.Append(mErr, fmt.Errorf("tracing config: %w", pkg.ErrRequired))
	} else if err := s.Config.Validate(); err != nil {
		var cErr *tracing.ConfigurationError
		if errors.As(err, &cErr) {
			err = cErr.Err
		}
		mErr = multierror.Append(mErr, err)
	}

	var foundSupportedInstrumenter bool
	for _, name := range supportedInstrumenters() {
		if name == s.ObservabilityInstrumenter {
			foundSupportedInstrumenter = true
			break
		}
	}
	if !foundSupportedInstrumenter {
		mErr = multierror.Append(mErr,
			fmt.Errorf(pkg.FlagErr, ObservabilityInstrumenter, fmt.Errorf("instrumenter must be one of %v", supportedInstrumenters())))
	}

	if s.lookup() == nil {
		mErr = multierror.Append(mErr, fmt.Errorf("instrumenter %s not provided", s.ObservabilityInstrumenter))
	}

	if mErr != nil {
		return &tracing.ConfigurationError{Err: mErr}
	}
	return nil
}

func (s *Service) lookup() InstrumenterService {
	for _, instrumenter := range s.Instrumenters {
		if instrumenter.Name() == s.ObservabilityInstrumenter {
			return instrumenter
		}
	}
	return nil
}

// PreRun implements run.PreRunner
func (s *Service) PreRun() error {
	if s.delegate = s.lookup(); s.delegate == nil {
		return fmt.Errorf("instrumenter %s not provided", s.ObservabilityInstrumenter)
	}
	return s.delegate.PreRun()
}

// Serve implements run.GroupService
func (s *Service) Serve() error {
	return s.delegate.Serve()
}

// GracefulStop implements run.GroupService
func (s *Service) GracefulStop() {
	s.delegate.GracefulStop()
}

// Tracer implements observability.Tracerer
func (s *Service) Tracer() Tracer {
	return s.delegate.Tracer()
}

// SourceTracer implements observability.Tracerer
func (s *Service) SourceTracer(name string) Tracer {
	return s.delegate.SourceTracer(name)
}

// SpanFromContext implements observability.Contexter
func (s *Service) SpanFromContext(ctx context.Context) Span {
	return s.delegate.SpanFromContext(ctx)
}

// Middleware implements observability.Middlewareer
func (s *Service) Middleware() func(http.Handler) http.Handler {
	return s.delegate.Middleware()
}

// Transport implements observability.Transporter
func (s *Service) Transport(transport http.RoundTripper) (http.RoundTripper, error) {
	return s.delegate.Transport(transport)
}

// Source implements observability.Sourcer
func (s *Service) Source(kind tracing.SourceKind) tracing.Source {
	return s.delegate.Source(kind)
}
