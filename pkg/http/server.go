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

// Package http provides the HTTP server of this binary as a run.Group service.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tetratelabs/multierror"
	"github.com/tetratelabs/run"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/basvanbeek/routetracer/pkg"
)

const (
	flagListenAddress = "http-listen-address"
	flagH2C           = "http-h2c"

	errHandler pkg.Error = "missing http handler, it must be set before PreRun"

	defaultListenAddress = ":8000"
)

var (
	_ run.Config    = (*Service)(nil)
	_ run.PreRunner = (*Service)(nil)
	_ run.Service   = (*Service)(nil)
)

// Service implements a run.Group compatible HTTP Server.
//
// The Handler of the embedded http.Server must be set before PreRun, usually
// by a run.PreRunner registered ahead of this Service, as PreRun wraps it for
// h2c. The handler is expected to hold the tracing middleware already, so h2c
// upgrades are served by the same instrumented chain as HTTP/1 requests.
type Service struct {
	ListenAddress string
	// H2C serves HTTP/2 without TLS next to HTTP/1.
	H2C bool

	*http.Server
	l net.Listener
}

// Name implements run.Unit.
func (s *Service) Name() string {
	return "http"
}

// FlagSet implements run.Config.
func (s *Service) FlagSet() *run.FlagSet {
	if s.ListenAddress == "" {
		s.ListenAddress = defaultListenAddress
	}
	if s.Server == nil {
		s.Server = &http.Server{
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 5 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
	}
	flags := run.NewFlagSet("HTTP server options")

	flags.StringVarP(
		&s.ListenAddress,
		flagListenAddress, "a",
		s.ListenAddress,
		`HTTP server listen address, e.g. ":443" or "localhost:80"`)
	flags.BoolVar(
		&s.H2C,
		flagH2C,
		s.H2C,
		`Accept HTTP/2 over cleartext connections`)

	return flags
}

// Validate implements run.Config.
func (s *Service) Validate() error {
	var mErr error

	if s.ListenAddress != "" {
		if _, _, err := net.SplitHostPort(s.ListenAddress); err != nil {
			mErr = multierror.Append(mErr,
				fmt.Errorf(pkg.FlagErr, flagListenAddress, err))
		}
	} else {
		mErr = multierror.Append(mErr,
			fmt.Errorf(pkg.FlagErr, flagListenAddress, pkg.ErrRequired))
	}

	return mErr
}

// PreRun implements run.PreRunner.
func (s *Service) PreRun() error {
	if s.Server == nil || s.Server.Handler == nil {
		return errHandler
	}
	if s.H2C {
		s.Server.Handler = h2c.NewHandler(s.Server.Handler, &http2.Server{})
	}
	s.Server.ErrorLog = zap.NewStdLog(zap.L().Named(s.Name()))
	return nil
}

// Serve implements run.Service.
func (s *Service) Serve() (err error) {
	s.l, err = net.Listen("tcp", s.ListenAddress)
	if err != nil {
		return err
	}
	zap.L().Named(s.Name()).Info("listening", zap.String("address", s.l.Addr().String()))
	if err = s.Server.Serve(s.l); err == http.ErrServerClosed {
		return nil
	}
	return err
}

// GracefulStop implements run.Service.
func (s *Service) GracefulStop() {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(5*time.Second))
	defer cancel()

	if s.Server != nil {
		_ = s.Server.Shutdown(ctx)
	}
	if s.l != nil {
		_ = s.l.Close()
	}
}
