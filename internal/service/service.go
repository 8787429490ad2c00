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

// Package service holds the demo HTTP endpoints. Requests are traced by the
// selected instrumenter and server spans are named after the matched route.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tetratelabs/multierror"
	"github.com/tetratelabs/run"
	"go.uber.org/zap"

	"github.com/basvanbeek/routetracer/internal/repository"
	"github.com/basvanbeek/routetracer/internal/repository/memory"
	"github.com/basvanbeek/routetracer/internal/repository/postgres"
	"github.com/basvanbeek/routetracer/pkg"
	"github.com/basvanbeek/routetracer/pkg/observability"
	"github.com/basvanbeek/routetracer/pkg/tracing"
)

const (
	flagDuration       = "ep-duration"
	flagErrors         = "ep-errors"
	flagHandleFailures = "ep-handle-failures"
	flagDatabaseURL    = "ep-database-url"

	errProxyService   pkg.Error = "invalid or no proxy service set"
	errPercentage     pkg.Error = "expected percentage value between 0 and 100"
	errDuration       pkg.Error = "expected a zero or positive duration"
	errConcurrency    pkg.Error = "invalid or no concurrency type set"
	errInternal       pkg.Error = "internal service failure occurred"
	errHandleFailures pkg.Error = "expected boolean value for handling failures"
	errUserID         pkg.Error = "expected a numeric user id"
	errUserNotFound   pkg.Error = "user not found"
	errNotReady       pkg.Error = "service not ready"

	connectTimeout = 10 * time.Second
)

// Endpoints implements a run.Group compatible group of Endpoints which will
// register themselves on the provided http service, using the provided
// Instrumenter to instrument themselves.
type Endpoints struct {
	// dependencies
	Instrumenter observability.Instrumenter
	Metrics      *observability.Metrics
	Gatherer     prometheus.Gatherer
	Users        repository.Users

	ServiceName string
	DatabaseURL string

	handler http.Handler
	tracer  observability.Tracer
	logger  *zap.Logger
	closer  chan error

	// service globals protected by mutex mtx
	mtx            sync.RWMutex
	errors         int32
	duration       time.Duration
	handleFailures bool
}

var (
	_ run.Config    = (*Endpoints)(nil)
	_ run.PreRunner = (*Endpoints)(nil)
	_ run.Service   = (*Endpoints)(nil)
)

// Name implements run.Unit.
func (ep *Endpoints) Name() string {
	return "endpoints"
}

// FlagSet implements run.Config.
func (ep *Endpoints) FlagSet() *run.FlagSet {
	flags := run.NewFlagSet("Endpoint options")

	flags.Int32Var(&ep.errors, flagErrors, ep.errors,
		`Percentage of errors on user and proxy handlers`)

	flags.DurationVar(&ep.duration, flagDuration, ep.duration,
		`Duration of a request on user and proxy handlers`)

	flags.BoolVar(&ep.handleFailures, flagHandleFailures, ep.handleFailures,
		`Handle failures when proxying and return OK to requestor`)

	flags.StringVar(&ep.DatabaseURL, flagDatabaseURL, ep.DatabaseURL,
		`PostgreSQL connection url of the user store, an in-memory store is used if empty`)

	return flags
}

// Validate implements run.Config.
func (ep *Endpoints) Validate() error {
	var mErr error

	if ep.errors < 0 || ep.errors > 100 {
		mErr = multierror.Append(mErr,
			fmt.Errorf(pkg.FlagErr, flagErrors, errPercentage),
		)
	}
	if ep.duration < 0 {
		mErr = multierror.Append(mErr,
			fmt.Errorf(pkg.FlagErr, flagDuration, errDuration),
		)
	}

	return mErr
}

// PreRun implements run.PreRunner.
func (ep *Endpoints) PreRun() error {
	if ep.Instrumenter == nil || ep.Instrumenter.Tracer() == nil {
		return errors.New("missing tracer to attach to")
	}
	ep.logger = zap.L().Named(ep.Name())

	if ep.Users == nil {
		if ep.DatabaseURL == "" {
			ep.Users = memory.Seeded()
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
			defer cancel()
			store, err := postgres.New(ctx, ep.DatabaseURL,
				ep.Instrumenter.Tracer(), ep.Instrumenter.Source(tracing.SourceDatabase))
			if err != nil {
				return err
			}
			ep.Users = store
		}
	}

	// create our service router
	router := mux.NewRouter()
	router.Use(observability.MuxRouteRecorder)
	router.Methods("GET").Path("/health/live").HandlerFunc(ep.live)
	router.Methods("GET").Path("/health/ready").HandlerFunc(ep.ready)
	router.Methods("GET").Path("/users").HandlerFunc(ep.listUsers)
	router.Methods("GET").Path("/users/{id}").HandlerFunc(ep.getUser)
	router.Methods("GET").Path("/errors/{percentage}").HandlerFunc(ep.setErrors)
	router.Methods("GET").Path("/graceful/{handleFailures}").HandlerFunc(ep.setHandleFailures)
	router.Methods("GET").Path("/latency/{duration}").HandlerFunc(ep.setLatency)
	router.Methods("GET").Path("/local/{concurrency}/latency/{duration}").HandlerFunc(ep.emulateConcurrency)
	router.Methods("GET").PathPrefix("/proxy/{service}").HandlerFunc(ep.proxy)
	if ep.Gatherer != nil {
		router.Methods("GET").Path("/metrics").Handler(promhttp.HandlerFor(ep.Gatherer, promhttp.HandlerOpts{}))
	}

	ep.tracer = ep.Instrumenter.SourceTracer(ep.ServiceName + ".Endpoints")

	routeName := observability.RouteName(ep.Instrumenter, observability.RecordedRoute,
		observability.WithMetrics(ep.Metrics))
	ep.handler = ep.Instrumenter.Middleware()(routeName(router))
	ep.closer = make(chan error)

	return nil
}

// Serve implements run.Service.
func (ep *Endpoints) Serve() error {
	return <-ep.closer
}

// GracefulStop implements run.Service.
func (ep *Endpoints) GracefulStop() {
	close(ep.closer)
	if ep.Users != nil {
		ep.Users.Close()
	}
}

// Handler returns an HTTP handler that can be attached to an HTTP service.
// The handler holds a router to the endpoints with the sub handlers.
func (ep *Endpoints) Handler() http.Handler {
	return ep.handler
}
