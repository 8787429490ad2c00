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

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tetratelabs/run"
	"github.com/tetratelabs/run/pkg/signal"

	"github.com/basvanbeek/routetracer/internal/service"
	pkghttp "github.com/basvanbeek/routetracer/pkg/http"
	"github.com/basvanbeek/routetracer/pkg/logging"
	pkgobs "github.com/basvanbeek/routetracer/pkg/observability"
	pkgskywalking "github.com/basvanbeek/routetracer/pkg/observability/skywalking"
	pkgzipkin "github.com/basvanbeek/routetracer/pkg/observability/zipkin"
	"github.com/basvanbeek/routetracer/pkg/tracing"
)

const (
	defaultHTTPListenAddress = ":8000"
	defaultSingleHostSpans   = true
)

func main() {
	// we load the tracing config from file and environment as we need the
	// service name to be available prior to run.Group bootstrap. Flags
	// registered by the observability service override it.
	cfg, err := tracing.Load(os.Getenv(tracing.EnvConfigFile))
	if err != nil {
		fmt.Printf("startup failed: %v\n", err)
		os.Exit(-1)
	}
	serviceInstanceName := os.Getenv("HOSTNAME")
	if serviceInstanceName == "" {
		serviceInstanceName = cfg.ServiceName
	}

	g := run.Group{
		Name:     cfg.ServiceName,
		HelpText: "HTTP service naming its server spans after the matched route",
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := pkgobs.NewMetrics(registry)

	// init with sensible defaults
	svcLogging := &logging.Service{}
	svcObs := &pkgobs.Service{
		Config:                    &cfg,
		ObservabilityInstrumenter: pkgobs.ZipkinInstrumenter,
		Instrumenters: []pkgobs.InstrumenterService{
			&pkgzipkin.Service{
				Config:          &cfg,
				SingleHostSpans: defaultSingleHostSpans,
				Metrics:         metrics,
			},
			&pkgskywalking.Service{
				Config:              &cfg,
				ServiceInstanceName: serviceInstanceName,
				Metrics:             metrics,
			},
		},
	}

	svcEndpoints := &service.Endpoints{
		ServiceName:  cfg.ServiceName,
		Instrumenter: svcObs,
		Metrics:      metrics,
		Gatherer:     registry,
	}
	svcHTTP := &pkghttp.Service{
		ListenAddress: defaultHTTPListenAddress,
	}
	g.Register(
		new(signal.Handler),
		svcLogging,
		svcObs,
		run.NewPreRunner("config", func() error {
			// flags may have overridden the service name
			svcEndpoints.ServiceName = cfg.ServiceName
			return nil
		}),
		svcEndpoints,
		run.NewPreRunner("handler", func() error {
			svcHTTP.Handler = svcEndpoints.Handler()
			return nil
		}),
		svcHTTP,
	)

	if err := g.Run(); err != nil {
		fmt.Printf("%s exit: %v\n", g.Name, err)
		if !errors.Is(err, run.ErrRequestedShutdown) {
			// We had an actual fatal error.
			os.Exit(-1)
		}
	}
}
