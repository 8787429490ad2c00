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

package service

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/basvanbeek/routetracer/internal/repository"
)

// live reports the process is up. Health endpoints are excluded from tracing
// by the default noise filter.
func (ep *Endpoints) live(w http.ResponseWriter, r *http.Request) {
	ep.writeResponse(r.Context(), w, response{
		Code:    http.StatusOK,
		Message: "live",
	})
}

// ready reports whether the user store can serve requests.
func (ep *Endpoints) ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := ep.Users.Ping(ctx); err != nil {
		ep.logger.Warn("user store not ready", zap.Error(err))
		ep.writeResponse(ctx, w, response{
			Code:  http.StatusServiceUnavailable,
			Error: errNotReady,
		})
		return
	}
	ep.writeResponse(ctx, w, response{
		Code:    http.StatusOK,
		Message: "ready",
	})
}

// listUsers returns all users.
func (ep *Endpoints) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if ep.injectFailure(w, r) {
		return
	}

	users, err := ep.Users.List(ctx)
	if err != nil {
		ep.logger.Error("list users", zap.Error(err))
		ep.writeResponse(ctx, w, response{
			Code:  http.StatusInternalServerError,
			Error: errInternal,
		})
		return
	}
	ep.writeResponse(ctx, w, response{
		Code:  http.StatusOK,
		Users: users,
	})
}

// getUser returns the user identified by the id path parameter.
func (ep *Endpoints) getUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		ep.writeResponse(ctx, w, response{
			Code:  http.StatusBadRequest,
			Error: errUserID,
		})
		return
	}
	if ep.injectFailure(w, r) {
		return
	}

	u, err := ep.Users.Get(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		ep.writeResponse(ctx, w, response{
			Code:  http.StatusNotFound,
			Error: errUserNotFound,
		})
	case err != nil:
		ep.logger.Error("get user", zap.Int64("id", id), zap.Error(err))
		ep.writeResponse(ctx, w, response{
			Code:  http.StatusInternalServerError,
			Error: errInternal,
		})
	default:
		ep.writeResponse(ctx, w, response{
			Code: http.StatusOK,
			User: &u,
		})
	}
}

// injectFailure applies the configured latency and, at the configured
// percentage, writes an error response. It reports whether a response was
// written.
func (ep *Endpoints) injectFailure(w http.ResponseWriter, r *http.Request) bool {
	ep.mtx.RLock()
	d := ep.duration
	e := ep.errors
	ep.mtx.RUnlock()

	// inject configured latency
	time.Sleep(d)

	if rand.Int31n(100) < e {
		// return error response...
		ep.writeResponse(r.Context(), w, response{
			Code:  http.StatusInternalServerError,
			Error: errInternal,
		})
		return true
	}
	return false
}

// setErrors allows one to set the percentage of error responses this service
// will generate on the user and proxy handlers.
func (ep *Endpoints) setErrors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	i, err := strconv.Atoi(mux.Vars(r)["percentage"])
	if err != nil || i < 0 || i > 100 {
		ep.writeResponse(ctx, w, response{
			Code:  http.StatusBadRequest,
			Error: errPercentage,
		})
		return
	}
	ep.mtx.Lock()
	ep.errors = int32(i)
	ep.mtx.Unlock()

	ep.writeResponse(ctx, w, response{
		Code:    http.StatusOK,
		Message: fmt.Sprintf("errors percentage set to: %d%%", i),
	})
}

// setLatency allows one to set the latency this service will generate on the
// user and proxy handlers.
func (ep *Endpoints) setLatency(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	d, err := parseDuration(mux.Vars(r)["duration"])
	if err != nil {
		ep.writeResponse(ctx, w, response{
			Code:  http.StatusBadRequest,
			Error: errDuration,
		})
		return
	}

	ep.mtx.Lock()
	ep.duration = d
	ep.mtx.Unlock()

	ep.writeResponse(ctx, w, response{
		Code:    http.StatusOK,
		Message: fmt.Sprintf("duration set to: %s", d.String()),
	})
}

// setHandleFailures allows one to set behavior of this service's proxy handler.
// If set to true, a downstream error will not cascade into a failure by this
// event. Instead, it will mimick a service that is resilient to downstream
// issues and can report back successfully.
func (ep *Endpoints) setHandleFailures(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var h bool
	switch strings.ToLower(mux.Vars(r)["handleFailures"]) {
	case "1", "on", "yes", "y", "true", "t":
		h = true
	case "0", "off", "no", "n", "false", "f":
		h = false
	default:
		ep.writeResponse(ctx, w, response{
			Code:  http.StatusBadRequest,
			Error: errHandleFailures,
		})
		return
	}

	ep.mtx.Lock()
	ep.handleFailures = h
	ep.mtx.Unlock()

	ep.writeResponse(ctx, w, response{
		Code:    http.StatusOK,
		Message: fmt.Sprintf("handle failures set to: %t", h),
	})
}

// emulateConcurrency instructs this service to run 8 fake heavy local methods.
// The methods will take the provided duration as their run time. The
// concurrency argument will instruct these methods to run serial, in parallel,
// or mixed serial and parallel. The methods are instrumented as custom source
// spans, so they will show up in your trace graph.
func (ep *Endpoints) emulateConcurrency(w http.ResponseWriter, r *http.Request) {
	var (
		ctx  = r.Context()
		vars = mux.Vars(r)
	)
	d, err := parseDuration(vars["duration"])
	if err != nil {
		ep.writeResponse(ctx, w, response{
			Code:  http.StatusBadRequest,
			Error: errDuration,
		})
		return
	}

	// we will be emulating 8 heavy internal functions
	var wg sync.WaitGroup
	wg.Add(8)

	proc := func(i int) {
		defer wg.Done()
		span := ep.tracer.StartSpanFromContext(ctx, fmt.Sprintf("proc-%d", i))
		defer span.Finish()

		span.Tag("duration", d.String())
		time.Sleep(d)
	}

	switch strings.ToLower(vars["concurrency"]) {
	case "serial":
		for i := 0; i < 8; i++ {
			proc(i)
		}
	case "mixed":
		for i := 0; i < 8; i++ {
			if i%2 == 0 {
				go proc(i)
				continue
			}
			proc(i)
		}
	case "parallel":
		for i := 0; i < 8; i++ {
			go proc(i)
		}
	default:
		ep.writeResponse(ctx, w, response{
			Code:  http.StatusBadRequest,
			Error: errConcurrency,
		})
		return
	}

	// wait until all goroutines are finished
	wg.Wait()

	ep.writeResponse(ctx, w, response{
		Code:    http.StatusOK,
		Message: "ran several local spans",
	})
}

// proxy parses and strips the first /proxy/service:port directive from the path
// and reverse proxies the remaining path request to the targeted service over
// the instrumented transport.
//
// Example path: /proxy/svcb/proxy/svcc/users/42
// This path will hop from svca to svcb and svcc, where this final svcc will
// receive a /users/42 request to handle.
func (ep *Endpoints) proxy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	host, ok := mux.Vars(r)["service"]
	if !ok || host == "" {
		ep.writeResponse(ctx, w, response{
			Code:  http.StatusBadRequest,
			Error: errProxyService,
		})
		return
	}
	if ep.injectFailure(w, r) {
		return
	}

	ep.mtx.RLock()
	h := ep.handleFailures
	ep.mtx.RUnlock()

	r.Header = r.Header.Clone()
	r.Host = host
	r.Header.Add("Proxied-By", ep.ServiceName)
	var (
		svc  = fmt.Sprintf("http://%s", host)
		path = strings.TrimPrefix(r.URL.Path, "/proxy/"+host)
		u, _ = url.Parse(svc)
		p    = httputil.NewSingleHostReverseProxy(u)
		err  error
	)

	if p.Transport, err = ep.Instrumenter.Transport(p.Transport); err != nil {
		ep.logger.Error("instrument transport", zap.Error(err))
		ep.writeResponse(ctx, w, response{
			Code:  http.StatusInternalServerError,
			Error: errInternal,
		})
		return
	}
	r.URL, _ = url.Parse(svc + path)

	if h {
		p.ModifyResponse = func(res *http.Response) error {
			if res.StatusCode == http.StatusOK {
				// proceed unaltered
				return nil
			}
			// let's mimick a service that did a client request which failed,
			// but due to nice business logic it is still able to handle
			// the failure gracefully and return success status itself.
			raw, _ := io.ReadAll(res.Body)
			_ = res.Body.Close()
			ep.writeResponse(ctx, w, response{
				Code: http.StatusOK,
				Message: fmt.Sprintf(
					"%s called %s and got error return: %s",
					ep.ServiceName, svc+path, string(raw)),
			})
			// bail proxy logic, we returned details upstream ourselves
			return errBail
		}
		p.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			if errors.Is(err, errBail) {
				return
			}
			ep.writeResponse(ctx, w, response{
				Code: http.StatusOK,
				Message: fmt.Sprintf(
					"%s called %s and failed: %v", ep.ServiceName, svc+path, err),
			})
		}
	}
	p.ServeHTTP(w, r)
}

var errBail = errors.New("bail")

// parseDuration accepts a Go duration string or a raw number of milliseconds.
func parseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		// not a duration string, let's see if it is a raw number...
		var i int
		if i, err = strconv.Atoi(s); err != nil {
			// not a raw number either...
			return 0, errDuration
		}
		d = time.Duration(i) * time.Millisecond
	}
	if d < 0 {
		return 0, errDuration
	}
	return d, nil
}
