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
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/mux"
)

type routeSlotKey struct{}

// routeSlot carries the route pattern resolved by a router back out to the
// middleware that installed it. A slot is owned by a single request.
type routeSlot struct {
	route string
}

// WithRouteSlot returns a request holding a route slot in its context. If the
// request already holds one it is returned unchanged, so nested or repeated
// installs share the same slot.
func WithRouteSlot(r *http.Request) *http.Request {
	if _, ok := r.Context().Value(routeSlotKey{}).(*routeSlot); ok {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), routeSlotKey{}, &routeSlot{}))
}

// RecordRoute stores the resolved route pattern in the request's route slot.
// It is a no-op for requests without a slot.
func RecordRoute(r *http.Request, route string) {
	if slot, ok := r.Context().Value(routeSlotKey{}).(*routeSlot); ok {
		slot.route = route
	}
}

// RecordedRoute is a RouteResolver returning the route pattern stored by one of
// the route recorders, or an empty string if routing did not match.
func RecordedRoute(r *http.Request) string {
	if slot, ok := r.Context().Value(routeSlotKey{}).(*routeSlot); ok {
		return slot.route
	}
	return ""
}

// MuxRouteRecorder is a gorilla/mux middleware recording the path template of
// the matched route. Register it with Router.Use; mux only runs it for
// requests that matched a route.
func MuxRouteRecorder(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				RecordRoute(r, tpl)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// ChiRouteRecorder is a chi middleware recording the route pattern of the
// request. chi resolves the pattern while routing, so it is read once the
// handler returns.
func ChiRouteRecorder(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		RecordRoute(r, ChiRoute(r))
	})
}

// ChiRoute is a RouteResolver reading the route pattern from chi's routing
// context. It only resolves a route when called from within a chi router,
// e.g. when RouteName is registered with chi's Router.Use.
func ChiRoute(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
