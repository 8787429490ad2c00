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
	"net/http"
)

// TagHTTPRoute holds the route pattern a request matched.
const TagHTTPRoute = "http.route"

// RouteResolver returns the route pattern the request matched or an empty
// string if no route matched. It is called after the downstream handlers
// returned.
type RouteResolver func(r *http.Request) string

// RouteNameOption configures the RouteName middleware.
type RouteNameOption func(*routeNameOptions)

type routeNameOptions struct {
	metrics *Metrics
}

// WithMetrics counts the spans renamed by the middleware.
func WithMetrics(m *Metrics) RouteNameOption {
	return func(o *routeNameOptions) {
		o.metrics = m
	}
}

// RouteName returns a middleware naming the current server span after the
// route pattern the request matched, e.g. "/users/{id}" instead of the
// default "GET". The span is also tagged with http.route.
//
// The middleware must run inside the instrumentation middleware creating the
// span and outside the router resolving the route. The downstream handler is
// always called exactly once. Enrichment only happens after it returned
// normally; a panic is propagated as is. The span is never finished here, its
// lifecycle belongs to the instrumentation that created it.
func RouteName(c Contexter, resolve RouteResolver, opts ...RouteNameOption) func(http.Handler) http.Handler {
	var o routeNameOptions
	for _, opt := range opts {
		opt(&o)
	}
	if resolve == nil {
		resolve = RecordedRoute
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			span := c.SpanFromContext(r.Context())

			r = WithRouteSlot(r)
			next.ServeHTTP(w, r)

			if span == nil {
				return
			}
			if Enrich(span, resolve(r)) {
				o.metrics.SpanEnriched()
			}
		})
	}
}

// Enrich sets the span's name and http.route tag to the provided route
// pattern. It reports false, leaving the span untouched, if there is no span
// or the route is empty. Enriching a span twice with the same route has the
// same effect as doing it once.
func Enrich(span Span, route string) bool {
	if span == nil || route == "" {
		return false
	}
	span.SetName(route)
	span.Tag(TagHTTPRoute, route)
	return true
}
