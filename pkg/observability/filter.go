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

	"github.com/basvanbeek/routetracer/pkg/tracing"
)

// Filtered wraps instrument so requests excluded by filter bypass it entirely:
// they are served by next directly and no span is created for them.
func Filtered(filter tracing.NoiseFilter, instrument func(http.Handler) http.Handler, m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		traced := instrument(next)
		if filter == nil {
			return traced
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if filter(r.URL.Path) {
				m.RequestFiltered()
				next.ServeHTTP(w, r)
				return
			}
			traced.ServeHTTP(w, r)
		})
	}
}
