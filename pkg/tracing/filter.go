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

package tracing

import (
	"strings"
)

// NoiseFilter reports whether the request with the provided path is to be
// excluded from tracing.
type NoiseFilter func(path string) bool

// NewNoiseFilter returns a NoiseFilter excluding every path containing one of
// the provided fragments. Matching is case-insensitive. Empty fragments are
// ignored.
func NewNoiseFilter(excluded []string) NoiseFilter {
	fragments := make([]string, 0, len(excluded))
	for _, f := range excluded {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			fragments = append(fragments, f)
		}
	}
	if len(fragments) == 0 {
		return func(string) bool { return false }
	}
	return func(path string) bool {
		path = strings.ToLower(path)
		for _, f := range fragments {
			if strings.Contains(path, f) {
				return true
			}
		}
		return false
	}
}
