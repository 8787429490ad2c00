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
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SourceKind identifies an instrumentation source.
type SourceKind string

// instrumentation sources
const (
	SourceInbound  SourceKind = "inbound-http"
	SourceOutbound SourceKind = "outbound-http"
	SourceDatabase SourceKind = "database"
	SourceCustom   SourceKind = "custom"
)

// Source is a registered instrumentation source. Each source decides its own
// span boundaries; the pipeline only enables it and hands it its options.
type Source struct {
	Kind    SourceKind
	Enabled bool
	// RecordException tags spans with error details on failure.
	RecordException bool
	// RecordStatement captures the statement text (database source only).
	RecordStatement bool
	// Pattern holds the name pattern of captured spans (custom source only).
	Pattern string
}

// RegisteredSources returns the instrumentation sources in registration
// order: inbound HTTP, outbound HTTP, database driver and custom spans.
func (c Config) RegisteredSources() []Source {
	i := c.Instrumentation
	return []Source{
		{Kind: SourceInbound, Enabled: i.Inbound.Enabled, RecordException: i.Inbound.RecordException},
		{Kind: SourceOutbound, Enabled: i.Outbound.Enabled, RecordException: i.Outbound.RecordException},
		{
			Kind:            SourceDatabase,
			Enabled:         i.Database.Enabled,
			RecordException: i.Database.RecordException,
			RecordStatement: i.Database.RecordStatement,
		},
		{
			Kind:    SourceCustom,
			Enabled: c.Sources.Enabled && c.SourcePrefix() != "",
			Pattern: sourcePattern(c.SourcePrefix()),
		},
	}
}

// LookupSource finds the source of the requested kind.
func LookupSource(sources []Source, kind SourceKind) (Source, bool) {
	for _, s := range sources {
		if s.Kind == kind {
			return s, true
		}
	}
	return Source{Kind: kind}, false
}

// SourceMatcher reports whether spans of the named custom source are captured.
type SourceMatcher func(name string) bool

// NewSourceMatcher returns a SourceMatcher for the provided prefix. A prefix
// without glob meta characters matches every name starting with it, otherwise
// it is used as a glob pattern. An empty prefix matches nothing.
func NewSourceMatcher(prefix string) (SourceMatcher, error) {
	if prefix == "" {
		return func(string) bool { return false }, nil
	}
	pattern := sourcePattern(prefix)
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid source pattern %q", pattern)
	}
	return func(name string) bool {
		return doublestar.MatchUnvalidated(pattern, name)
	}, nil
}

func sourcePattern(prefix string) string {
	if prefix == "" || strings.ContainsAny(prefix, `*?[{\`) {
		return prefix
	}
	return prefix + "*"
}
