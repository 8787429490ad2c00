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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisteredSources(t *testing.T) {
	cfg := Defaults()
	cfg.Instrumentation.Outbound.Enabled = false
	cfg.Instrumentation.Database.RecordStatement = false

	sources := cfg.RegisteredSources()
	require.Len(t, sources, 4)
	assert.Equal(t, []SourceKind{SourceInbound, SourceOutbound, SourceDatabase, SourceCustom},
		[]SourceKind{sources[0].Kind, sources[1].Kind, sources[2].Kind, sources[3].Kind})

	inbound, ok := LookupSource(sources, SourceInbound)
	require.True(t, ok)
	assert.True(t, inbound.Enabled)
	assert.True(t, inbound.RecordException)

	outbound, ok := LookupSource(sources, SourceOutbound)
	require.True(t, ok)
	assert.False(t, outbound.Enabled)

	db, ok := LookupSource(sources, SourceDatabase)
	require.True(t, ok)
	assert.True(t, db.Enabled)
	assert.False(t, db.RecordStatement)

	custom, ok := LookupSource(sources, SourceCustom)
	require.True(t, ok)
	assert.True(t, custom.Enabled)
	assert.Equal(t, "MyApp*", custom.Pattern)

	cfg.ServiceName = "Checkout"
	custom, _ = LookupSource(cfg.RegisteredSources(), SourceCustom)
	assert.True(t, custom.Enabled)
	assert.Equal(t, "Checkout*", custom.Pattern)

	cfg.Sources.Prefix = "LMS.*"
	custom, _ = LookupSource(cfg.RegisteredSources(), SourceCustom)
	assert.Equal(t, "LMS.*", custom.Pattern)

	cfg.Sources.Enabled = false
	custom, _ = LookupSource(cfg.RegisteredSources(), SourceCustom)
	assert.False(t, custom.Enabled)

	missing, ok := LookupSource(nil, SourceDatabase)
	assert.False(t, ok)
	assert.False(t, missing.Enabled)
	assert.Equal(t, SourceDatabase, missing.Kind)
}

func TestSourceMatcher(t *testing.T) {
	tests := []struct {
		prefix string
		name   string
		match  bool
	}{
		{"LMS", "LMS", true},
		{"LMS", "LMS.Courses", true},
		{"LMS", "LMSx", true},
		{"LMS", "Other.LMS", false},
		{"LMS.*", "LMS.Courses", true},
		{"LMS.*", "LMS", false},
		{"LMS.{Courses,Users}", "LMS.Users", true},
		{"LMS.{Courses,Users}", "LMS.Grades", false},
		{"", "LMS", false},
	}

	for _, tt := range tests {
		t.Run(tt.prefix+"/"+tt.name, func(t *testing.T) {
			match, err := NewSourceMatcher(tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.match, match(tt.name))
		})
	}
}

func TestSourceMatcherInvalid(t *testing.T) {
	_, err := NewSourceMatcher("LMS.[")
	assert.Error(t, err)
}

func TestResourceTags(t *testing.T) {
	assert.Equal(t,
		map[string]string{TagServiceName: "MyApp", TagServiceVersion: "1.2.3"},
		NewResource("MyApp", "1.2.3").Tags())
	assert.Equal(t,
		map[string]string{TagServiceName: "MyApp"},
		NewResource("MyApp", "").Tags())
}
