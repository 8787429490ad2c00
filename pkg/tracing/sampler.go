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
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Sampler decides if the trace identified by the lower 64 bits of its trace ID
// is to be recorded. It is deterministic: every span of a trace gets the same
// decision, on every node that shares the sampling ratio.
type Sampler func(traceID uint64) bool

// NeverSample is a Sampler that drops every trace.
func NeverSample(_ uint64) bool { return false }

// AlwaysSample is a Sampler that records every trace.
func AlwaysSample(_ uint64) bool { return true }

// NewSampler returns a trace ID ratio based Sampler. The trace ID is hashed and
// the trace is sampled when the hash falls below ratio scaled to the hash
// space. Every ratio within [0,1] is accepted.
func NewSampler(ratio float64) (Sampler, error) {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return nil, fmt.Errorf("%w: was %v", ErrSamplingRatio, ratio)
	}
	switch ratio {
	case 0:
		return NeverSample, nil
	case 1:
		return AlwaysSample, nil
	}

	// compare within 63 bits so ratio * 2^63 always fits an uint64
	bound := uint64(ratio * (1 << 63))
	return func(traceID uint64) bool {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], traceID)
		return xxhash.Sum64(b[:])>>1 < bound
	}, nil
}
