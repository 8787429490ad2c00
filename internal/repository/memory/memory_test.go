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

package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basvanbeek/routetracer/internal/repository"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := Seeded()

	u, err := s.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Alan Turing", u.Name)

	_, err = s.Get(ctx, 3)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	users, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, []int64{1, 7, 42}, []int64{users[0].ID, users[1].ID, users[2].ID})

	assert.NoError(t, s.Ping(ctx))
}
