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

// Package memory holds an in-memory user store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/basvanbeek/routetracer/internal/repository"
)

// Store is an in-memory repository.Users.
type Store struct {
	mtx   sync.RWMutex
	users map[int64]repository.User
}

var _ repository.Users = (*Store)(nil)

// New returns a Store holding the provided users.
func New(users ...repository.User) *Store {
	s := &Store{users: make(map[int64]repository.User, len(users))}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

// Seeded returns a Store holding a few demo users.
func Seeded() *Store {
	return New(
		repository.User{ID: 1, Name: "Ada Lovelace", Email: "ada@example.com"},
		repository.User{ID: 7, Name: "Grace Hopper", Email: "grace@example.com"},
		repository.User{ID: 42, Name: "Alan Turing", Email: "alan@example.com"},
	)
}

// Get implements repository.Users.
func (s *Store) Get(_ context.Context, id int64) (repository.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return repository.User{}, repository.ErrNotFound
	}
	return u, nil
}

// List implements repository.Users.
func (s *Store) List(_ context.Context) ([]repository.User, error) {
	s.mtx.RLock()
	users := make([]repository.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	s.mtx.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// Ping implements repository.Users.
func (s *Store) Ping(context.Context) error { return nil }

// Close implements repository.Users.
func (s *Store) Close() {}
