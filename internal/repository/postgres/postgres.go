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

// Package postgres holds a PostgreSQL backed user store. Queries are traced
// by the database instrumentation source.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/basvanbeek/routetracer/internal/repository"
	"github.com/basvanbeek/routetracer/pkg/observability"
	"github.com/basvanbeek/routetracer/pkg/observability/pgxtrace"
	"github.com/basvanbeek/routetracer/pkg/tracing"
)

const (
	queryGet  = `SELECT id, name, email FROM users WHERE id = $1`
	queryList = `SELECT id, name, email FROM users ORDER BY id`
)

// Store is a PostgreSQL repository.Users.
type Store struct {
	pool *pgxpool.Pool
}

var _ repository.Users = (*Store)(nil)

// Config returns the pool configuration of dsn with the database source
// attached to each connection.
func Config(dsn string, tracer observability.Tracer, source tracing.Source) (*pgxpool.Config, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pgxtrace.Attach(cfg.ConnConfig, tracer, source)
	return cfg, nil
}

// New connects to the database at dsn.
func New(ctx context.Context, dsn string, tracer observability.Tracer, source tracing.Source) (*Store, error) {
	cfg, err := Config(dsn, tracer, source)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Get implements repository.Users.
func (s *Store) Get(ctx context.Context, id int64) (repository.User, error) {
	var u repository.User
	err := s.pool.QueryRow(ctx, queryGet, id).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.User{}, repository.ErrNotFound
	}
	return u, err
}

// List implements repository.Users.
func (s *Store) List(ctx context.Context) ([]repository.User, error) {
	rows, err := s.pool.Query(ctx, queryList)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []repository.User
	for rows.Next() {
		var u repository.User
		if err = rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Ping implements repository.Users.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close implements repository.Users.
func (s *Store) Close() {
	s.pool.Close()
}
