/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package drycrud

import (
	"context"

	"github.com/tomoncle/drycrud/database"
	"github.com/tomoncle/drycrud/repository"
	"github.com/tomoncle/drycrud/types"
)

// ErrNotInitialized is returned by every Service method before database.InitDB.
var ErrNotInitialized = database.ErrNotInitialized

type Service[T any] interface {
	// Get returns a single entity by its identifier, or nil when it does not exist.
	Get(ctx context.Context, id any) (*T, error)

	// All returns the rows of the named query "<name>.findAll".
	All(ctx context.Context) ([]*T, error)

	// Page returns one page of the named query "<name>.findAll".
	Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error)

	// Save inserts one or more new entities.
	Save(ctx context.Context, model ...*T) error

	// Update merges a detached entity and returns the stored copy.
	Update(ctx context.Context, model *T) (*T, error)

	// Delete removes an entity by its identifier. A missing entity is not an error.
	Delete(ctx context.Context, id any) error

	// Transaction runs fn with a service bound to a single transaction.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Service[T]) error) error

	// Repository exposes the underlying operations.
	Repository() *repository.Repository
}

type operations[T any] struct {
	repo    *repository.Repository
	create  *repository.EntityOp[T]
	update  *repository.EntityOp[T]
	remove  *repository.RemoveOp[T]
	find    *repository.FindOp[T]
	findAll *repository.ListOp[T]
}

type baseServiceImpl[T any] struct {
	ops *operations[T]
	// session is fixed inside Transaction; otherwise the global one is used.
	session *database.Session
}

// NewService returns a Service for T backed by the global database. The
// operations are registered under name, e.g. "Book.create", and All reads
// the named query "<name>.findAll".
func NewService[T any](name string) Service[T] {
	r := repository.New(nil)
	ops := &operations[T]{
		repo:    r,
		create:  repository.Must(repository.Persist[T](r, name+".create")),
		update:  repository.Must(repository.Merge[T](r, name+".update")),
		remove:  repository.Must(repository.Remove[T](r, name+".delete")),
		find:    repository.Must(repository.Find[T](r, name+".find")),
		findAll: repository.Must(repository.List[T](r, name+".findAll", name+".findAll")),
	}
	return &baseServiceImpl[T]{ops: ops}
}

func (s *baseServiceImpl[T]) currentSession() (*database.Session, error) {
	if s.session != nil {
		return s.session, nil
	}
	return database.GetSession()
}

func (s *baseServiceImpl[T]) Repository() *repository.Repository { return s.ops.repo }

func (s *baseServiceImpl[T]) Get(ctx context.Context, id any) (*T, error) {
	sess, err := s.currentSession()
	if err != nil {
		return nil, err
	}
	return s.ops.find.Call(ctx, sess, id)
}

func (s *baseServiceImpl[T]) All(ctx context.Context) ([]*T, error) {
	sess, err := s.currentSession()
	if err != nil {
		return nil, err
	}
	return s.ops.findAll.Call(ctx, sess)
}

func (s *baseServiceImpl[T]) Page(ctx context.Context, page *types.PageRequest) (*types.Pagination[T], error) {
	sess, err := s.currentSession()
	if err != nil {
		return nil, err
	}
	return s.ops.findAll.Page(ctx, sess, page)
}

func (s *baseServiceImpl[T]) Save(ctx context.Context, model ...*T) error {
	sess, err := s.currentSession()
	if err != nil {
		return err
	}
	for _, m := range model {
		if _, err := s.ops.create.Call(ctx, sess, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *baseServiceImpl[T]) Update(ctx context.Context, model *T) (*T, error) {
	sess, err := s.currentSession()
	if err != nil {
		return nil, err
	}
	return s.ops.update.Call(ctx, sess, model)
}

func (s *baseServiceImpl[T]) Delete(ctx context.Context, id any) error {
	sess, err := s.currentSession()
	if err != nil {
		return err
	}
	model, err := s.ops.find.Call(ctx, sess, id)
	if err != nil || model == nil {
		return err
	}
	return s.ops.remove.Call(ctx, sess, model)
}

func (s *baseServiceImpl[T]) Transaction(ctx context.Context, fn func(ctx context.Context, tx Service[T]) error) error {
	sess, err := s.currentSession()
	if err != nil {
		return err
	}
	return sess.RunInTx(ctx, func(ctx context.Context, tx *database.Session) error {
		return fn(ctx, &baseServiceImpl[T]{ops: s.ops, session: tx})
	})
}
