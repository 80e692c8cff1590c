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

package repository

import (
	"context"
	"fmt"

	"github.com/tomoncle/drycrud/dispatch"
	"github.com/tomoncle/drycrud/types"
)

// EntityOp stores an entity and returns the stored instance.
type EntityOp[T any] struct {
	op *dispatch.Operation
}

// Persist declares an operation that creates T.
func Persist[T any](r *Repository, name string) (*EntityOp[T], error) {
	return entityOp[T](r, name, dispatch.TagPersist)
}

// Merge declares an operation that merges a detached T and returns the
// managed copy.
func Merge[T any](r *Repository, name string) (*EntityOp[T], error) {
	return entityOp[T](r, name, dispatch.TagMerge)
}

func entityOp[T any](r *Repository, name string, tag dispatch.Tag) (*EntityOp[T], error) {
	op, err := r.dispatcher.Register(dispatch.Declaration{
		Name:   name,
		Tags:   tag,
		Params: []dispatch.Param{dispatch.Positional(entityName[T]())},
	})
	if err != nil {
		return nil, err
	}
	return &EntityOp[T]{op: op}, nil
}

func (o *EntityOp[T]) Operation() *dispatch.Operation { return o.op }

func (o *EntityOp[T]) Call(ctx context.Context, s dispatch.Session, entity *T) (*T, error) {
	res, err := dispatch.Invoke(ctx, s, o.op, entity)
	return asEntity[T](o.op, res, err)
}

// RemoveOp deletes an entity.
type RemoveOp[T any] struct {
	op *dispatch.Operation
}

func Remove[T any](r *Repository, name string) (*RemoveOp[T], error) {
	op, err := r.dispatcher.Register(dispatch.Declaration{
		Name:   name,
		Tags:   dispatch.TagRemove,
		Params: []dispatch.Param{dispatch.Positional(entityName[T]())},
	})
	if err != nil {
		return nil, err
	}
	return &RemoveOp[T]{op: op}, nil
}

func (o *RemoveOp[T]) Operation() *dispatch.Operation { return o.op }

func (o *RemoveOp[T]) Call(ctx context.Context, s dispatch.Session, entity *T) error {
	_, err := dispatch.Invoke(ctx, s, o.op, entity)
	return err
}

// FindOp loads a T by primary key. A missing row is a nil result.
type FindOp[T any] struct {
	op *dispatch.Operation
}

func Find[T any](r *Repository, name string) (*FindOp[T], error) {
	op, err := r.dispatcher.Register(dispatch.Declaration{
		Name:       name,
		Tags:       dispatch.TagFind,
		EntityType: entityName[T](),
		NewEntity:  newEntity[T](),
		Params:     []dispatch.Param{dispatch.Positional("")},
	})
	if err != nil {
		return nil, err
	}
	return &FindOp[T]{op: op}, nil
}

func (o *FindOp[T]) Operation() *dispatch.Operation { return o.op }

func (o *FindOp[T]) Call(ctx context.Context, s dispatch.Session, key any) (*T, error) {
	res, err := dispatch.Invoke(ctx, s, o.op, key)
	return asEntity[T](o.op, res, err)
}

// ListOp runs a named query returning rows of T. The query parameters are
// bound in the order of params.
type ListOp[T any] struct {
	op *dispatch.Operation
}

func List[T any](r *Repository, name, query string, params ...string) (*ListOp[T], error) {
	op, err := r.dispatcher.Register(dispatch.Declaration{
		Name:       name,
		Tags:       dispatch.TagNamedQuery,
		Query:      query,
		Returns:    dispatch.ReturnCollection,
		EntityType: entityName[T](),
		NewList:    newList[T](),
		Params:     append(bound(params), dispatch.Offset(), dispatch.Limit()),
	})
	if err != nil {
		return nil, err
	}
	return &ListOp[T]{op: op}, nil
}

func (o *ListOp[T]) Operation() *dispatch.Operation { return o.op }

// Call returns every row.
func (o *ListOp[T]) Call(ctx context.Context, s dispatch.Session, args ...any) ([]*T, error) {
	return o.window(ctx, s, nil, nil, args)
}

// Range returns at most limit rows starting at the zero-based offset.
func (o *ListOp[T]) Range(ctx context.Context, s dispatch.Session, offset, limit int, args ...any) ([]*T, error) {
	return o.window(ctx, s, offset, limit, args)
}

// Page returns one page of rows.
func (o *ListOp[T]) Page(ctx context.Context, s dispatch.Session, page *types.PageRequest, args ...any) (*types.Pagination[T], error) {
	if page == nil {
		page = types.NewPageRequest(1, 0)
	}
	items, err := o.window(ctx, s, page.GetOffset(), page.GetLimit(), args)
	if err != nil {
		return nil, err
	}
	pagination := types.NewDefaultPagination[T](page.GetPage(), page.GetPageSize())
	if items != nil {
		pagination.Items = items
	}
	return pagination, nil
}

func (o *ListOp[T]) window(ctx context.Context, s dispatch.Session, offset, limit any, args []any) ([]*T, error) {
	full := make([]any, 0, len(args)+2)
	full = append(full, args...)
	full = append(full, offset, limit)
	res, err := dispatch.Invoke(ctx, s, o.op, full...)
	if err != nil || res == nil {
		return nil, err
	}
	items, ok := res.([]*T)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", o.op.Name(), res)
	}
	return items, nil
}

// SingleOp runs a named query expected to match one row.
type SingleOp[T any] struct {
	op *dispatch.Operation
}

// Single declares a strict single row read: no row is an error matching
// dispatch.ErrNoResult.
func Single[T any](r *Repository, name, query string, params ...string) (*SingleOp[T], error) {
	return singleOp[T](r, name, query, false, params)
}

// Optional declares a single row read that returns nil when no row matches.
func Optional[T any](r *Repository, name, query string, params ...string) (*SingleOp[T], error) {
	return singleOp[T](r, name, query, true, params)
}

func singleOp[T any](r *Repository, name, query string, optional bool, params []string) (*SingleOp[T], error) {
	op, err := r.dispatcher.Register(dispatch.Declaration{
		Name:       name,
		Tags:       dispatch.TagNamedQuery,
		Query:      query,
		Returns:    dispatch.ReturnSingle,
		Optional:   optional,
		EntityType: entityName[T](),
		NewEntity:  newEntity[T](),
		Params:     bound(params),
	})
	if err != nil {
		return nil, err
	}
	return &SingleOp[T]{op: op}, nil
}

func (o *SingleOp[T]) Operation() *dispatch.Operation { return o.op }

func (o *SingleOp[T]) Call(ctx context.Context, s dispatch.Session, args ...any) (*T, error) {
	res, err := dispatch.Invoke(ctx, s, o.op, args...)
	return asEntity[T](o.op, res, err)
}

// CountOp runs a mutating named query and returns the affected row count.
type CountOp struct {
	op *dispatch.Operation
}

func UpdateCount(r *Repository, name, query string, params ...string) (*CountOp, error) {
	op, err := r.dispatcher.Register(dispatch.Declaration{
		Name:    name,
		Tags:    dispatch.TagNamedQuery,
		Query:   query,
		Update:  true,
		Returns: dispatch.ReturnCount,
		Params:  bound(params),
	})
	if err != nil {
		return nil, err
	}
	return &CountOp{op: op}, nil
}

func (o *CountOp) Operation() *dispatch.Operation { return o.op }

func (o *CountOp) Call(ctx context.Context, s dispatch.Session, args ...any) (int64, error) {
	res, err := dispatch.Invoke(ctx, s, o.op, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.(int64)
	return n, nil
}

// ExecOp runs a mutating named query and discards the row count.
type ExecOp struct {
	op *dispatch.Operation
}

func Update(r *Repository, name, query string, params ...string) (*ExecOp, error) {
	op, err := r.dispatcher.Register(dispatch.Declaration{
		Name:   name,
		Tags:   dispatch.TagNamedQuery,
		Query:  query,
		Update: true,
		Params: bound(params),
	})
	if err != nil {
		return nil, err
	}
	return &ExecOp{op: op}, nil
}

func (o *ExecOp) Operation() *dispatch.Operation { return o.op }

func (o *ExecOp) Call(ctx context.Context, s dispatch.Session, args ...any) error {
	_, err := dispatch.Invoke(ctx, s, o.op, args...)
	return err
}
