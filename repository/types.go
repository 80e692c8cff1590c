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
	"reflect"

	"github.com/tomoncle/drycrud/dispatch"
)

// Repository registers typed operations on a dispatcher.
type Repository struct {
	dispatcher *dispatch.Dispatcher
}

// New returns a Repository on d, or on a fresh dispatcher when d is nil.
func New(d *dispatch.Dispatcher) *Repository {
	if d == nil {
		d = dispatch.NewDispatcher()
	}
	return &Repository{dispatcher: d}
}

func (r *Repository) Dispatcher() *dispatch.Dispatcher { return r.dispatcher }

// Invoke runs any registered operation by name with untyped arguments.
func (r *Repository) Invoke(ctx context.Context, s dispatch.Session, name string, args ...any) (any, error) {
	return r.dispatcher.Invoke(ctx, s, name, args...)
}

// Must panics when err is not nil. It is meant for package level
// declarations:
//
//	var findBook = repository.Must(repository.Find[Book](repo, "Book.find"))
func Must[O any](op O, err error) O {
	if err != nil {
		panic(err)
	}
	return op
}

func entityName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().Name()
}

func newEntity[T any]() func() any {
	return func() any { return new(T) }
}

func newList[T any]() func() any {
	return func() any { return new([]*T) }
}

func bound(names []string) []dispatch.Param {
	params := make([]dispatch.Param, len(names))
	for i, n := range names {
		params[i] = dispatch.Bound(n)
	}
	return params
}

func asEntity[T any](op *dispatch.Operation, result any, err error) (*T, error) {
	if err != nil || result == nil {
		return nil, err
	}
	entity, ok := result.(*T)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", op.Name(), result)
	}
	return entity, nil
}
