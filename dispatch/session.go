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

package dispatch

import "context"

// Session is the persistence session the executor drives. The dispatch layer
// never opens, commits or closes it; transaction demarcation belongs to the
// caller.
type Session interface {
	// Persist makes a new entity managed and stores it.
	Persist(ctx context.Context, entity any) error
	// Merge copies the state of a detached entity into the store and returns
	// the managed instance, which may differ from the argument.
	Merge(ctx context.Context, entity any) (any, error)
	// Remove deletes a managed entity.
	Remove(ctx context.Context, entity any) error
	// Find loads the entity with the given primary key into dest and reports
	// whether it exists.
	Find(ctx context.Context, dest any, key any) (bool, error)
	// NamedQuery prepares the query registered under name.
	NamedQuery(name string) (Query, error)
}

// Query is a prepared named query. Setters return the receiver so calls can
// be chained.
type Query interface {
	SetParameter(name string, value any) Query
	SetFirstResult(offset int) Query
	SetMaxResults(limit int) Query
	// ResultList scans every row into dest, a pointer to a slice.
	ResultList(ctx context.Context, dest any) error
	// SingleResult scans exactly one row into dest. It returns an error
	// matching ErrNoResult when no row matched and ErrNonUniqueResult when
	// more than one did.
	SingleResult(ctx context.Context, dest any) error
	// ExecuteUpdate runs a mutating query and returns the affected row count.
	ExecuteUpdate(ctx context.Context) (int64, error)
}
