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

import (
	"context"
	"errors"
	"reflect"
)

// Execute performs the action of a classified invocation against s.
//
// Results by kind: create returns the payload, merge the managed instance,
// delete nil, find the entity or nil when absent, reads a pointer to the
// entity or the collection value, bulk updates the affected row count as
// int64 when a count is declared and nil otherwise.
func Execute(ctx context.Context, s Session, inv *Invocation) (any, error) {
	if inv == nil || inv.Operation == nil {
		return nil, newError(ErrorTypeUnsupported, "", "invocation is nil")
	}
	op := inv.Operation
	switch inv.Kind {
	case ActionCreate:
		if err := s.Persist(ctx, inv.Payload); err != nil {
			return nil, err
		}
		return inv.Payload, nil

	case ActionUpdateMerge:
		return s.Merge(ctx, inv.Payload)

	case ActionDelete:
		managed, err := s.Merge(ctx, inv.Payload)
		if err != nil {
			return nil, err
		}
		return nil, s.Remove(ctx, managed)

	case ActionFindByKey:
		dest := op.decl.NewEntity()
		found, err := s.Find(ctx, dest, inv.Key)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		return dest, nil

	case ActionNamedQueryRead:
		q, err := prepare(s, inv)
		if err != nil {
			return nil, err
		}
		if op.decl.Returns == ReturnCollection {
			dest := op.decl.NewList()
			if err := q.ResultList(ctx, dest); err != nil {
				return nil, err
			}
			return reflect.Indirect(reflect.ValueOf(dest)).Interface(), nil
		}
		dest := op.decl.NewEntity()
		if err := q.SingleResult(ctx, dest); err != nil {
			if op.decl.Optional && errors.Is(err, ErrNoResult) {
				return nil, nil
			}
			return nil, err
		}
		return dest, nil

	case ActionNamedQueryBulkUpdate:
		if err := checkUpdateShape(op.Name(), op.decl.Returns); err != nil {
			return nil, err
		}
		q, err := prepare(s, inv)
		if err != nil {
			return nil, err
		}
		n, err := q.ExecuteUpdate(ctx)
		if err != nil {
			return nil, err
		}
		if op.decl.Returns == ReturnCount {
			return n, nil
		}
		return nil, nil

	default:
		return nil, newError(ErrorTypeUnsupported, op.Name(), "operation has no persistence metadata")
	}
}

func prepare(s Session, inv *Invocation) (Query, error) {
	q, err := s.NamedQuery(inv.Operation.decl.Query)
	if err != nil {
		return nil, err
	}
	for _, b := range inv.Bindings {
		q = q.SetParameter(b.Name, b.Value)
	}
	if inv.Window != nil {
		q = q.SetFirstResult(inv.Window.Offset).SetMaxResults(inv.Window.Limit)
	}
	return q, nil
}
