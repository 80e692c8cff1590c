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
	"math"
	"reflect"
)

// Binding is a named query parameter and its value.
type Binding struct {
	Name  string
	Value any
}

// Window is the row range of a paginated read.
type Window struct {
	Offset int
	Limit  int
}

// Invocation is the per-call view of an operation: the resolved action and
// the arguments sorted by role.
type Invocation struct {
	Operation *Operation
	Kind      ActionKind
	Bindings  []Binding

	// Payload is the entity of create, merge and delete calls.
	Payload any
	// Key is the primary key of find calls.
	Key any
	// Window is nil unless both offset and limit were supplied as integers.
	Window *Window
}

// Classify validates args against op and sorts them by role. It never
// touches a session.
func Classify(op *Operation, args []any) (*Invocation, error) {
	if op == nil {
		return nil, newError(ErrorTypeUnsupported, "", "operation is nil")
	}
	if op.kind == ActionUnsupported {
		return nil, newError(ErrorTypeUnsupported, op.Name(), "operation has no persistence metadata")
	}
	if len(args) != len(op.decl.Params) {
		return nil, newError(ErrorTypeValidation, op.Name(), "expected %d arguments, got %d", len(op.decl.Params), len(args))
	}

	inv := &Invocation{Operation: op, Kind: op.kind}
	switch op.kind {
	case ActionCreate, ActionUpdateMerge, ActionDelete:
		if isNil(args[0]) {
			return nil, newError(ErrorTypeValidation, op.Name(), "%s object is null", op.entityType())
		}
		inv.Payload = args[0]
	case ActionFindByKey:
		if isNil(args[0]) {
			return nil, newError(ErrorTypeValidation, op.Name(), "invalid id")
		}
		inv.Key = args[0]
	case ActionNamedQueryRead, ActionNamedQueryBulkUpdate:
		var offset, limit any
		for i, p := range op.decl.Params {
			switch p.Role {
			case RoleBound:
				if isNil(args[i]) {
					return nil, newError(ErrorTypeValidation, op.Name(), "%s is null", p.Name)
				}
				inv.Bindings = append(inv.Bindings, Binding{Name: p.Name, Value: args[i]})
			case RoleOffset:
				offset = args[i]
			case RoleLimit:
				limit = args[i]
			}
		}
		if op.kind != ActionNamedQueryRead || isNil(offset) || isNil(limit) {
			break
		}
		first, okOffset, err := toCount(op, "offset", offset)
		if err != nil {
			return nil, err
		}
		lim, okLimit, err := toCount(op, "limit", limit)
		if err != nil {
			return nil, err
		}
		if okOffset && okLimit {
			inv.Window = &Window{Offset: first, Limit: lim}
		}
	}
	return inv, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// toCount converts an offset or limit argument to a non-negative int. Pointers
// to integers are dereferenced. ok is false for values that are not integers,
// which leaves the read unpaginated.
func toCount(op *Operation, name string, v any) (n int, ok bool, err error) {
	rv := reflect.Indirect(reflect.ValueOf(v))
	var i int64
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i = rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt32 {
			return 0, false, newError(ErrorTypeValidation, op.Name(), "%s %d is out of range", name, u)
		}
		i = int64(u)
	default:
		return 0, false, nil
	}
	if i < 0 {
		return 0, false, newError(ErrorTypeValidation, op.Name(), "%s must not be negative, got %d", name, i)
	}
	if i > math.MaxInt32 {
		return 0, false, newError(ErrorTypeValidation, op.Name(), "%s %d is out of range", name, i)
	}
	return int(i), true, nil
}
