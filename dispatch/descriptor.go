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
	"strings"

	"github.com/tomoncle/drycrud/types"
)

// ActionKind is the persistence action an operation resolves to.
type ActionKind int

const (
	ActionUnsupported ActionKind = iota
	ActionCreate
	ActionUpdateMerge
	ActionDelete
	ActionFindByKey
	ActionNamedQueryRead
	ActionNamedQueryBulkUpdate
)

var actionKindNames = [...]string{
	"UNSUPPORTED",
	"CREATE",
	"UPDATE_MERGE",
	"DELETE",
	"FIND_BY_KEY",
	"NAMED_QUERY_READ",
	"NAMED_QUERY_BULK_UPDATE",
}

var actionKindDescs = [...]string{
	"no handler logic",
	"persist a new entity",
	"merge a detached entity",
	"merge then remove an entity",
	"look up an entity by primary key",
	"run a named query returning entities",
	"run a named query mutating rows",
}

var _ types.BaseEnum = ActionKind(0)

func (k ActionKind) IsValid() bool {
	return k > ActionUnsupported && k <= ActionNamedQueryBulkUpdate
}

func (k ActionKind) Number() int {
	if !k.IsValid() {
		return types.IllegalValue
	}
	return int(k)
}

func (k ActionKind) Name() string {
	if k < 0 || int(k) >= len(actionKindNames) {
		return types.IllegalName
	}
	return actionKindNames[k]
}

func (k ActionKind) Desc() string {
	if k < 0 || int(k) >= len(actionKindDescs) {
		return types.IllegalDesc
	}
	return actionKindDescs[k]
}

func (k ActionKind) String() string { return k.Name() }

// ReturnShape is the declared result of an operation.
type ReturnShape int

const (
	ReturnNothing ReturnShape = iota
	ReturnSingle
	ReturnCollection
	ReturnCount
)

var returnShapeNames = [...]string{"NOTHING", "SINGLE", "COLLECTION", "COUNT"}

var _ types.BaseEnum = ReturnShape(0)

func (r ReturnShape) IsValid() bool { return r >= ReturnNothing && r <= ReturnCount }

func (r ReturnShape) Number() int {
	if !r.IsValid() {
		return types.IllegalValue
	}
	return int(r)
}

func (r ReturnShape) Name() string {
	if !r.IsValid() {
		return types.IllegalName
	}
	return returnShapeNames[r]
}

func (r ReturnShape) Desc() string {
	switch r {
	case ReturnNothing:
		return "void"
	case ReturnSingle:
		return "single value"
	case ReturnCollection:
		return "collection"
	case ReturnCount:
		return "affected row count"
	default:
		return types.IllegalDesc
	}
}

func (r ReturnShape) String() string { return r.Name() }

// ParamRole tells the classifier how an argument is used.
type ParamRole int

const (
	// RolePositional arguments carry the entity payload or the primary key.
	RolePositional ParamRole = iota
	RoleBound
	RoleOffset
	RoleLimit
)

var paramRoleNames = [...]string{"POSITIONAL", "BOUND", "OFFSET", "LIMIT"}

var paramRoleDescs = [...]string{
	"entity payload or primary key",
	"named query parameter",
	"zero-based first row",
	"maximum row count",
}

var _ types.BaseEnum = ParamRole(0)

func (r ParamRole) IsValid() bool { return r >= RolePositional && r <= RoleLimit }

func (r ParamRole) Number() int {
	if !r.IsValid() {
		return types.IllegalValue
	}
	return int(r)
}

func (r ParamRole) Name() string {
	if !r.IsValid() {
		return types.IllegalName
	}
	return paramRoleNames[r]
}

func (r ParamRole) Desc() string {
	if !r.IsValid() {
		return types.IllegalDesc
	}
	return paramRoleDescs[r]
}

func (r ParamRole) String() string { return r.Name() }

// Tag is the metadata attached to a declared operation. Several tags may be
// set; the first one in the order named query, find, merge, remove, persist
// decides the action.
type Tag uint8

const (
	TagNamedQuery Tag = 1 << iota
	TagFind
	TagMerge
	TagRemove
	TagPersist
)

// Param describes one formal argument of an operation.
type Param struct {
	Role ParamRole
	// Name is the binding name of a RoleBound parameter.
	Name string
	// Type is the simple type name, used in validation messages.
	Type string
}

// Positional declares an unannotated argument of the given type.
func Positional(typeName string) Param {
	return Param{Role: RolePositional, Type: typeName}
}

// Bound declares a named query parameter.
func Bound(name string) Param {
	return Param{Role: RoleBound, Name: name}
}

// Offset declares the zero-based first row of a paginated read.
func Offset() Param {
	return Param{Role: RoleOffset, Name: "offset", Type: "int"}
}

// Limit declares the maximum row count of a paginated read.
func Limit() Param {
	return Param{Role: RoleLimit, Name: "limit", Type: "int"}
}

// integerTypes are the type names accepted on offset and limit parameters.
var integerTypes = map[string]bool{
	"int": true, "int8": true, "int16": true, "int32": true, "int64": true,
	"uint": true, "uint8": true, "uint16": true, "uint32": true, "uint64": true,
}

// Declaration is the registration input for one operation.
type Declaration struct {
	Name     string
	Tags     Tag
	Query    string
	Update   bool
	Returns  ReturnShape
	Optional bool
	Params   []Param

	// EntityType is the simple entity type name used in messages when the
	// positional parameter carries no type.
	EntityType string
	// NewEntity allocates the declared single result, e.g. new(Book).
	NewEntity func() any
	// NewList allocates the declared collection result, e.g. new([]*Book).
	NewList func() any
}

// Operation is a validated, immutable Declaration with its resolved action.
type Operation struct {
	decl        Declaration
	kind        ActionKind
	offsetIndex int
	limitIndex  int
}

// Compile validates a declaration and resolves its action kind. A
// declaration without any tag compiles to ActionUnsupported and fails on
// every invocation.
func Compile(decl Declaration) (*Operation, error) {
	if decl.Name == "" {
		return nil, newError(ErrorTypeDeclaration, "", "operation name is empty")
	}
	op := &Operation{
		decl:        decl,
		kind:        resolveKind(decl),
		offsetIndex: -1,
		limitIndex:  -1,
	}
	op.decl.Params = append([]Param(nil), decl.Params...)

	bound := make(map[string]struct{})
	for i, p := range op.decl.Params {
		switch p.Role {
		case RoleBound:
			if p.Name == "" {
				return nil, newError(ErrorTypeDeclaration, decl.Name, "bound parameter %d has no name", i)
			}
			if _, dup := bound[p.Name]; dup {
				return nil, newError(ErrorTypeDeclaration, decl.Name, "parameter %q is bound twice", p.Name)
			}
			bound[p.Name] = struct{}{}
		case RoleOffset:
			if op.offsetIndex >= 0 {
				return nil, newError(ErrorTypeDeclaration, decl.Name, "more than one offset parameter")
			}
			op.offsetIndex = i
		case RoleLimit:
			if op.limitIndex >= 0 {
				return nil, newError(ErrorTypeDeclaration, decl.Name, "more than one limit parameter")
			}
			op.limitIndex = i
		}
		if (p.Role == RoleOffset || p.Role == RoleLimit) && !integerTypes[p.Type] {
			return nil, newError(ErrorTypeDeclaration, decl.Name, "%s parameter must be integer typed, got %q",
				strings.ToLower(p.Role.String()), p.Type)
		}
	}
	if op.kind == ActionNamedQueryBulkUpdate && (op.offsetIndex >= 0 || op.limitIndex >= 0) {
		return nil, newError(ErrorTypeDeclaration, decl.Name, "update operations take no offset or limit")
	}

	if err := op.validate(); err != nil {
		return nil, err
	}
	return op, nil
}

func resolveKind(decl Declaration) ActionKind {
	switch {
	case decl.Tags&TagNamedQuery != 0:
		if decl.Update {
			return ActionNamedQueryBulkUpdate
		}
		return ActionNamedQueryRead
	case decl.Tags&TagFind != 0:
		return ActionFindByKey
	case decl.Tags&TagMerge != 0:
		return ActionUpdateMerge
	case decl.Tags&TagRemove != 0:
		return ActionDelete
	case decl.Tags&TagPersist != 0:
		return ActionCreate
	default:
		return ActionUnsupported
	}
}

func (o *Operation) validate() error {
	d := o.decl
	switch o.kind {
	case ActionCreate, ActionUpdateMerge, ActionDelete:
		if len(d.Params) == 0 || d.Params[0].Role != RolePositional {
			return newError(ErrorTypeDeclaration, d.Name, "%s operations take the entity as first parameter", o.kind)
		}
	case ActionFindByKey:
		if len(d.Params) == 0 || d.Params[0].Role != RolePositional {
			return newError(ErrorTypeDeclaration, d.Name, "find operations take the primary key as first parameter")
		}
		if d.NewEntity == nil {
			return newError(ErrorTypeDeclaration, d.Name, "find operations must declare the entity type")
		}
	case ActionNamedQueryRead:
		if d.Query == "" {
			return newError(ErrorTypeDeclaration, d.Name, "named query id is empty")
		}
		switch d.Returns {
		case ReturnSingle:
			if d.NewEntity == nil {
				return newError(ErrorTypeDeclaration, d.Name, "single result reads must declare the entity type")
			}
		case ReturnCollection:
			if d.NewList == nil {
				return newError(ErrorTypeDeclaration, d.Name, "collection reads must declare the list type")
			}
		default:
			return newError(ErrorTypeDeclaration, d.Name, "read operations must declare a single or collection return")
		}
	case ActionNamedQueryBulkUpdate:
		if d.Query == "" {
			return newError(ErrorTypeDeclaration, d.Name, "named query id is empty")
		}
		if err := checkUpdateShape(d.Name, d.Returns); err != nil {
			return err
		}
	}
	return nil
}

func checkUpdateShape(name string, shape ReturnShape) error {
	if shape != ReturnCount && shape != ReturnNothing {
		return newError(ErrorTypeDeclaration, name, "update operations must declare a void or integer return")
	}
	return nil
}

// Name returns the registered operation name.
func (o *Operation) Name() string { return o.decl.Name }

// Kind returns the action resolved at compile time.
func (o *Operation) Kind() ActionKind { return o.kind }

// Query returns the named query id, empty for entity actions.
func (o *Operation) Query() string { return o.decl.Query }

// Returns returns the declared result shape.
func (o *Operation) Returns() ReturnShape { return o.decl.Returns }

// Optional reports whether a missing single result is returned as nil.
func (o *Operation) Optional() bool { return o.decl.Optional }

// Params returns a copy of the declared parameters.
func (o *Operation) Params() []Param {
	return append([]Param(nil), o.decl.Params...)
}

// Paginated reports whether both an offset and a limit parameter are
// declared.
func (o *Operation) Paginated() bool {
	return o.offsetIndex >= 0 && o.limitIndex >= 0
}

// entityType is the name used in "<type> object is null" messages.
func (o *Operation) entityType() string {
	if len(o.decl.Params) > 0 && o.decl.Params[0].Type != "" {
		return o.decl.Params[0].Type
	}
	if o.decl.EntityType != "" {
		return o.decl.EntityType
	}
	return "Entity"
}
