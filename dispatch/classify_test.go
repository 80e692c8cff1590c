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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustOp(t *testing.T, name string) *Operation {
	t.Helper()
	op, ok := newBookDispatcher().Lookup(name)
	require.True(t, ok, "operation %s", name)
	return op
}

func TestClassifyNullPayload(t *testing.T) {
	var typed *book
	for _, name := range []string{"create", "update", "delete"} {
		for _, arg := range []any{nil, typed} {
			_, err := Classify(mustOp(t, name), []any{arg})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), "Book object is null")
		}
	}
}

func TestClassifyEntityTypeFallback(t *testing.T) {
	op, err := Compile(Declaration{Name: "save", Tags: TagPersist, EntityType: "Author", Params: []Param{{Role: RolePositional}}})
	require.NoError(t, err)
	_, err = Classify(op, []any{nil})
	assert.Contains(t, err.Error(), "Author object is null")
}

func TestClassifyNullKey(t *testing.T) {
	_, err := Classify(mustOp(t, "find"), []any{nil})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "invalid id")
}

func TestClassifyNullBinding(t *testing.T) {
	_, err := Classify(mustOp(t, "findByTitle"), []any{nil})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "title is null")
}

func TestClassifyArgumentCount(t *testing.T) {
	_, err := Classify(mustOp(t, "findByTitle"), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestClassifyUnsupported(t *testing.T) {
	_, err := Classify(mustOp(t, "dummy"), nil)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	_, err = Classify(nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}

func TestClassifyBindingsKeepDeclarationOrder(t *testing.T) {
	op, err := Compile(Declaration{Name: "search", Tags: TagNamedQuery, Query: "q", Returns: ReturnCollection, NewList: newBookList,
		Params: []Param{Bound("author"), Offset(), Bound("year"), Limit()}})
	require.NoError(t, err)

	inv, err := Classify(op, []any{"Tolkien", 5, 1954, 10})
	require.NoError(t, err)
	assert.Equal(t, ActionNamedQueryRead, inv.Kind)
	assert.Equal(t, []Binding{{Name: "author", Value: "Tolkien"}, {Name: "year", Value: 1954}}, inv.Bindings)
	require.NotNil(t, inv.Window)
	assert.Equal(t, Window{Offset: 5, Limit: 10}, *inv.Window)
}

func TestClassifyWindow(t *testing.T) {
	op := mustOp(t, "findAll")
	five := 5
	var absent *int

	tests := []struct {
		name    string
		args    []any
		want    *Window
		invalid bool
	}{
		{"both", []any{0, 5}, &Window{Offset: 0, Limit: 5}, false},
		{"int64 and pointer", []any{int64(2), &five}, &Window{Offset: 2, Limit: 5}, false},
		{"unsigned", []any{uint(1), uint8(3)}, &Window{Offset: 1, Limit: 3}, false},
		{"offset missing", []any{nil, 5}, nil, false},
		{"limit missing", []any{3, absent}, nil, false},
		{"negative offset", []any{-1, 5}, nil, true},
		{"negative limit", []any{0, -5}, nil, true},
		{"string limit", []any{0, "5"}, nil, false},
		{"string offset", []any{"0", 5}, nil, false},
		{"float offset", []any{1.5, 5}, nil, false},
		{"huge limit", []any{0, uint64(1) << 40}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := Classify(op, tt.args)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, inv.Window)
		})
	}
}

func TestClassifyBulkUpdateHasNoWindow(t *testing.T) {
	inv, err := Classify(mustOp(t, "updateYear"), []any{2014})
	require.NoError(t, err)
	assert.Nil(t, inv.Window)
	assert.Equal(t, []Binding{{Name: "year", Value: 2014}}, inv.Bindings)
}

func TestClassifyPayloadAndKey(t *testing.T) {
	b := &book{Title: "Dune"}
	inv, err := Classify(mustOp(t, "create"), []any{b})
	require.NoError(t, err)
	assert.Same(t, b, inv.Payload)
	assert.Nil(t, inv.Window)

	inv, err = Classify(mustOp(t, "find"), []any{int64(7)})
	require.NoError(t, err)
	assert.Equal(t, int64(7), inv.Key)
}
