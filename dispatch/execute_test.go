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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokeValidationSkipsSession(t *testing.T) {
	d := newBookDispatcher()
	s := newFakeSession()
	ctx := context.Background()

	_, err := d.Invoke(ctx, s, "create", nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = d.Invoke(ctx, s, "find", nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = d.Invoke(ctx, s, "findByTitle", nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = d.Invoke(ctx, s, "dummy")
	assert.ErrorIs(t, err, ErrUnsupportedOperation)

	assert.Empty(t, s.calls)
}

func TestCreateThenFind(t *testing.T) {
	d := newBookDispatcher()
	s := newFakeSession()
	ctx := context.Background()

	b := &book{Title: "Dune", Author: "Herbert", Year: 1965}
	created, err := d.Invoke(ctx, s, "create", b)
	require.NoError(t, err)
	assert.Same(t, b, created)
	require.NotZero(t, b.ID)

	found, err := d.Invoke(ctx, s, "find", b.ID)
	require.NoError(t, err)
	assert.Equal(t, *b, *found.(*book))

	missing, err := d.Invoke(ctx, s, "find", int64(999))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMergeChangesOneField(t *testing.T) {
	d := newBookDispatcher()
	s := newFakeSession()
	ctx := context.Background()

	b := &book{Title: "Dune", Author: "Herbert", Year: 1965}
	_, err := d.Invoke(ctx, s, "create", b)
	require.NoError(t, err)

	detached := *b
	detached.Title = "Dune Messiah"
	merged, err := d.Invoke(ctx, s, "update", &detached)
	require.NoError(t, err)
	assert.NotSame(t, &detached, merged)

	found, err := d.Invoke(ctx, s, "find", b.ID)
	require.NoError(t, err)
	got := found.(*book)
	assert.Equal(t, "Dune Messiah", got.Title)
	assert.Equal(t, b.Author, got.Author)
	assert.Equal(t, b.Year, got.Year)
}

func TestDeleteMergesThenRemoves(t *testing.T) {
	d := newBookDispatcher()
	s := newFakeSession()
	s.seed(2)
	ctx := context.Background()

	detached := *s.books[1]
	result, err := d.Invoke(ctx, s, "delete", &detached)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, []string{"merge", "remove"}, s.calls)
	assert.Len(t, s.books, 1)
}

func TestPagination(t *testing.T) {
	d := newBookDispatcher()
	s := newFakeSession()
	s.seed(10)
	ctx := context.Background()

	page, err := d.Invoke(ctx, s, "findAll", 0, 5)
	require.NoError(t, err)
	assert.Len(t, page.([]*book), 5)

	all, err := d.Invoke(ctx, s, "findAll", 0, 10)
	require.NoError(t, err)
	assert.Len(t, all.([]*book), 10)

	second, err := d.Invoke(ctx, s, "findAll", 5, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(6), second.([]*book)[0].ID)

	unpaged, err := d.Invoke(ctx, s, "findAll", nil, 3)
	require.NoError(t, err)
	assert.Len(t, unpaged.([]*book), 10)
}

func TestSingleResult(t *testing.T) {
	d := newBookDispatcher()
	s := newFakeSession()
	s.seed(10)
	ctx := context.Background()

	got, err := d.Invoke(ctx, s, "findByTitle", "10")
	require.NoError(t, err)
	assert.Equal(t, "Book 10", got.(*book).Title)

	_, err = d.Invoke(ctx, s, "findById", int64(42))
	assert.ErrorIs(t, err, ErrNoResult)

	none, err := d.Invoke(ctx, s, "findByTitleOptional", "nothing")
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = d.Invoke(ctx, s, "findByTitle", "0")
	require.NoError(t, err)
	_, err = d.Invoke(ctx, s, "findByTitle", "k 1")
	assert.NoError(t, err)
	_, err = d.Invoke(ctx, s, "findByTitleOptional", "")
	assert.ErrorIs(t, err, ErrNonUniqueResult)
}

func TestBulkUpdate(t *testing.T) {
	d := newBookDispatcher()
	s := newFakeSession()
	s.seed(10)
	ctx := context.Background()

	n, err := d.Invoke(ctx, s, "updateYear", 2014)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	for _, b := range s.books {
		assert.Equal(t, 2014, b.Year)
	}

	res, err := d.Invoke(ctx, s, "deleteAll")
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Empty(t, s.books)
}

func TestDeleteAllAndAdd(t *testing.T) {
	d := newBookDispatcher()
	s := newFakeSession()
	s.seed(10)
	ctx := context.Background()

	_, err := d.Invoke(ctx, s, "deleteAll")
	require.NoError(t, err)
	_, err = d.Invoke(ctx, s, "create", &book{Title: "Solo"})
	require.NoError(t, err)

	all, err := d.Invoke(ctx, s, "findAll", nil, nil)
	require.NoError(t, err)
	assert.Len(t, all.([]*book), 1)
}

func TestExecuteRejectsBadUpdateShape(t *testing.T) {
	// Bypasses Compile to reach the executor's own check.
	op := &Operation{
		decl: Declaration{Name: "badUpdate", Tags: TagNamedQuery, Query: "Book.updateYear", Update: true,
			Returns: ReturnSingle, Params: []Param{Bound("year")}},
		kind:        ActionNamedQueryBulkUpdate,
		offsetIndex: -1,
		limitIndex:  -1,
	}
	s := newFakeSession()
	_, err := Invoke(context.Background(), s, op, 2014)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeclaration)
	assert.Contains(t, err.Error(), "void or integer return")
	assert.Empty(t, s.calls)
}

func TestSessionErrorsPropagateUnchanged(t *testing.T) {
	d := newBookDispatcher()
	s := newFakeSession()
	boom := errors.New("connection reset")
	s.fail = boom
	ctx := context.Background()

	_, err := d.Invoke(ctx, s, "create", &book{Title: "x"})
	assert.Same(t, boom, err)
	_, err = d.Invoke(ctx, s, "find", int64(1))
	assert.Same(t, boom, err)
	_, err = d.Invoke(ctx, s, "findAll", 0, 1)
	assert.Same(t, boom, err)
	_, err = d.Invoke(ctx, s, "delete", &book{ID: 1})
	assert.Same(t, boom, err)
	assert.Equal(t, []string{"persist", "find", "query Book.findAll", "merge"}, s.calls)
}

func TestExecuteNilInvocation(t *testing.T) {
	_, err := Execute(context.Background(), newFakeSession(), nil)
	assert.ErrorIs(t, err, ErrUnsupportedOperation)
}
