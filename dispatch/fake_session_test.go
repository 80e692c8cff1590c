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
	"fmt"
	"sort"
	"strings"
)

type book struct {
	ID     int64
	Title  string
	Author string
	Year   int
}

// fakeSession keeps books in memory and records every call it receives.
type fakeSession struct {
	calls  []string
	books  map[int64]*book
	nextID int64
	fail   error
}

func newFakeSession() *fakeSession {
	return &fakeSession{books: map[int64]*book{}}
}

func (s *fakeSession) record(format string, args ...any) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *fakeSession) seed(n int) {
	for i := 1; i <= n; i++ {
		s.nextID++
		s.books[s.nextID] = &book{ID: s.nextID, Title: fmt.Sprintf("Book %d", i), Author: "Author", Year: 2000 + i}
	}
}

func (s *fakeSession) sorted() []*book {
	out := make([]*book, 0, len(s.books))
	for _, b := range s.books {
		c := *b
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *fakeSession) Persist(_ context.Context, entity any) error {
	s.record("persist")
	if s.fail != nil {
		return s.fail
	}
	b := entity.(*book)
	s.nextID++
	b.ID = s.nextID
	c := *b
	s.books[b.ID] = &c
	return nil
}

func (s *fakeSession) Merge(_ context.Context, entity any) (any, error) {
	s.record("merge")
	if s.fail != nil {
		return nil, s.fail
	}
	b := entity.(*book)
	if b.ID == 0 {
		s.nextID++
		b = &book{ID: s.nextID, Title: b.Title, Author: b.Author, Year: b.Year}
	}
	c := *b
	s.books[c.ID] = &c
	managed := c
	return &managed, nil
}

func (s *fakeSession) Remove(_ context.Context, entity any) error {
	s.record("remove")
	delete(s.books, entity.(*book).ID)
	return nil
}

func (s *fakeSession) Find(_ context.Context, dest any, key any) (bool, error) {
	s.record("find")
	if s.fail != nil {
		return false, s.fail
	}
	b, ok := s.books[key.(int64)]
	if !ok {
		return false, nil
	}
	*dest.(*book) = *b
	return true, nil
}

func (s *fakeSession) NamedQuery(name string) (Query, error) {
	s.record("query %s", name)
	if s.fail != nil {
		return nil, s.fail
	}
	return &fakeQuery{session: s, name: name, params: map[string]any{}, limit: -1}, nil
}

type fakeQuery struct {
	session *fakeSession
	name    string
	params  map[string]any
	offset  int
	limit   int
}

func (q *fakeQuery) SetParameter(name string, value any) Query {
	q.params[name] = value
	return q
}

func (q *fakeQuery) SetFirstResult(offset int) Query {
	q.offset = offset
	return q
}

func (q *fakeQuery) SetMaxResults(limit int) Query {
	q.limit = limit
	return q
}

// rows evaluates the handful of queries the tests use.
func (q *fakeQuery) rows() []*book {
	var out []*book
	for _, b := range q.session.sorted() {
		switch q.name {
		case "Book.findAll":
			out = append(out, b)
		case "Book.findByTitle":
			if strings.HasSuffix(b.Title, q.params["title"].(string)) {
				out = append(out, b)
			}
		case "Book.findById":
			if b.ID == q.params["id"].(int64) {
				out = append(out, b)
			}
		}
	}
	if q.offset >= len(out) {
		return nil
	}
	out = out[q.offset:]
	if q.limit >= 0 && q.limit < len(out) {
		out = out[:q.limit]
	}
	return out
}

func (q *fakeQuery) ResultList(_ context.Context, dest any) error {
	*dest.(*[]*book) = q.rows()
	return nil
}

func (q *fakeQuery) SingleResult(_ context.Context, dest any) error {
	rows := q.rows()
	switch len(rows) {
	case 0:
		return NoResult(q.name)
	case 1:
		*dest.(*book) = *rows[0]
		return nil
	default:
		return NonUniqueResult(q.name, len(rows))
	}
}

func (q *fakeQuery) ExecuteUpdate(_ context.Context) (int64, error) {
	var n int64
	switch q.name {
	case "Book.updateYear":
		for _, b := range q.session.books {
			b.Year = q.params["year"].(int)
			n++
		}
	case "Book.deleteAll":
		n = int64(len(q.session.books))
		q.session.books = map[int64]*book{}
	}
	return n, nil
}

func newBook() any     { return new(book) }
func newBookList() any { return new([]*book) }

// bookDeclarations mirrors a typical data-access interface for books.
func bookDeclarations() []Declaration {
	return []Declaration{
		{Name: "create", Tags: TagPersist, Params: []Param{Positional("Book")}},
		{Name: "update", Tags: TagMerge, Params: []Param{Positional("Book")}},
		{Name: "delete", Tags: TagRemove, Params: []Param{Positional("Book")}},
		{Name: "find", Tags: TagFind, NewEntity: newBook, Params: []Param{Positional("long")}},
		{Name: "findAll", Tags: TagNamedQuery, Query: "Book.findAll", Returns: ReturnCollection, NewList: newBookList,
			Params: []Param{Offset(), Limit()}},
		{Name: "findByTitle", Tags: TagNamedQuery, Query: "Book.findByTitle", Returns: ReturnSingle, NewEntity: newBook,
			Params: []Param{Bound("title")}},
		{Name: "findByTitleOptional", Tags: TagNamedQuery, Query: "Book.findByTitle", Returns: ReturnSingle, Optional: true,
			NewEntity: newBook, Params: []Param{Bound("title")}},
		{Name: "findById", Tags: TagNamedQuery, Query: "Book.findById", Returns: ReturnSingle, NewEntity: newBook,
			Params: []Param{Bound("id")}},
		{Name: "updateYear", Tags: TagNamedQuery, Query: "Book.updateYear", Update: true, Returns: ReturnCount,
			Params: []Param{Bound("year")}},
		{Name: "deleteAll", Tags: TagNamedQuery, Query: "Book.deleteAll", Update: true},
		{Name: "dummy"},
	}
}

func newBookDispatcher() *Dispatcher {
	d := NewDispatcher()
	for _, decl := range bookDeclarations() {
		d.MustRegister(decl)
	}
	return d
}
