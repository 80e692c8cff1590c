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

package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tomoncle/drycrud/dispatch"
	"github.com/tomoncle/drycrud/namedquery"
	"github.com/uptrace/bun"
)

type testBook struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID     int64  `bun:"id,pk,autoincrement"`
	Title  string `bun:"title,notnull"`
	Author string `bun:"author"`
	Year   int    `bun:"year"`
}

func memoryConfig() *ConnectionConfig {
	cfg := DefaultConnectionConfig()
	cfg.Type = "sqlite"
	cfg.DSN = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	cfg.MaxOpenConns = 1
	cfg.SlowQueryTime = 0
	return cfg
}

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()
	m := NewDatabaseManager(memoryConfig())
	m.SetLogger(GetLogger())
	require.NoError(t, m.Connect(ctx))
	t.Cleanup(func() { _ = m.Disconnect() })

	require.NoError(t, NewMigrationManager(m.GetDB(), GetLogger(), (*testBook)(nil)).RunMigrations(ctx))
	return m.GetDB()
}

func bookQueries() *namedquery.Registry {
	r := namedquery.NewRegistry()
	r.MustRegister("Book.findAll", "SELECT * FROM books ORDER BY id")
	r.MustRegister("Book.findByTitle", "SELECT * FROM books WHERE title LIKE :title")
	r.MustRegister("Book.findById", "SELECT * FROM books WHERE id = :id")
	r.MustRegister("Book.updateYear", "UPDATE books SET year = :year")
	r.MustRegister("Book.deleteAll", "DELETE FROM books")
	return r
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(openTestDB(t), bookQueries())
}

func bookDispatcher() *dispatch.Dispatcher {
	one := func() any { return new(testBook) }
	many := func() any { return new([]*testBook) }
	d := dispatch.NewDispatcher()
	for _, decl := range []dispatch.Declaration{
		{Name: "create", Tags: dispatch.TagPersist, Params: []dispatch.Param{dispatch.Positional("Book")}},
		{Name: "update", Tags: dispatch.TagMerge, Params: []dispatch.Param{dispatch.Positional("Book")}},
		{Name: "delete", Tags: dispatch.TagRemove, Params: []dispatch.Param{dispatch.Positional("Book")}},
		{Name: "find", Tags: dispatch.TagFind, NewEntity: one, Params: []dispatch.Param{dispatch.Positional("long")}},
		{Name: "findAll", Tags: dispatch.TagNamedQuery, Query: "Book.findAll", Returns: dispatch.ReturnCollection,
			NewList: many, Params: []dispatch.Param{dispatch.Offset(), dispatch.Limit()}},
		{Name: "findByTitle", Tags: dispatch.TagNamedQuery, Query: "Book.findByTitle", Returns: dispatch.ReturnSingle,
			NewEntity: one, Params: []dispatch.Param{dispatch.Bound("title")}},
		{Name: "findById", Tags: dispatch.TagNamedQuery, Query: "Book.findById", Returns: dispatch.ReturnSingle,
			NewEntity: one, Params: []dispatch.Param{dispatch.Bound("id")}},
		{Name: "findByIdOptional", Tags: dispatch.TagNamedQuery, Query: "Book.findById", Returns: dispatch.ReturnSingle,
			Optional: true, NewEntity: one, Params: []dispatch.Param{dispatch.Bound("id")}},
		{Name: "updateYear", Tags: dispatch.TagNamedQuery, Query: "Book.updateYear", Update: true,
			Returns: dispatch.ReturnCount, Params: []dispatch.Param{dispatch.Bound("year")}},
		{Name: "deleteAll", Tags: dispatch.TagNamedQuery, Query: "Book.deleteAll", Update: true},
	} {
		d.MustRegister(decl)
	}
	return d
}

func seedBooks(t *testing.T, s *Session, n int) []*testBook {
	t.Helper()
	books := make([]*testBook, n)
	for i := range books {
		books[i] = &testBook{Title: fmt.Sprintf("Book %d", i+1), Author: "Author", Year: 2000 + i}
		require.NoError(t, s.Persist(context.Background(), books[i]))
	}
	return books
}
