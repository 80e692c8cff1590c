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

package gormsession

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/tomoncle/drycrud/dispatch"
	"github.com/tomoncle/drycrud/namedquery"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Session adapts a *gorm.DB, or a transaction from it, to dispatch.Session.
type Session struct {
	db      *gorm.DB
	queries *namedquery.Registry
}

var _ dispatch.Session = (*Session)(nil)

// New binds db to the named queries of queries.
func New(db *gorm.DB, queries *namedquery.Registry) *Session {
	if queries == nil {
		queries = namedquery.NewRegistry()
	}
	return &Session{db: db, queries: queries}
}

// DB returns the underlying GORM handle.
func (s *Session) DB() *gorm.DB { return s.db }

// Transaction calls fn with a session bound to a transaction; fn returning an
// error rolls it back.
func (s *Session) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Session) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Session{db: tx, queries: s.queries})
	})
}

// Persist creates entity and fills in the generated primary key.
func (s *Session) Persist(ctx context.Context, entity any) error {
	return s.db.WithContext(ctx).Create(entity).Error
}

// Merge saves a copy of entity and returns it reloaded from the database.
func (s *Session) Merge(ctx context.Context, entity any) (any, error) {
	v := reflect.ValueOf(entity)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity must be a struct pointer, got %T", entity)
	}
	managed := reflect.New(v.Elem().Type())
	managed.Elem().Set(v.Elem())

	db := s.db.WithContext(ctx)
	if err := db.Save(managed.Interface()).Error; err != nil {
		return nil, err
	}
	if err := db.Take(managed.Interface()).Error; err != nil {
		return nil, err
	}
	return managed.Interface(), nil
}

// Remove deletes the row of entity by primary key.
func (s *Session) Remove(ctx context.Context, entity any) error {
	return s.db.WithContext(ctx).Delete(entity).Error
}

// Find takes the row with primary key key into dest. It reports false when
// no row matches.
func (s *Session) Find(ctx context.Context, dest any, key any) (bool, error) {
	stmt := &gorm.Statement{DB: s.db}
	if err := stmt.Parse(dest); err != nil {
		return false, err
	}
	pk := stmt.Schema.PrioritizedPrimaryField
	if pk == nil {
		return false, fmt.Errorf("find %s: no primary key", stmt.Schema.Name)
	}
	err := s.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Table: clause.CurrentTable, Name: pk.DBName}, Value: key}).
		Take(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// NamedQuery prepares a query registered under name.
func (s *Session) NamedQuery(name string) (dispatch.Query, error) {
	q, ok := s.queries.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("named query %q is not registered", name)
	}
	return &query{db: s.db, named: q, values: map[string]any{}, limit: -1}, nil
}

type query struct {
	db     *gorm.DB
	named  *namedquery.Query
	values map[string]any
	offset int
	limit  int
}

func (q *query) SetParameter(name string, value any) dispatch.Query {
	q.values[name] = value
	return q
}

func (q *query) SetFirstResult(offset int) dispatch.Query {
	q.offset = offset
	return q
}

func (q *query) SetMaxResults(limit int) dispatch.Query {
	q.limit = limit
	return q
}

func (q *query) statement() (string, []any, error) {
	args, err := q.named.Bind(q.values)
	if err != nil {
		return "", nil, err
	}
	return namedquery.Paginate(q.named.SQL, q.offset, q.limit), args, nil
}

func (q *query) ResultList(ctx context.Context, dest any) error {
	sql, args, err := q.statement()
	if err != nil {
		return err
	}
	return q.db.WithContext(ctx).Raw(sql, args...).Scan(dest).Error
}

func (q *query) SingleResult(ctx context.Context, dest any) error {
	typ := reflect.TypeOf(dest)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return fmt.Errorf("named query %s: destination must be a pointer, got %T", q.named.Name, dest)
	}
	rows := reflect.New(reflect.SliceOf(typ))
	if err := q.ResultList(ctx, rows.Interface()); err != nil {
		return err
	}
	switch n := rows.Elem().Len(); n {
	case 0:
		return dispatch.NoResult(q.named.Name)
	case 1:
		reflect.ValueOf(dest).Elem().Set(rows.Elem().Index(0).Elem())
		return nil
	default:
		return dispatch.NonUniqueResult(q.named.Name, n)
	}
}

func (q *query) ExecuteUpdate(ctx context.Context) (int64, error) {
	sql, args, err := q.statement()
	if err != nil {
		return 0, err
	}
	res := q.db.WithContext(ctx).Exec(sql, args...)
	return res.RowsAffected, res.Error
}
