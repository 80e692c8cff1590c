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
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/tomoncle/drycrud/dispatch"
	"github.com/tomoncle/drycrud/namedquery"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/feature"
	"github.com/uptrace/bun/schema"
)

// Session runs dispatch actions on a Bun connection or transaction. Entities
// must be struct pointers with a single primary key.
type Session struct {
	db      bun.IDB
	queries *namedquery.Registry
}

var _ dispatch.Session = (*Session)(nil)

// NewSession binds db, a *bun.DB or a bun.Tx, to the named queries of
// queries.
func NewSession(db bun.IDB, queries *namedquery.Registry) *Session {
	if queries == nil {
		queries = namedquery.NewRegistry()
	}
	return &Session{db: db, queries: queries}
}

// DB returns the connection the session runs on.
func (s *Session) DB() bun.IDB { return s.db }

// RunInTx calls fn with a session bound to a new transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Session) RunInTx(ctx context.Context, fn func(ctx context.Context, tx *Session) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &Session{db: tx, queries: s.queries})
	})
}

// Persist inserts entity and fills in the generated primary key.
func (s *Session) Persist(ctx context.Context, entity any) error {
	_, err := s.db.NewInsert().Model(entity).Exec(ctx)
	return err
}

// Merge writes the state of entity with an upsert and returns a freshly
// loaded copy. An entity without a primary key value is inserted.
func (s *Session) Merge(ctx context.Context, entity any) (any, error) {
	table, err := s.table(entity)
	if err != nil {
		return nil, err
	}
	managed := cloneEntity(entity)
	if hasZeroPK(table, managed) {
		if err := s.Persist(ctx, managed); err != nil {
			return nil, err
		}
		return managed, nil
	}
	if err := s.upsert(ctx, table, managed); err != nil {
		return nil, err
	}
	if err := s.db.NewSelect().Model(managed).WherePK().Scan(ctx); err != nil {
		return nil, err
	}
	return managed, nil
}

func (s *Session) upsert(ctx context.Context, table *schema.Table, entity any) error {
	insert := s.db.NewInsert().Model(entity)
	switch {
	case s.db.Dialect().Features().Has(feature.InsertOnConflict):
		keys := make([]string, len(table.PKs))
		for i, pk := range table.PKs {
			keys[i] = string(pk.SQLName)
		}
		insert = insert.On("CONFLICT (" + strings.Join(keys, ", ") + ") DO UPDATE")
		for _, f := range table.DataFields {
			insert = insert.Set(fmt.Sprintf("%s = EXCLUDED.%s", f.SQLName, f.SQLName))
		}
	case s.db.Dialect().Features().Has(feature.InsertOnDuplicateKey):
		sets := make([]string, len(table.DataFields))
		for i, f := range table.DataFields {
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", f.SQLName, f.SQLName)
		}
		insert = insert.On("DUPLICATE KEY UPDATE " + strings.Join(sets, ", "))
	default:
		res, err := s.db.NewUpdate().Model(entity).WherePK().Exec(ctx)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			return nil
		}
	}
	_, err := insert.Exec(ctx)
	return err
}

// Remove deletes the row of entity by primary key.
func (s *Session) Remove(ctx context.Context, entity any) error {
	_, err := s.db.NewDelete().Model(entity).WherePK().Exec(ctx)
	return err
}

// Find loads the row with primary key key into dest. It reports false when
// no row matches.
func (s *Session) Find(ctx context.Context, dest any, key any) (bool, error) {
	table, err := s.table(dest)
	if err != nil {
		return false, err
	}
	if len(table.PKs) != 1 {
		return false, fmt.Errorf("find %s: expected one primary key, got %d", table.TypeName, len(table.PKs))
	}
	err = s.db.NewSelect().Model(dest).Where("? = ?", table.PKs[0].SQLName, key).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
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
	return &Query{db: s.db, query: q, values: map[string]any{}, limit: -1}, nil
}

func (s *Session) table(entity any) (*schema.Table, error) {
	typ := reflect.TypeOf(entity)
	if typ == nil || typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("entity must be a struct pointer, got %T", entity)
	}
	return s.db.Dialect().Tables().Get(typ.Elem()), nil
}

// cloneEntity returns a new pointer to a shallow copy of *entity.
func cloneEntity(entity any) any {
	v := reflect.ValueOf(entity)
	c := reflect.New(v.Elem().Type())
	c.Elem().Set(v.Elem())
	return c.Interface()
}

func hasZeroPK(table *schema.Table, entity any) bool {
	strct := reflect.ValueOf(entity).Elem()
	for _, pk := range table.PKs {
		if !pk.HasZeroValue(strct) {
			return false
		}
	}
	return true
}
