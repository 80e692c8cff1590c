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
	"reflect"

	"github.com/tomoncle/drycrud/dispatch"
	"github.com/tomoncle/drycrud/namedquery"
	"github.com/uptrace/bun"
)

// Query is a named query prepared on a Bun connection.
type Query struct {
	db     bun.IDB
	query  *namedquery.Query
	values map[string]any
	offset int
	limit  int
}

var _ dispatch.Query = (*Query)(nil)

// SetParameter binds a :name placeholder.
func (q *Query) SetParameter(name string, value any) dispatch.Query {
	q.values[name] = value
	return q
}

// SetFirstResult sets the zero-based first row.
func (q *Query) SetFirstResult(offset int) dispatch.Query {
	q.offset = offset
	return q
}

// SetMaxResults limits the rows read. The window only applies once a limit
// is set.
func (q *Query) SetMaxResults(limit int) dispatch.Query {
	q.limit = limit
	return q
}

func (q *Query) statement() (string, []any, error) {
	args, err := q.query.Bind(q.values)
	if err != nil {
		return "", nil, err
	}
	return namedquery.Paginate(q.query.SQL, q.offset, q.limit), args, nil
}

// ResultList scans every row into dest, a pointer to a slice.
func (q *Query) ResultList(ctx context.Context, dest any) error {
	sql, args, err := q.statement()
	if err != nil {
		return err
	}
	return q.db.NewRaw(sql, args...).Scan(ctx, dest)
}

// SingleResult reads the rows into a slice of dest's type so a second match
// can be detected.
func (q *Query) SingleResult(ctx context.Context, dest any) error {
	typ := reflect.TypeOf(dest)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return fmt.Errorf("named query %s: destination must be a pointer, got %T", q.query.Name, dest)
	}
	rows := reflect.New(reflect.SliceOf(typ))
	if err := q.ResultList(ctx, rows.Interface()); err != nil {
		return err
	}
	switch n := rows.Elem().Len(); n {
	case 0:
		return dispatch.NoResult(q.query.Name)
	case 1:
		reflect.ValueOf(dest).Elem().Set(rows.Elem().Index(0).Elem())
		return nil
	default:
		return dispatch.NonUniqueResult(q.query.Name, n)
	}
}

// ExecuteUpdate runs the statement and returns the affected row count.
func (q *Query) ExecuteUpdate(ctx context.Context) (int64, error) {
	sql, args, err := q.statement()
	if err != nil {
		return 0, err
	}
	res, err := q.db.ExecContext(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
