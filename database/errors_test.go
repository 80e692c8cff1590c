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
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsSqlError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		is   bool
		want SQLError
	}{
		{"nil", nil, false, UnknownErr},
		{"no rows", sql.ErrNoRows, true, NoRowsErr},
		{"wrapped no rows", fmt.Errorf("find: %w", sql.ErrNoRows), true, NoRowsErr},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, true, DuplicateKeyErr},
		{"mysql no table", &mysql.MySQLError{Number: 1146}, true, NoTableErr},
		{"mysql other", &mysql.MySQLError{Number: 9999}, true, UnknownErr},
		{"pq duplicate", &pq.Error{Code: "23505"}, true, DuplicateKeyErr},
		{"pq undefined table", fmt.Errorf("select: %w", &pq.Error{Code: "42P01"}), true, NoTableErr},
		{"sqlite unique", errors.New("UNIQUE constraint failed: books.id"), true, DuplicateKeyErr},
		{"postgres unique", errors.New(`ERROR: duplicate key value violates unique constraint "books_pkey" (SQLSTATE 23505)`), true, DuplicateKeyErr},
		{"sqlite no table", errors.New("no such table: books"), true, NoTableErr},
		{"not null", errors.New("NOT NULL constraint failed: books.title"), true, NotNullViolationErr},
		{"pgx sqlstate", errors.New(`ERROR: relation "books" does not exist (SQLSTATE 42P01)`), true, NoTableErr},
		{"index exists", errors.New("index idx_title already exists"), true, ExistIndexErr},
		{"plain", errors.New("connection refused"), false, UnknownErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			is, kind := IsSqlError(tt.err)
			assert.Equal(t, tt.is, is)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestSQLErrorHelpers(t *testing.T) {
	assert.True(t, IsNoRows(sql.ErrNoRows))
	assert.False(t, IsNoRows(errors.New("x")))
	assert.True(t, IsDuplicateKey(&mysql.MySQLError{Number: 1062}))
	assert.Equal(t, "duplicate key", DuplicateKeyErr.String())
	assert.Equal(t, "unknown", SQLError(99).String())
}
