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
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

// SQLError is a driver independent category of database error.
type SQLError int

const (
	UnknownErr SQLError = iota
	NoRowsErr
	NoIndexErr
	NoColumnErr
	ExistIndexErr
	ExistColumnErr
	NoTableErr
	ExistTableErr
	DuplicateKeyErr
	NotNullViolationErr
	ForeignKeyViolationErr
	CheckConstraintViolationErr
	DataTruncatedErr
	InvalidTypeCastErr
)

var sqlErrorNames = [...]string{
	"unknown", "no rows", "no index", "no column", "index exists", "column exists",
	"no table", "table exists", "duplicate key", "not null violation",
	"foreign key violation", "check constraint violation", "data truncated", "invalid type cast",
}

func (e SQLError) String() string {
	if e < 0 || int(e) >= len(sqlErrorNames) {
		return sqlErrorNames[UnknownErr]
	}
	return sqlErrorNames[e]
}

var mysqlErrorNumbers = map[uint16]SQLError{
	1048: NotNullViolationErr,
	1050: ExistTableErr,
	1054: NoColumnErr,
	1060: ExistColumnErr,
	1061: ExistIndexErr,
	1062: DuplicateKeyErr,
	1091: NoIndexErr,
	1146: NoTableErr,
	1216: ForeignKeyViolationErr,
	1217: ForeignKeyViolationErr,
	1265: DataTruncatedErr,
	3819: CheckConstraintViolationErr,
}

// SQLSTATE codes reported by postgres.
var sqlStates = map[string]SQLError{
	"42703": NoColumnErr,
	"42704": NoIndexErr,
	"42P01": NoTableErr,
	"42P07": ExistTableErr,
	"42701": ExistColumnErr,
	"23505": DuplicateKeyErr,
	"23502": NotNullViolationErr,
	"23503": ForeignKeyViolationErr,
	"23514": CheckConstraintViolationErr,
	"22001": DataTruncatedErr,
	"42804": InvalidTypeCastErr,
}

// messageRule matches when every fragment of any one of its groups occurs
// in the lower-cased error message.
type messageRule struct {
	kind   SQLError
	groups [][]string
}

var messageRules = []messageRule{
	{NoColumnErr, [][]string{{"undefined column"}, {"no such column"}}},
	{NoIndexErr, [][]string{{"no such index"}, {"index", "does not exist"}}},
	{NoTableErr, [][]string{{"undefined table"}, {"no such table"}}},
	{ExistIndexErr, [][]string{{"index", "already exists"}}},
	{ExistTableErr, [][]string{{"table", "already exists"}, {"relation", "already exists"}}},
	{DuplicateKeyErr, [][]string{{"duplicate key value"}, {"unique constraint failed"}}},
	{NotNullViolationErr, [][]string{{"not-null constraint"}, {"not null constraint failed"}}},
	{ForeignKeyViolationErr, [][]string{{"foreign key violation"}, {"foreign key constraint failed"}}},
	{CheckConstraintViolationErr, [][]string{{"check constraint"}}},
	{DataTruncatedErr, [][]string{{"string data right truncation"}, {"data truncated"}}},
	{InvalidTypeCastErr, [][]string{{"datatype mismatch"}}},
}

// IsSqlError classifies err. MySQL and postgres errors are matched by code,
// anything else (sqlite, wrapped driver errors) by message. is is false for
// nil and unrecognised errors.
func IsSqlError(err error) (is bool, sqlErr SQLError) {
	if err == nil {
		return false, UnknownErr
	}
	if errors.Is(err, sql.ErrNoRows) {
		return true, NoRowsErr
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return true, mysqlErrorNumbers[mysqlErr.Number]
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return true, sqlStates[string(pqErr.Code)]
	}

	msg := strings.ToLower(err.Error())
	if i := strings.Index(msg, "sqlstate "); i >= 0 && len(msg) >= i+14 {
		if kind, ok := sqlStates[strings.ToUpper(msg[i+9:i+14])]; ok {
			return true, kind
		}
	}
	for _, rule := range messageRules {
		if rule.matches(msg) {
			return true, rule.kind
		}
	}
	return false, UnknownErr
}

func (r messageRule) matches(msg string) bool {
	for _, group := range r.groups {
		all := true
		for _, fragment := range group {
			if !strings.Contains(msg, fragment) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// IsNoRows reports whether err means a query matched no row.
func IsNoRows(err error) bool {
	is, kind := IsSqlError(err)
	return is && kind == NoRowsErr
}

func IsDuplicateKey(err error) bool {
	is, kind := IsSqlError(err)
	return is && kind == DuplicateKeyErr
}
