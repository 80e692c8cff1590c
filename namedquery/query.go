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

package namedquery

import (
	"fmt"
	"strings"
)

// Query is a compiled named query.
type Query struct {
	Name        string
	Description string
	// Source is the statement as written, with ":name" placeholders.
	Source string
	// SQL is the statement with every placeholder replaced by "?".
	SQL string
	// Order lists the placeholder names in the order they appear; a name used
	// twice appears twice.
	Order []string
}

// Compile rewrites the ":name" placeholders of sql to "?". Quoted literals,
// quoted identifiers and "::" casts are left alone. A "?" in the source is
// rejected, even inside quotes, since the drivers bind every "?" positionally.
func Compile(name, sql string) (*Query, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("named query: empty name")
	}
	if strings.TrimSpace(sql) == "" {
		return nil, fmt.Errorf("named query %s: empty statement", name)
	}

	var (
		b     strings.Builder
		order []string
		quote byte
	)
	b.Grow(len(sql))
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if c == '?' {
			return nil, fmt.Errorf("named query %s: literal '?' at offset %d, use a :name parameter", name, i)
		}
		if quote != 0 {
			b.WriteByte(c)
			if c == quote {
				quote = 0
			}
			continue
		}
		switch {
		case c == '\'' || c == '"' || c == '`':
			quote = c
			b.WriteByte(c)
		case c == ':' && i+1 < len(sql) && sql[i+1] == ':':
			b.WriteString("::")
			i++
		case c == ':' && i+1 < len(sql) && isIdentStart(sql[i+1]):
			j := i + 1
			for j < len(sql) && isIdentPart(sql[j]) {
				j++
			}
			order = append(order, sql[i+1:j])
			b.WriteByte('?')
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	if quote != 0 {
		return nil, fmt.Errorf("named query %s: unterminated %c quote", name, quote)
	}
	return &Query{Name: name, Source: sql, SQL: b.String(), Order: order}, nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// Params returns the distinct placeholder names.
func (q *Query) Params() []string {
	seen := make(map[string]struct{}, len(q.Order))
	var names []string
	for _, n := range q.Order {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	return names
}

// Bind returns the positional arguments for values. Every placeholder must be
// bound and every value must name a placeholder.
func (q *Query) Bind(values map[string]any) ([]any, error) {
	known := make(map[string]struct{}, len(q.Order))
	for _, n := range q.Order {
		known[n] = struct{}{}
	}
	for n := range values {
		if _, ok := known[n]; !ok {
			return nil, fmt.Errorf("named query %s: unknown parameter %q", q.Name, n)
		}
	}
	args := make([]any, 0, len(q.Order))
	for _, n := range q.Order {
		v, ok := values[n]
		if !ok {
			return nil, fmt.Errorf("named query %s: parameter %q is not bound", q.Name, n)
		}
		args = append(args, v)
	}
	return args, nil
}

// Paginate appends a row window to a compiled statement. A negative limit
// leaves the statement unchanged.
func Paginate(sql string, offset, limit int) string {
	if limit < 0 {
		return sql
	}
	sql = strings.TrimRight(strings.TrimSpace(sql), ";")
	return fmt.Sprintf("%s LIMIT %d OFFSET %d", sql, limit, max(offset, 0))
}
