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
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a named query file:
//
//	queries:
//	  - name: Book.findAll
//	    sql: SELECT * FROM books ORDER BY id
type File struct {
	Queries []Definition `yaml:"queries"`
}

type Definition struct {
	Name        string `yaml:"name"`
	SQL         string `yaml:"sql"`
	Description string `yaml:"description"`
}

// Registry maps query names to compiled queries. It is safe for concurrent
// use.
type Registry struct {
	mu      sync.RWMutex
	queries map[string]*Query
}

func NewRegistry() *Registry {
	return &Registry{queries: make(map[string]*Query)}
}

// Register compiles sql and stores it under name, replacing any previous
// definition.
func (r *Registry) Register(name, sql string) (*Query, error) {
	q, err := Compile(name, sql)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.queries[name] = q
	r.mu.Unlock()
	return q, nil
}

func (r *Registry) MustRegister(name, sql string) *Query {
	q, err := r.Register(name, sql)
	if err != nil {
		panic(err)
	}
	return q
}

func (r *Registry) Lookup(name string) (*Query, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.queries[name]
	return q, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.queries))
	for n := range r.queries {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Load registers every query of a YAML document. Nothing is registered when
// any definition fails to compile.
func (r *Registry) Load(reader io.Reader) (int, error) {
	var file File
	if err := yaml.NewDecoder(reader).Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("decode named queries: %w", err)
	}
	compiled := make([]*Query, 0, len(file.Queries))
	seen := make(map[string]struct{}, len(file.Queries))
	for _, def := range file.Queries {
		if _, dup := seen[def.Name]; dup {
			return 0, fmt.Errorf("named query %s: defined twice", def.Name)
		}
		seen[def.Name] = struct{}{}
		q, err := Compile(def.Name, def.SQL)
		if err != nil {
			return 0, err
		}
		q.Description = def.Description
		compiled = append(compiled, q)
	}
	r.mu.Lock()
	for _, q := range compiled {
		r.queries[q.Name] = q
	}
	r.mu.Unlock()
	return len(compiled), nil
}

// LoadFile is Load on the file at path.
func (r *Registry) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open named query file: %w", err)
	}
	defer f.Close()
	n, err := r.Load(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	return n, nil
}
