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
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func TestMigrationsRunOnce(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	mm := NewMigrationManager(db, GetLogger(), (*testBook)(nil))
	calls := 0
	mm.Add(MigrationItem{
		Version: "002",
		Name:    "seed",
		Up: func(ctx context.Context, db bun.IDB) error {
			calls++
			_, err := db.NewInsert().Model(&testBook{Title: "Seed"}).Exec(ctx)
			return err
		},
	})
	require.NoError(t, mm.RunMigrations(ctx))
	require.NoError(t, mm.RunMigrations(ctx))
	assert.Equal(t, 1, calls)

	applied, err := mm.AppliedMigrations(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 2)
	assert.Equal(t, "001", applied[0].Version)
	assert.Equal(t, "seed", applied[1].Name)

	count, err := db.NewSelect().Model((*testBook)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestModelRegistryOrder(t *testing.T) {
	r := NewModelRegistry()
	r.Register(NewModelAdapter("c", 2))
	r.Register(NewModelAdapter("a", 0))
	r.Register(NewModelAdapter("b", 0))
	assert.Equal(t, []interface{}{"a", "b", "c"}, r.Instances())
}

func TestInitDBGlobalSession(t *testing.T) {
	ctx := context.Background()
	queryFile := filepath.Join(t.TempDir(), "books.yaml")
	require.NoError(t, os.WriteFile(queryFile, []byte(`
queries:
  - name: GlobalBook.count
    sql: SELECT * FROM books WHERE author = :author
`), 0o600))

	RegisterModel[testBook](1)
	cfg := &Config{
		ConnectionConfig: *memoryConfig(),
		MigrateConfig:    MigrateConfig{EnableMigrateOnStartup: true},
		QueryConfig:      QueryConfig{Files: []string{queryFile}},
	}
	db, err := InitDB(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = CloseDB() })
	assert.Same(t, db, GetDB())
	assert.NotNil(t, GetDatabaseManager())
	assert.True(t, GetHealthStatus(ctx).Healthy)
	assert.Equal(t, 1, GetDatabaseStats().MaxOpenConns)
	assert.Contains(t, Queries().Names(), "GlobalBook.count")

	err = RunInTx(ctx, func(ctx context.Context, s *Session) error {
		return s.Persist(ctx, &testBook{Title: "Global", Author: "Someone"})
	})
	require.NoError(t, err)

	sess, err := GetSession()
	require.NoError(t, err)
	q, err := sess.NamedQuery("GlobalBook.count")
	require.NoError(t, err)
	var rows []*testBook
	require.NoError(t, q.SetParameter("author", "Someone").ResultList(ctx, &rows))
	assert.Len(t, rows, 1)
	assert.NoError(t, RunMigrations(ctx))

	require.NoError(t, CloseDB())
	assert.Nil(t, GetDB())
	assert.ErrorIs(t, RunInTx(ctx, func(context.Context, *Session) error { return nil }), ErrNotInitialized)
	assert.ErrorIs(t, RunMigrations(ctx), ErrNotInitialized)
	sess, err = GetSession()
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.Nil(t, sess)
}

func TestInitDBErrors(t *testing.T) {
	_, err := InitDB(nil)
	assert.Error(t, err)

	_, err = InitDB(&Config{QueryConfig: QueryConfig{Files: []string{"does/not/exist.yaml"}}})
	assert.ErrorContains(t, err, "named queries")

	_, err = InitDB(&Config{ConnectionConfig: ConnectionConfig{Type: "oracle"}})
	assert.ErrorContains(t, err, "unsupported database type")
}

type recordingLogger struct {
	warnings []string
	fields   [][]interface{}
}

func (l *recordingLogger) SetLevel(LogLevel)            {}
func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Error(string, ...interface{}) {}
func (l *recordingLogger) Warn(msg string, fields ...interface{}) {
	l.warnings = append(l.warnings, msg)
	l.fields = append(l.fields, fields)
}

func TestSlowQueryHook(t *testing.T) {
	log := &recordingLogger{}
	h := NewSlowQueryHook(10*time.Millisecond, log)
	ctx := context.Background()

	h.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	assert.Empty(t, log.warnings)

	h.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now().Add(-time.Second)})
	require.Len(t, log.warnings, 1)
	assert.Contains(t, log.warnings[0], "slow query")
	assert.Equal(t, "threshold", log.fields[0][2])

	t.Setenv("BUN_SLOW", "0")
	h.AfterQuery(ctx, &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now().Add(-time.Second)})
	assert.Len(t, log.warnings, 1)

	assert.NotPanics(t, func() {
		NewSlowQueryHook(0, nil).AfterQuery(ctx, &bun.QueryEvent{StartTime: time.Now()})
	})
}

func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewDefaultLogger()
	l.logger.SetOutput(&buf)
	t.Cleanup(func() { l.logger.SetOutput(os.Stdout) })

	l.Warn("slow table", "table", "books", "rows", 3, "dangling")
	assert.Contains(t, buf.String(), "slow table rows=3 table=books")
	assert.NotContains(t, buf.String(), "dangling")

	buf.Reset()
	l.SetLevel(LogLevelError)
	t.Cleanup(func() { l.SetLevel(LogLevelInfo) })
	l.Warn("hidden")
	assert.Empty(t, buf.String())
	assert.Equal(t, "WARN", LogLevelWarn.String())
	assert.Equal(t, "DEBUG", LogLevel(42).String())
}
