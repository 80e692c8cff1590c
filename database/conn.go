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
	"errors"
	"fmt"
	"sync"

	"github.com/tomoncle/drycrud/namedquery"
	"github.com/uptrace/bun"
)

// ErrNotInitialized is returned by the global helpers before InitDB.
var ErrNotInitialized = errors.New("database not initialized")

var (
	globalMu      sync.RWMutex
	globalFactory *BaseDatabaseFactory
	DB            *bun.DB

	globalQueries = namedquery.NewRegistry()
)

// GetDB returns the global Bun database.
func GetDB() *bun.DB {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory != nil {
		return globalFactory.GetDB()
	}
	return DB
}

func GetDatabaseManager() Manager {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalFactory != nil {
		return globalFactory.GetManager()
	}
	return nil
}

// Queries returns the global named query registry. InitDB loads the files
// listed in Config.QueryConfig into it; queries can also be registered
// directly.
func Queries() *namedquery.Registry {
	return globalQueries
}

// GetSession returns a session on the global database and named queries. It
// fails with ErrNotInitialized until InitDB succeeds.
func GetSession() (*Session, error) {
	db := GetDB()
	if db == nil {
		return nil, ErrNotInitialized
	}
	return NewSession(db, globalQueries), nil
}

// RunInTx runs fn in a transaction on the global database.
func RunInTx(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	s, err := GetSession()
	if err != nil {
		return err
	}
	return s.RunInTx(ctx, fn)
}

// InitDB initializes the global database using the provided configuration.
func InitDB(cfg *Config) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	return InitDatabaseWithOptions(cfg, cfg.MigrateConfig.EnableMigrateOnStartup)
}

// InitDatabaseWithOptions connects the global database, loads the named
// query files and optionally runs migrations.
func InitDatabaseWithOptions(cfg *Config, runMigrations bool) (*bun.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration cannot be empty")
	}
	for _, path := range cfg.QueryConfig.Files {
		n, err := globalQueries.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load named queries: %w", err)
		}
		GetLogger().Debug("Named queries loaded", "file", path, "count", n)
	}

	factory := NewDatabaseFactory()
	manager, err := factory.CreateFromConfig(&cfg.ConnectionConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database manager: %w", err)
	}
	if err := factory.InitializeDatabase(context.Background(), runMigrations); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	db := manager.GetDB()
	if models := RegisteredModelInstances(); len(models) > 0 {
		db.RegisterModel(models...)
	}

	globalMu.Lock()
	globalFactory = factory
	DB = db
	globalMu.Unlock()
	return db, nil
}

// CloseDB closes the global database connection.
func CloseDB() error {
	globalMu.Lock()
	factory := globalFactory
	globalFactory = nil
	DB = nil
	globalMu.Unlock()
	if factory != nil {
		return factory.Close()
	}
	return nil
}

func GetHealthStatus(ctx context.Context) *HealthStatus {
	globalMu.RLock()
	factory := globalFactory
	globalMu.RUnlock()
	if factory != nil {
		return factory.GetHealthStatus(ctx)
	}
	return &HealthStatus{LastError: "database not initialized"}
}

func GetDatabaseStats() *DBStats {
	globalMu.RLock()
	factory := globalFactory
	globalMu.RUnlock()
	if factory != nil {
		return factory.GetStats()
	}
	return &DBStats{}
}

// RunMigrations runs the migrations of the global database.
func RunMigrations(ctx context.Context) error {
	manager := GetDatabaseManager()
	if manager == nil {
		return ErrNotInitialized
	}
	return manager.RunMigrations(ctx)
}
