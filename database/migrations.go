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
	"sort"
	"time"

	"github.com/uptrace/bun"
)

// Migration is an applied migration record.
type Migration struct {
	bun.BaseModel `bun:"table:schema_migrations"`

	Version     string    `bun:"version,pk"`
	Name        string    `bun:"name"`
	AppliedAt   time.Time `bun:"applied_at"`
	Description string    `bun:"description"`
}

// MigrationFunc is a migration step executed within a transaction.
type MigrationFunc func(ctx context.Context, db bun.IDB) error

type MigrationItem struct {
	Version     string
	Name        string
	Description string
	Up          MigrationFunc
}

// MigrationManager applies versioned migrations once each. Version "001"
// creates the tables of the given models.
type MigrationManager struct {
	db     *bun.DB
	logger Logger
	models []interface{}
	extra  []MigrationItem
}

// NewMigrationManager uses the registered models when none are given.
func NewMigrationManager(db *bun.DB, logger Logger, models ...interface{}) *MigrationManager {
	if len(models) == 0 {
		models = RegisteredModelInstances()
	}
	return &MigrationManager{db: db, logger: logger, models: models}
}

// Add appends a migration to run after the table creation step.
func (mm *MigrationManager) Add(item MigrationItem) {
	mm.extra = append(mm.extra, item)
}

func (mm *MigrationManager) RunMigrations(ctx context.Context) error {
	if mm.db == nil {
		return fmt.Errorf("database not initialized")
	}
	if _, err := mm.db.NewCreateTable().Model((*Migration)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	items := append([]MigrationItem{{
		Version:     "001",
		Name:        "create_tables",
		Description: "Create tables of registered models",
		Up:          mm.createTables,
	}}, mm.extra...)
	sort.SliceStable(items, func(i, j int) bool { return items[i].Version < items[j].Version })

	for _, item := range items {
		if err := mm.run(ctx, item); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", item.Version, err)
		}
	}
	mm.log("Database migrations completed", "count", len(items))
	return nil
}

func (mm *MigrationManager) run(ctx context.Context, item MigrationItem) error {
	applied, err := mm.db.NewSelect().
		Model((*Migration)(nil)).
		Where("version = ?", item.Version).
		Exists(ctx)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	err = mm.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := item.Up(ctx, tx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&Migration{
			Version:     item.Version,
			Name:        item.Name,
			AppliedAt:   time.Now(),
			Description: item.Description,
		}).Exec(ctx)
		return err
	})
	if err != nil {
		return err
	}
	mm.log("Migration executed", "version", item.Version, "name", item.Name)
	return nil
}

func (mm *MigrationManager) createTables(ctx context.Context, db bun.IDB) error {
	for _, model := range mm.models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table %T: %w", model, err)
		}
	}
	return nil
}

// AppliedMigrations lists the applied migrations by version.
func (mm *MigrationManager) AppliedMigrations(ctx context.Context) ([]Migration, error) {
	var applied []Migration
	err := mm.db.NewSelect().Model(&applied).Order("version ASC").Scan(ctx)
	return applied, err
}

func (mm *MigrationManager) log(msg string, fields ...interface{}) {
	if mm.logger != nil {
		mm.logger.Info(msg, fields...)
	}
}
