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
	"fmt"
	"strings"
	"time"

	"github.com/tomoncle/drycrud/utils"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Options tunes Open.
type Options struct {
	// LogLevel is one of silent, error, warn, info. Empty means warn.
	LogLevel      string
	SlowThreshold time.Duration
	// Models are auto-migrated after connecting.
	Models []interface{}
}

// NewLogger writes GORM logs through the named logrus logger "GORM".
func NewLogger(level string, slow time.Duration) gormLogger.Interface {
	if slow <= 0 {
		slow = time.Second
	}
	return gormLogger.New(utils.NewLogger("GORM"), gormLogger.Config{
		SlowThreshold:             slow,
		LogLevel:                  parseLevel(level),
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func parseLevel(level string) gormLogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "silent":
		return gormLogger.Silent
	case "error":
		return gormLogger.Error
	case "info":
		return gormLogger.Info
	default:
		return gormLogger.Warn
	}
}

// Open connects GORM to a mysql, postgres or sqlite database.
func Open(kind, dsn string, opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(kind) {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "postgres", "postgresql":
		dialector = postgres.Open(dsn)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", kind)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   NewLogger(opts.LogLevel, opts.SlowThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", kind, err)
	}
	if len(opts.Models) > 0 {
		if err := db.AutoMigrate(opts.Models...); err != nil {
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return db, nil
}
