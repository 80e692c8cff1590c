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
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

var (
	slowLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
	opColors  = map[string]*color.Color{
		"SELECT": color.New(color.BgGreen, color.FgHiWhite),
		"INSERT": color.New(color.BgBlue, color.FgHiWhite),
		"UPDATE": color.New(color.BgYellow, color.FgHiWhite),
		"DELETE": color.New(color.BgMagenta, color.FgHiWhite),
	}
	otherOpColor = color.New(color.BgRed, color.FgHiWhite)
)

// SlowQueryHook reports queries slower than Threshold through the package
// logger. Setting BUN_SLOW=0 in the environment turns it off, BUN_SLOW=1
// turns it on.
type SlowQueryHook struct {
	Threshold time.Duration
	Logger    Logger
	enabled   bool
}

var _ bun.QueryHook = (*SlowQueryHook)(nil)

func NewSlowQueryHook(threshold time.Duration, logger Logger) *SlowQueryHook {
	return &SlowQueryHook{Threshold: threshold, Logger: logger, enabled: true}
}

func (h *SlowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *SlowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if event.Err != nil || !h.active() {
		return
	}
	if elapsed := time.Since(event.StartTime); elapsed > h.Threshold {
		h.Logger.Warn(slowLabel("slow query"),
			"duration", elapsed.Round(time.Microsecond),
			"threshold", h.Threshold,
			"query", colorizeQuery(event.Operation(), event.Query),
		)
	}
}

func (h *SlowQueryHook) active() bool {
	if h.Logger == nil {
		return false
	}
	if env, ok := os.LookupEnv("BUN_SLOW"); ok {
		return strings.TrimSpace(env) == "1"
	}
	return h.enabled
}

func colorizeQuery(operation, query string) string {
	c, ok := opColors[operation]
	if !ok {
		c = otherOpColor
	}
	return c.Sprint(fmt.Sprintf(" %s ", query))
}
