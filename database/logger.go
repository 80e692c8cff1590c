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
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/drycrud/utils"
)

var (
	loggerMu sync.Mutex
	logger   Logger
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var logLevels = [...]struct {
	name  string
	level logrus.Level
}{
	LogLevelDebug: {"DEBUG", logrus.DebugLevel},
	LogLevelInfo:  {"INFO", logrus.InfoLevel},
	LogLevelWarn:  {"WARN", logrus.WarnLevel},
	LogLevelError: {"ERROR", logrus.ErrorLevel},
}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(logLevels) {
		return logLevels[LogLevelDebug].name
	}
	return logLevels[l].name
}

func (l LogLevel) toLogrus() logrus.Level {
	if l < 0 || int(l) >= len(logLevels) {
		return logrus.DebugLevel
	}
	return logLevels[l].level
}

// Logger takes a message followed by alternating key/value pairs.
type Logger interface {
	SetLevel(LogLevel)
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// InitLogger installs log as the package logger unless one is already set.
func InitLogger(log Logger) {
	if log == nil {
		return
	}
	loggerMu.Lock()
	if logger == nil {
		logger = log
	}
	loggerMu.Unlock()
}

// GetLogger returns the package logger, creating a DefaultLogger on first use.
func GetLogger() Logger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return logger
}

// DefaultLogger writes through the named logrus logger "DATABASE".
type DefaultLogger struct {
	logger *utils.Logger
}

func NewDefaultLogger() *DefaultLogger {
	return &DefaultLogger{logger: utils.NewLogger("DATABASE")}
}

func (l *DefaultLogger) Debug(msg string, fields ...interface{}) { l.log(logrus.DebugLevel, msg, fields) }
func (l *DefaultLogger) Info(msg string, fields ...interface{})  { l.log(logrus.InfoLevel, msg, fields) }
func (l *DefaultLogger) Warn(msg string, fields ...interface{})  { l.log(logrus.WarnLevel, msg, fields) }
func (l *DefaultLogger) Error(msg string, fields ...interface{}) { l.log(logrus.ErrorLevel, msg, fields) }

func (l *DefaultLogger) SetLevel(level LogLevel) { l.logger.SetLevel(level.toLogrus()) }

// log turns key/value pairs into logrus fields. A trailing key without a
// value is dropped.
func (l *DefaultLogger) log(level logrus.Level, msg string, fields []interface{}) {
	if !l.logger.IsLevelEnabled(level) {
		return
	}
	data := make(logrus.Fields, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		data[fmt.Sprint(fields[i])] = fields[i+1]
	}
	l.logger.WithFields(data).Log(level, msg)
}
