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

package dispatch

import (
	"errors"
	"fmt"
)

// ErrorType is the category of a dispatch error.
type ErrorType string

const (
	ErrorTypeUnsupported ErrorType = "unsupported_operation"
	ErrorTypeValidation  ErrorType = "validation"
	ErrorTypeNoResult    ErrorType = "no_result"
	ErrorTypeNonUnique   ErrorType = "non_unique_result"
	ErrorTypeDeclaration ErrorType = "declaration"
)

// Sentinels matched with errors.Is. A *Error of the corresponding type
// matches its sentinel.
var (
	ErrUnsupportedOperation = errors.New("unsupported operation")
	ErrValidation           = errors.New("validation failed")
	ErrNoResult             = errors.New("no result")
	ErrNonUniqueResult      = errors.New("non-unique result")
	ErrDeclaration          = errors.New("invalid operation declaration")
)

// Error is returned by the classifier and the executor. Session failures are
// never wrapped in an Error.
type Error struct {
	Type      ErrorType
	Operation string
	Message   string
}

func (e *Error) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Type, e.Operation, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *Error) Is(target error) bool {
	return target != nil && target == e.Type.sentinel()
}

func (t ErrorType) sentinel() error {
	switch t {
	case ErrorTypeUnsupported:
		return ErrUnsupportedOperation
	case ErrorTypeValidation:
		return ErrValidation
	case ErrorTypeNoResult:
		return ErrNoResult
	case ErrorTypeNonUnique:
		return ErrNonUniqueResult
	case ErrorTypeDeclaration:
		return ErrDeclaration
	default:
		return nil
	}
}

func newError(typ ErrorType, operation string, format string, args ...any) *Error {
	return &Error{Type: typ, Operation: operation, Message: fmt.Sprintf(format, args...)}
}

// NoResult returns the error a session reports when a singular named query
// matched no row.
func NoResult(query string) error {
	return newError(ErrorTypeNoResult, query, "query returned no result")
}

// NonUniqueResult returns the error a session reports when a singular named
// query matched more than one row.
func NonUniqueResult(query string, rows int) error {
	return newError(ErrorTypeNonUnique, query, "query returned %d results, expected one", rows)
}
