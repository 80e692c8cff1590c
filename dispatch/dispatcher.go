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
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/drycrud/utils"
)

var log = utils.NewLogger("DISPATCH")

// Dispatcher holds the compiled operations by name.
type Dispatcher struct {
	mu         sync.RWMutex
	operations map[string]*Operation
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{operations: make(map[string]*Operation)}
}

// Register compiles decl and stores it. Registering a name twice is a
// declaration error.
func (d *Dispatcher) Register(decl Declaration) (*Operation, error) {
	op, err := Compile(decl)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.operations[op.Name()]; exists {
		return nil, newError(ErrorTypeDeclaration, op.Name(), "operation already registered")
	}
	d.operations[op.Name()] = op
	log.WithFields(logrus.Fields{"operation": op.Name(), "kind": op.Kind()}).Debug("registered operation")
	return op, nil
}

// MustRegister is like Register but panics on error. It is meant for package
// initialization.
func (d *Dispatcher) MustRegister(decl Declaration) *Operation {
	op, err := d.Register(decl)
	if err != nil {
		panic(err)
	}
	return op
}

func (d *Dispatcher) Lookup(name string) (*Operation, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	op, ok := d.operations[name]
	return op, ok
}

// Operations returns the registered operation names in sorted order.
func (d *Dispatcher) Operations() []string {
	d.mu.RLock()
	names := make([]string, 0, len(d.operations))
	for name := range d.operations {
		names = append(names, name)
	}
	d.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Invoke runs the operation registered under name.
func (d *Dispatcher) Invoke(ctx context.Context, s Session, name string, args ...any) (any, error) {
	op, ok := d.Lookup(name)
	if !ok {
		return nil, newError(ErrorTypeUnsupported, name, "operation is not registered")
	}
	return Invoke(ctx, s, op, args...)
}

// Invoke classifies args against op and executes the result against s.
func Invoke(ctx context.Context, s Session, op *Operation, args ...any) (any, error) {
	inv, err := Classify(op, args)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := Execute(ctx, s, inv)
	entry := log.WithFields(logrus.Fields{
		"operation": op.Name(),
		"kind":      inv.Kind,
		"elapsed":   time.Since(start),
	})
	if err != nil {
		entry.WithError(err).Debug("operation failed")
		return nil, err
	}
	entry.Debug("operation done")
	return result, nil
}
