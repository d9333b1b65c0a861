/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/suparena/remotestore/errors"
)

var (
	goTypeRegistry = make(map[reflect.Type]EntityType)
	mu             sync.RWMutex
)

// RegisterEntityType associates the Go type T with a named descriptor. A nil
// indexMap selects DefaultIndexMap(name). Registering a name or a Go type
// twice panics, since registration is expected to happen in init functions.
func RegisterEntityType[T any](name string, indexMap map[string]string) EntityType {
	if indexMap == nil {
		indexMap = DefaultIndexMap(name)
	}
	et := EntityType{Name: name, IndexMap: indexMap}
	if err := et.Validate(); err != nil {
		panic(fmt.Sprintf("type registry: %v", err))
	}

	t := reflect.TypeOf((*T)(nil)).Elem()

	mu.Lock()
	defer mu.Unlock()
	if _, exists := typeRegistry[name]; exists {
		panic(fmt.Sprintf("type registry: entity type %q already registered", name))
	}
	if prev, exists := goTypeRegistry[t]; exists {
		panic(fmt.Sprintf("type registry: Go type %v already registered as %q", t, prev.Name))
	}
	typeRegistry[name] = et
	goTypeRegistry[t] = et
	return et
}

// EntityTypeOf retrieves the descriptor registered for T.
func EntityTypeOf[T any]() (EntityType, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()

	mu.RLock()
	defer mu.RUnlock()
	et, ok := goTypeRegistry[t]
	if !ok {
		return EntityType{}, fmt.Errorf("%w: %v", errors.ErrNoEntityType, t)
	}
	return et, nil
}

// MustEntityTypeOf is EntityTypeOf for package-level initialisation.
func MustEntityTypeOf[T any]() EntityType {
	et, err := EntityTypeOf[T]()
	if err != nil {
		panic(err)
	}
	return et
}
