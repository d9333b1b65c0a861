/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of the DataStore interface.
// It backs tests and the CLI's memory backend.
package mock

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/suparena/remotestore/datastore"
	"github.com/suparena/remotestore/errors"
	"github.com/suparena/remotestore/storagemodels"
)

// DataStore is an in-memory datastore.DataStore[T]
type DataStore[T any] struct {
	mu          sync.RWMutex
	data        map[string]T
	order       []string
	typeName    string
	getKeyFunc  func(entity T) string
	findError   error
	putError    error
	deleteError error
}

var _ datastore.DataStore[struct{}] = (*DataStore[struct{}])(nil)

// New creates a new mock DataStore
func New[T any]() *DataStore[T] {
	var zero T
	return &DataStore[T]{
		data:     make(map[string]T),
		typeName: fmt.Sprintf("%T", zero),
	}
}

// WithTypeName sets the type name reported in not-found errors
func (m *DataStore[T]) WithTypeName(name string) *DataStore[T] {
	m.typeName = name
	return m
}

// WithGetKeyFunc sets a custom function to extract keys from entities
func (m *DataStore[T]) WithGetKeyFunc(f func(T) string) *DataStore[T] {
	m.getKeyFunc = f
	return m
}

// WithFindError makes GetOne, FindFirst and FindAll return an error
func (m *DataStore[T]) WithFindError(err error) *DataStore[T] {
	m.findError = err
	return m
}

// WithPutError makes Put operations return an error
func (m *DataStore[T]) WithPutError(err error) *DataStore[T] {
	m.putError = err
	return m
}

// WithDeleteError makes Delete operations return an error
func (m *DataStore[T]) WithDeleteError(err error) *DataStore[T] {
	m.deleteError = err
	return m
}

// GetOne retrieves an entity by object id
func (m *DataStore[T]) GetOne(ctx context.Context, key string) (*T, error) {
	if m.findError != nil {
		return nil, m.findError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if entity, exists := m.data[key]; exists {
		return &entity, nil
	}
	return nil, errors.NewNotFoundError(m.typeName, key)
}

// FindFirst returns the first entity, in insertion order, matching pred
func (m *DataStore[T]) FindFirst(ctx context.Context, pred storagemodels.Predicate) (*T, error) {
	if m.findError != nil {
		return nil, m.findError
	}
	if err := pred.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, key := range m.order {
		entity := m.data[key]
		ok, err := pred.Matches(&entity)
		if err != nil {
			return nil, err
		}
		if ok {
			return &entity, nil
		}
	}
	return nil, errors.NewNotFoundError(m.typeName, pred.String())
}

// FindAll returns every entity in insertion order
func (m *DataStore[T]) FindAll(ctx context.Context) ([]T, error) {
	if m.findError != nil {
		return nil, m.findError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]T, 0, len(m.order))
	for _, key := range m.order {
		results = append(results, m.data[key])
	}
	return results, nil
}

// Put stores an entity
func (m *DataStore[T]) Put(ctx context.Context, entity T) error {
	if m.putError != nil {
		return m.putError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := m.extractKey(entity)
	if key == "" {
		return errors.NewValidationError("key", "unable to extract key from entity")
	}

	if _, exists := m.data[key]; !exists {
		m.order = append(m.order, key)
	}
	m.data[key] = entity
	return nil
}

// Delete removes an entity by object id
func (m *DataStore[T]) Delete(ctx context.Context, key string) error {
	if m.deleteError != nil {
		return m.deleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.data[key]; !exists {
		return errors.NewNotFoundError(m.typeName, key)
	}

	delete(m.data, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Helper methods for testing

// SetData directly sets the internal data map (for testing). Entities are
// ordered by key, as if they had been put in that order.
func (m *DataStore[T]) SetData(data map[string]T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[string]T, len(data))
	m.order = make([]string, 0, len(data))
	for k, v := range data {
		m.data[k] = v
		m.order = append(m.order, k)
	}
	sort.Strings(m.order)
}

// GetData returns a copy of the internal data map (for testing)
func (m *DataStore[T]) GetData() map[string]T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]T, len(m.data))
	for k, v := range m.data {
		result[k] = v
	}
	return result
}

// Count returns the number of stored entities
func (m *DataStore[T]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Clear removes all data
func (m *DataStore[T]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]T)
	m.order = nil
}

// extractKey returns the key for an entity: the custom key function when
// set, the embedded object id otherwise.
func (m *DataStore[T]) extractKey(entity T) string {
	if m.getKeyFunc != nil {
		return m.getKeyFunc(entity)
	}
	return datastore.ObjectKey(&entity)
}
