/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/remotestore/storagemodels"
)

// DataStore is the durable backend of a persistence context. Every store is
// bound to one entity type; missing records are reported with
// errors.NotFoundError.
type DataStore[T any] interface {
	// GetOne returns the entity with the given object id.
	GetOne(ctx context.Context, objectID string) (*T, error)

	// FindFirst returns the first entity matching the predicate.
	FindFirst(ctx context.Context, pred storagemodels.Predicate) (*T, error)

	// FindAll returns every stored entity of the type; an empty slice when none.
	FindAll(ctx context.Context) ([]T, error)

	// Put inserts or replaces the entity, addressed by its object id.
	Put(ctx context.Context, entity T) error

	// Delete removes the entity with the given object id.
	Delete(ctx context.Context, objectID string) error
}

// ObjectKey returns the object id of entity, or "" when T does not embed
// storagemodels.RemoteFields.
func ObjectKey[T any](entity *T) string {
	return storagemodels.ObjectIDOf(any(entity))
}
