/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package objectcontext

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/suparena/remotestore/datastore"
	"github.com/suparena/remotestore/errors"
	"github.com/suparena/remotestore/registry"
	"github.com/suparena/remotestore/storagemodels"
)

var errClosed = stderrors.New("context is closed")

// Option configures a Context.
type Option func(*options)

type options struct {
	logger *slog.Logger
	newID  func() string
}

// WithLogger sets the logger used for save and fetch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithObjectIDFunc replaces the uuid generator used by InsertNew.
func WithObjectIDFunc(f func() string) Option {
	return func(o *options) {
		if f != nil {
			o.newID = f
		}
	}
}

// Context is a working set of entities of one type over a DataStore.
//
// Every object id maps to a single P for the lifetime of the context, so
// repeated fetches of the same record return the same pointer. Inserts,
// deletes and modifications stay in memory until Save. A Context is not safe
// for concurrent use.
type Context[T any, P storagemodels.Entity[T]] struct {
	store      datastore.DataStore[T]
	entityType registry.EntityType
	logger     *slog.Logger
	newID      func() string

	objects   map[string]P
	snapshots map[string][]byte // encoded state as last loaded or saved
	order     []string
	inserted  map[string]bool
	deleted   map[string]bool
	closed    bool

	// remote id -> object id for the working set. Objects are indexed on
	// the first remote id lookup after they join it, since InsertNew callers
	// assign the remote id afterwards, and again on Save.
	remoteIndex map[string]string
	indexedAs   map[string]string
	unindexed   []string
}

// New creates an empty context over store.
func New[T any, P storagemodels.Entity[T]](store datastore.DataStore[T], entityType registry.EntityType, opts ...Option) (*Context[T, P], error) {
	if store == nil {
		return nil, errors.NewValidationError("store", "is required")
	}
	if err := entityType.Validate(); err != nil {
		return nil, err
	}

	o := options{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Context[T, P]{
		store:      store,
		entityType: entityType,
		logger:     o.logger.With("entity_type", entityType.Name),
		newID:      o.newID,
	}
	c.reset()
	return c, nil
}

// EntityType returns the descriptor of the managed type.
func (c *Context[T, P]) EntityType() registry.EntityType {
	return c.entityType
}

func (c *Context[T, P]) reset() {
	c.objects = make(map[string]P)
	c.snapshots = make(map[string][]byte)
	c.order = nil
	c.inserted = make(map[string]bool)
	c.deleted = make(map[string]bool)
	c.remoteIndex = make(map[string]string)
	c.indexedAs = make(map[string]string)
	c.unindexed = nil
}

// register returns the managed instance for entity, adopting entity when
// its object id is new to the context.
func (c *Context[T, P]) register(entity *T) P {
	p := P(entity)
	id := p.Remote().ObjectID
	if existing, ok := c.objects[id]; ok {
		return existing
	}
	c.objects[id] = p
	c.order = append(c.order, id)
	c.unindexed = append(c.unindexed, id)
	if snap, err := json.Marshal(p); err == nil {
		c.snapshots[id] = snap
	}
	return p
}

func (c *Context[T, P]) forget(id string) {
	c.unindex(id)
	delete(c.objects, id)
	delete(c.snapshots, id)
	delete(c.inserted, id)
	delete(c.deleted, id)
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Context[T, P]) unindex(id string) {
	if remoteID, ok := c.indexedAs[id]; ok {
		if c.remoteIndex[remoteID] == id {
			delete(c.remoteIndex, remoteID)
		}
		delete(c.indexedAs, id)
	}
}

func (c *Context[T, P]) indexRemoteID(id string) {
	p, ok := c.objects[id]
	if !ok {
		return
	}
	c.unindex(id)
	remoteID := p.Remote().RemoteID
	if remoteID == "" {
		return
	}
	// the earliest live holder of a remote id keeps it
	if current, ok := c.remoteIndex[remoteID]; ok && current != id && c.holds(current, remoteID) {
		return
	}
	c.remoteIndex[remoteID] = id
	c.indexedAs[id] = remoteID
}

func (c *Context[T, P]) holds(id, remoteID string) bool {
	p, ok := c.objects[id]
	return ok && !c.deleted[id] && p.Remote().RemoteID == remoteID
}

// byRemoteID finds the live object holding remoteID in the working set,
// comparing the field directly instead of encoding every object.
func (c *Context[T, P]) byRemoteID(remoteID string) (P, bool) {
	for _, id := range c.unindexed {
		c.indexRemoteID(id)
	}
	c.unindexed = c.unindexed[:0]

	if id, ok := c.remoteIndex[remoteID]; ok && c.holds(id, remoteID) {
		return c.objects[id], true
	}
	// remote ids changed in place since they were indexed
	for _, id := range c.order {
		if c.holds(id, remoteID) {
			c.indexRemoteID(id)
			return c.objects[id], true
		}
	}
	return nil, false
}

// FetchFirst returns the first live object matching pred. Objects already in
// the working set are checked first, in registration order, so unsaved
// changes are visible. It returns nil, nil when nothing matches.
func (c *Context[T, P]) FetchFirst(ctx context.Context, pred storagemodels.Predicate) (P, error) {
	if c.closed {
		return nil, errors.NewContextFailureError("fetch first", errClosed)
	}
	if err := pred.Validate(); err != nil {
		return nil, err
	}

	if remoteID, ok := pred.Value.(string); ok && pred.IsRemoteID() {
		if p, found := c.byRemoteID(remoteID); found {
			return p, nil
		}
	} else {
		for _, id := range c.order {
			if c.deleted[id] {
				continue
			}
			ok, err := pred.Matches(c.objects[id])
			if err != nil {
				return nil, err
			}
			if ok {
				return c.objects[id], nil
			}
		}
	}

	found, err := c.store.FindFirst(ctx, pred)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		if errors.IsValidationError(err) {
			return nil, err
		}
		return nil, errors.NewContextFailureError("fetch first", err)
	}
	if _, known := c.objects[P(found).Remote().ObjectID]; !known {
		return c.register(found), nil
	}

	// The stored match is shadowed by the working set (changed or deleted
	// here), so look for the next stored match that is not.
	all, err := c.store.FindAll(ctx)
	if err != nil {
		return nil, errors.NewContextFailureError("fetch first", err)
	}
	for i := range all {
		candidate := &all[i]
		if _, known := c.objects[P(candidate).Remote().ObjectID]; known {
			continue
		}
		ok, err := pred.Matches(candidate)
		if err != nil {
			return nil, err
		}
		if ok {
			return c.register(candidate), nil
		}
	}
	return nil, nil
}

// FetchAll returns every live object: stored records, mapped through the
// identity map, followed by objects inserted since the last save. Staged
// deletes are excluded.
func (c *Context[T, P]) FetchAll(ctx context.Context) ([]P, error) {
	if c.closed {
		return nil, errors.NewContextFailureError("fetch all", errClosed)
	}

	stored, err := c.store.FindAll(ctx)
	if err != nil {
		return nil, errors.NewContextFailureError("fetch all", err)
	}

	results := make([]P, 0, len(stored)+len(c.inserted))
	seen := make(map[string]bool, len(stored))
	for i := range stored {
		p := c.register(&stored[i])
		id := p.Remote().ObjectID
		seen[id] = true
		if !c.deleted[id] {
			results = append(results, p)
		}
	}
	for _, id := range c.order {
		if c.inserted[id] && !seen[id] && !c.deleted[id] {
			results = append(results, c.objects[id])
		}
	}
	return results, nil
}

// InsertNew creates a managed object with a fresh object id. It is written
// to the store on the next Save.
func (c *Context[T, P]) InsertNew(ctx context.Context) (P, error) {
	if c.closed {
		return nil, errors.NewContextFailureError("insert", errClosed)
	}

	p := P(new(T))
	p.Remote().ObjectID = c.newID()
	id := p.Remote().ObjectID
	if _, exists := c.objects[id]; exists {
		return nil, errors.NewAlreadyExistsError(c.entityType.Name, id)
	}

	c.objects[id] = p
	c.order = append(c.order, id)
	c.unindexed = append(c.unindexed, id)
	c.inserted[id] = true
	c.logger.Debug("inserted object", "object_id", id)
	return p, nil
}

// Delete stages the removal of p. Deleting an object inserted since the last
// save simply drops it.
func (c *Context[T, P]) Delete(ctx context.Context, p P) error {
	if c.closed {
		return errors.NewContextFailureError("delete", errClosed)
	}
	if p == nil || p.Remote().ObjectID == "" {
		return errors.NewValidationError(storagemodels.AttrObjectID, "must not be empty")
	}

	id := p.Remote().ObjectID
	if c.inserted[id] {
		c.forget(id)
		return nil
	}
	c.register((*T)(p))
	c.deleted[id] = true
	return nil
}

// DeleteAll stages the removal of every live object.
func (c *Context[T, P]) DeleteAll(ctx context.Context) error {
	all, err := c.FetchAll(ctx)
	if err != nil {
		return err
	}
	for _, p := range all {
		if err := c.Delete(ctx, p); err != nil {
			return err
		}
	}
	c.logger.Debug("deleted all objects", "count", len(all))
	return nil
}

// dirty reports whether the object differs from its last loaded or saved state.
func (c *Context[T, P]) dirty(id string) bool {
	if c.inserted[id] {
		return true
	}
	snap, ok := c.snapshots[id]
	if !ok {
		return true
	}
	current, err := json.Marshal(c.objects[id])
	if err != nil {
		return true
	}
	return !bytes.Equal(snap, current)
}

// HasChanges reports whether Save would write anything.
func (c *Context[T, P]) HasChanges() bool {
	if c.closed {
		return false
	}
	if len(c.deleted) > 0 {
		return true
	}
	for _, id := range c.order {
		if c.dirty(id) {
			return true
		}
	}
	return false
}

// Save writes inserted and modified objects and applies staged deletes.
// On failure the working set is left as it was, so Save can be retried.
func (c *Context[T, P]) Save(ctx context.Context) error {
	if c.closed {
		return errors.NewContextFailureError("save", errClosed)
	}

	var puts, deletes int
	for _, id := range c.order {
		if c.deleted[id] || !c.dirty(id) {
			continue
		}
		if err := c.store.Put(ctx, *c.objects[id]); err != nil {
			return errors.NewContextFailureError("save", err)
		}
		puts++
	}

	for _, id := range append([]string(nil), c.order...) {
		if !c.deleted[id] {
			continue
		}
		if err := c.store.Delete(ctx, id); err != nil && !errors.IsNotFound(err) {
			return errors.NewContextFailureError("save", err)
		}
		c.forget(id)
		deletes++
	}

	for _, id := range c.order {
		if snap, err := json.Marshal(c.objects[id]); err == nil {
			c.snapshots[id] = snap
		}
		c.indexRemoteID(id)
	}
	c.unindexed = c.unindexed[:0]
	c.inserted = make(map[string]bool)

	if puts > 0 || deletes > 0 {
		c.logger.Info("saved context", "written", puts, "deleted", deletes)
	}
	return nil
}

// Reset discards the working set, including unsaved changes.
func (c *Context[T, P]) Reset() {
	c.reset()
}

// Close discards the working set and invalidates the context.
func (c *Context[T, P]) Close() error {
	c.reset()
	c.closed = true
	return nil
}
