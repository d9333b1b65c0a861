/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package remotestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/suparena/remotestore/errors"
	"github.com/suparena/remotestore/storagemodels"
)

// Context is the persistence capability the resolver needs.
// *objectcontext.Context satisfies it.
type Context[P any] interface {
	FetchFirst(ctx context.Context, pred storagemodels.Predicate) (P, error)
	FetchAll(ctx context.Context) ([]P, error)
	InsertNew(ctx context.Context) (P, error)
	Delete(ctx context.Context, p P) error
	DeleteAll(ctx context.Context) error
}

// Outcome describes what resolving a dictionary did.
type Outcome int

const (
	// Unchanged means an existing object was found and the payload was stale.
	Unchanged Outcome = iota
	// Updated means an existing object was found and the payload applied.
	Updated
	// Created means a new object was inserted and the payload applied.
	Created
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Resolver finds or creates entities of type T by remote id or attribute,
// and applies remote payloads to them through a Mapper.
type Resolver[T any, P storagemodels.Entity[T]] struct {
	mapper Mapper[P]
	logger *slog.Logger
}

// NewResolver creates a resolver using BaseMapper.
func NewResolver[T any, P storagemodels.Entity[T]]() *Resolver[T, P] {
	return &Resolver[T, P]{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithMapper replaces the default mapper.
func (r *Resolver[T, P]) WithMapper(m Mapper[P]) *Resolver[T, P] {
	r.mapper = m
	return r
}

// WithLogger sets the logger. The default mapper logs through it too.
func (r *Resolver[T, P]) WithLogger(logger *slog.Logger) *Resolver[T, P] {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Mapper returns the mapper in use.
func (r *Resolver[T, P]) Mapper() Mapper[P] {
	if r.mapper == nil {
		return BaseMapper[P]{Logger: r.logger}
	}
	return r.mapper
}

// contextError passes validation errors through and reports everything else
// as a context failure.
func contextError(op string, err error) error {
	if errors.IsValidationError(err) {
		return err
	}
	return errors.NewContextFailureError(op, err)
}

// fetch returns the first match, or nil when there is none.
func (r *Resolver[T, P]) fetch(ctx context.Context, oc Context[P], pred storagemodels.Predicate) (P, error) {
	if err := pred.Validate(); err != nil {
		return nil, err
	}
	found, err := oc.FetchFirst(ctx, pred)
	if err != nil {
		return nil, contextError("fetch "+pred.String(), err)
	}
	return found, nil
}

// findOrCreate returns the first match for pred or inserts a new object
// initialized by init.
func (r *Resolver[T, P]) findOrCreate(ctx context.Context, oc Context[P], pred storagemodels.Predicate, init func(P) error) (P, bool, error) {
	found, err := r.fetch(ctx, oc, pred)
	if err != nil {
		return nil, false, err
	}
	if found != nil {
		return found, false, nil
	}

	created, err := oc.InsertNew(ctx)
	if err != nil {
		return nil, false, contextError("insert", err)
	}
	if err := init(created); err != nil {
		return nil, false, r.discard(ctx, oc, created, err)
	}
	r.logger.Debug("created object", "object_id", created.Remote().ObjectID, "predicate", pred.String())
	return created, true, nil
}

func normalizeRemoteID(remoteID string) (string, error) {
	remoteID = strings.TrimSpace(remoteID)
	if remoteID == "" {
		return "", errors.NewValidationError(storagemodels.AttrRemoteID, "must not be empty")
	}
	return remoteID, nil
}

// ObjectWithRemoteID returns the object with the given remote id, inserting
// one when none exists. Calling it again with the same id on the same
// context returns the same instance.
func (r *Resolver[T, P]) ObjectWithRemoteID(ctx context.Context, oc Context[P], remoteID string) (P, error) {
	p, _, err := r.objectWithRemoteID(ctx, oc, remoteID)
	return p, err
}

func (r *Resolver[T, P]) objectWithRemoteID(ctx context.Context, oc Context[P], remoteID string) (P, bool, error) {
	remoteID, err := normalizeRemoteID(remoteID)
	if err != nil {
		return nil, false, err
	}
	return r.findOrCreate(ctx, oc, storagemodels.RemoteIDEquals(remoteID), func(p P) error {
		p.Remote().RemoteID = remoteID
		return nil
	})
}

// ExistingObjectWithRemoteID returns the object with the given remote id,
// or nil when there is none.
func (r *Resolver[T, P]) ExistingObjectWithRemoteID(ctx context.Context, oc Context[P], remoteID string) (P, error) {
	remoteID, err := normalizeRemoteID(remoteID)
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, oc, storagemodels.RemoteIDEquals(remoteID))
}

// ObjectWithAttribute returns the first object whose attribute equals value,
// inserting one with the attribute set when none exists.
func (r *Resolver[T, P]) ObjectWithAttribute(ctx context.Context, oc Context[P], attribute string, value any) (P, error) {
	if attribute == storagemodels.AttrObjectID {
		return nil, errors.NewValidationError(attribute, "object ids are assigned by the context")
	}
	// fail before anything is inserted
	if err := assignAttribute(P(new(T)), attribute, value); err != nil {
		return nil, err
	}
	pred := storagemodels.AttributeEquals(attribute, value)
	p, _, err := r.findOrCreate(ctx, oc, pred, func(p P) error {
		return assignAttribute(p, attribute, value)
	})
	return p, err
}

// ExistingObjectWithAttribute returns the first object whose attribute
// equals value, or nil when there is none.
func (r *Resolver[T, P]) ExistingObjectWithAttribute(ctx context.Context, oc Context[P], attribute string, value any) (P, error) {
	return r.fetch(ctx, oc, storagemodels.AttributeEquals(attribute, value))
}

// ExistingObjects returns every object of the context. The slice is empty,
// not nil, when there are none.
func (r *Resolver[T, P]) ExistingObjects(ctx context.Context, oc Context[P]) ([]P, error) {
	all, err := oc.FetchAll(ctx)
	if err != nil {
		return nil, contextError("fetch all", err)
	}
	if all == nil {
		all = make([]P, 0)
	}
	return all, nil
}

// RemoveExistingObjects deletes every object of the context. The deletes
// reach the store when the context is saved.
func (r *Resolver[T, P]) RemoveExistingObjects(ctx context.Context, oc Context[P]) error {
	if err := oc.DeleteAll(ctx); err != nil {
		return contextError("delete all", err)
	}
	return nil
}

// ObjectWithDictionary resolves the object identified by the payload,
// inserting it when needed, and applies the payload when the mapper
// considers it newer than the object.
func (r *Resolver[T, P]) ObjectWithDictionary(ctx context.Context, oc Context[P], d Dictionary) (P, error) {
	p, _, err := r.ResolveDictionary(ctx, oc, d)
	return p, err
}

// ResolveDictionary is ObjectWithDictionary, also reporting the outcome.
func (r *Resolver[T, P]) ResolveDictionary(ctx context.Context, oc Context[P], d Dictionary) (P, Outcome, error) {
	mapper := r.Mapper()
	remoteID, ok := mapper.UnpackRemoteID(d)
	if !ok {
		return nil, Unchanged, errors.NewValidationError(KeyID, "dictionary has no remote id")
	}

	p, created, err := r.objectWithRemoteID(ctx, oc, remoteID)
	if err != nil {
		return nil, Unchanged, err
	}

	unpacked, err := r.unpack(mapper, p, d)
	if err != nil {
		if created {
			err = r.discard(ctx, oc, p, err)
		}
		return nil, Unchanged, err
	}
	switch {
	case created:
		return p, Created, nil
	case unpacked:
		return p, Updated, nil
	default:
		return p, Unchanged, nil
	}
}

// ExistingObjectWithDictionary applies the payload to the object it
// identifies, if that object exists. It never inserts.
func (r *Resolver[T, P]) ExistingObjectWithDictionary(ctx context.Context, oc Context[P], d Dictionary) (P, error) {
	mapper := r.Mapper()
	remoteID, ok := mapper.UnpackRemoteID(d)
	if !ok {
		return nil, errors.NewValidationError(KeyID, "dictionary has no remote id")
	}

	p, err := r.ExistingObjectWithRemoteID(ctx, oc, remoteID)
	if err != nil || p == nil {
		return nil, err
	}
	if _, err := r.unpack(mapper, p, d); err != nil {
		return nil, err
	}
	return p, nil
}

// discard drops an object inserted by a call that then failed, so the next
// save does not write a half initialized record. It returns cause.
func (r *Resolver[T, P]) discard(ctx context.Context, oc Context[P], p P, cause error) error {
	if err := oc.Delete(ctx, p); err != nil {
		r.logger.Warn("could not discard object", "object_id", p.Remote().ObjectID, "error", err)
		return fmt.Errorf("%w (discard failed: %v)", cause, err)
	}
	return cause
}

func (r *Resolver[T, P]) unpack(mapper Mapper[P], p P, d Dictionary) (bool, error) {
	if !mapper.ShouldUnpackDictionary(p, d) {
		r.logger.Debug("skipping stale payload", "remote_id", p.Remote().RemoteID)
		return false, nil
	}
	if err := mapper.UnpackDictionary(p, d); err != nil {
		return false, fmt.Errorf("unpack %s: %w", p.Remote().RemoteID, err)
	}
	return true, nil
}

// assignAttribute sets the field tagged `json:"<attribute>"` on p, using the
// same encoding the stores use.
func assignAttribute(p any, attribute string, value any) error {
	data, err := json.Marshal(map[string]any{attribute: value})
	if err != nil {
		return errors.NewValidationError(attribute, err.Error())
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return errors.NewValidationError(attribute, fmt.Sprintf("cannot assign %v: %v", value, err))
	}
	return nil
}
