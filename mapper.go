/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package remotestore

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/suparena/remotestore/storagemodels"
)

// Mapper decides how a remote payload is applied to an entity.
//
// Implementations usually embed BaseMapper and call its methods before
// handling their own fields.
type Mapper[P storagemodels.RemoteObject] interface {
	// UnpackRemoteID extracts the remote identifier from the payload.
	UnpackRemoteID(d Dictionary) (string, bool)
	// ShouldUnpackDictionary reports whether the payload is newer than entity.
	ShouldUnpackDictionary(entity P, d Dictionary) bool
	// UnpackDictionary copies the payload onto entity.
	UnpackDictionary(entity P, d Dictionary) error
}

// BaseMapper is the default Mapper: the id comes from the conventional
// top-level keys, payloads are applied last-write-wins, and only the
// created_at and updated_at timestamps are copied.
type BaseMapper[P storagemodels.RemoteObject] struct {
	// Logger receives debug messages about rejected timestamps. Nil discards.
	Logger *slog.Logger
}

var _ Mapper[storagemodels.RemoteObject] = BaseMapper[storagemodels.RemoteObject]{}

func (m BaseMapper[P]) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m.Logger
}

// UnpackRemoteID reads "id", falling back to "remote_id".
func (m BaseMapper[P]) UnpackRemoteID(d Dictionary) (string, bool) {
	return d.RemoteID()
}

// ShouldUnpackDictionary is true when either timestamp is unknown or the
// payload's updated_at is strictly newer than the entity's.
func (m BaseMapper[P]) ShouldUnpackDictionary(entity P, d Dictionary) bool {
	local := entity.Remote().UpdatedAt
	incoming := d.Date(KeyUpdatedAt)
	if local == nil || incoming == nil {
		return true
	}
	return incoming.After(*local)
}

// UnpackDictionary copies created_at and updated_at. A key that is present
// but cannot be parsed clears the field; an absent key leaves it untouched.
func (m BaseMapper[P]) UnpackDictionary(entity P, d Dictionary) error {
	fields := entity.Remote()
	for key, field := range map[string]**time.Time{
		KeyCreatedAt: &fields.CreatedAt,
		KeyUpdatedAt: &fields.UpdatedAt,
	} {
		raw, ok := d[key]
		if !ok {
			continue
		}
		t, err := parseDate(raw)
		if err != nil {
			m.logger().Debug("ignoring unparseable timestamp", "key", key, "error", err)
		}
		*field = t
	}
	return nil
}

// reservedKeys are handled by BaseMapper or the resolver and never decoded
// onto entity fields.
var reservedKeys = map[string]bool{
	KeyID:                      true,
	KeyRemoteID:                true,
	KeyCreatedAt:               true,
	KeyUpdatedAt:               true,
	storagemodels.AttrObjectID: true,
}

// FieldMapper extends BaseMapper by decoding every other payload key onto
// the entity field with the matching `json` tag. Input is weakly typed, so
// "3" fills an int and 1 fills a bool; date fields accept anything
// ParseDate does.
type FieldMapper[P storagemodels.RemoteObject] struct {
	BaseMapper[P]
	// Strict makes unknown payload keys an error.
	Strict bool
}

// UnpackDictionary runs the base behavior, then decodes the remaining keys.
func (m FieldMapper[P]) UnpackDictionary(entity P, d Dictionary) error {
	if err := m.BaseMapper.UnpackDictionary(entity, d); err != nil {
		return err
	}

	payload := make(map[string]any, len(d))
	for k, v := range d {
		if !reservedKeys[k] {
			payload[k] = v
		}
	}
	if len(payload) == 0 {
		return nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(dateDecodeHook),
		ErrorUnused:      m.Strict,
		Squash:           true,
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           entity,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(payload); err != nil {
		return fmt.Errorf("unpack dictionary: %w", err)
	}
	return nil
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	timePtrType = reflect.TypeOf(&time.Time{})
)

// dateDecodeHook routes time fields through ParseDate. Unparseable values
// leave a *time.Time nil and a time.Time zero.
func dateDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	switch to {
	case timeType:
		if t := ParseDate(data); t != nil {
			return *t, nil
		}
		return time.Time{}, nil
	case timePtrType:
		if t := ParseDate(data); t != nil {
			return *t, nil
		}
		return nil, nil
	}
	return data, nil
}
