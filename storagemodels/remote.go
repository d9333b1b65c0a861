/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"strconv"
	"strings"
	"time"
)

// Attribute names of the fields every remote entity carries.
const (
	AttrObjectID  = "object_id"
	AttrRemoteID  = "remote_id"
	AttrCreatedAt = "created_at"
	AttrUpdatedAt = "updated_at"
)

// RemoteFields holds the bookkeeping shared by every remote-backed entity.
// Embed it (by value) in entity structs:
//
//	type Post struct {
//	    storagemodels.RemoteFields
//	    Title string `json:"title"`
//	}
type RemoteFields struct {
	// ObjectID is the local identity, assigned when the entity is inserted into a context.
	ObjectID string `json:"object_id"`
	// RemoteID correlates the entity with a record in the remote system. Empty until synced.
	RemoteID string `json:"remote_id,omitempty"`
	// CreatedAt is the remote creation time, if known.
	CreatedAt *time.Time `json:"created_at,omitempty"`
	// UpdatedAt is the remote modification time, if known. It drives the staleness check.
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Remote returns the receiver. Structs embedding RemoteFields get this
// method promoted, which makes their pointers satisfy RemoteObject.
func (f *RemoteFields) Remote() *RemoteFields {
	return f
}

// IsRemote reports whether the entity has been synced with the remote system.
// Numeric identifiers count only when greater than zero; "0" is the
// placeholder some APIs hand out before a record exists.
func (f *RemoteFields) IsRemote() bool {
	id := strings.TrimSpace(f.RemoteID)
	if id == "" {
		return false
	}
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		return n > 0
	}
	if n, err := strconv.ParseFloat(id, 64); err == nil {
		return n > 0
	}
	return true
}

// RemoteObject is implemented by pointers to structs embedding RemoteFields.
type RemoteObject interface {
	Remote() *RemoteFields
}

// Entity constrains P to be *T for a remote entity struct T, so generic
// code can allocate new entities with P(new(T)).
type Entity[T any] interface {
	*T
	RemoteObject
}

// ObjectIDOf returns the object id of v when v is a RemoteObject, and "" otherwise.
func ObjectIDOf(v any) string {
	if ro, ok := v.(RemoteObject); ok && ro != nil {
		return ro.Remote().ObjectID
	}
	return ""
}
