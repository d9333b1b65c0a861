/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package document defines the schemaless entity the command line tool
// imports: the remote identity fields plus every other payload key.
package document

import (
	"encoding/json"

	"github.com/suparena/remotestore"
	"github.com/suparena/remotestore/storagemodels"
)

// Document is a remote record whose fields are not known in advance.
type Document struct {
	storagemodels.RemoteFields
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Mapper stores every non-reserved payload key in Attributes, replacing the
// previous attributes.
type Mapper struct {
	remotestore.BaseMapper[*Document]
}

var _ remotestore.Mapper[*Document] = Mapper{}

// UnpackDictionary copies the timestamps, then the remaining keys.
func (m Mapper) UnpackDictionary(doc *Document, d remotestore.Dictionary) error {
	if err := m.BaseMapper.UnpackDictionary(doc, d); err != nil {
		return err
	}

	attrs := make(map[string]any, len(d))
	for k, v := range d {
		switch k {
		case remotestore.KeyID, remotestore.KeyRemoteID, remotestore.KeyCreatedAt, remotestore.KeyUpdatedAt, storagemodels.AttrObjectID:
			continue
		}
		attrs[k] = normalize(v)
	}
	doc.Attributes = attrs
	return nil
}

// normalize turns decoded payload values into plain Go values that every
// backend encodes the same way.
func normalize(v any) any {
	switch tv := v.(type) {
	case json.Number:
		if i, err := tv.Int64(); err == nil {
			return i
		}
		if f, err := tv.Float64(); err == nil {
			return f
		}
		return tv.String()
	case int:
		return int64(tv)
	case remotestore.Dictionary:
		return normalize(map[string]any(tv))
	case map[string]any:
		out := make(map[string]any, len(tv))
		for k, val := range tv {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(tv))
		for i, val := range tv {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
