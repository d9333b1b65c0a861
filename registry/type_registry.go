/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"fmt"
	"strings"
)

// EntityType describes one category of records. It is passed explicitly to
// stores and contexts instead of being inferred from the calling type.
type EntityType struct {
	// Name is the stable type tag stored with every record (e.g. "Post").
	Name string
	// IndexMap holds key templates such as "PK": "Post#{object_id}".
	// Macros name `json` attributes of the entity.
	IndexMap map[string]string
}

// NewEntityType builds an unregistered descriptor with the default index map.
func NewEntityType(name string) EntityType {
	return EntityType{Name: name, IndexMap: DefaultIndexMap(name)}
}

// DefaultIndexMap returns the single-table key layout used by every backend:
// the object id addresses the item, and a sparse secondary index keyed by the
// remote id serves remote lookups.
func DefaultIndexMap(name string) map[string]string {
	return map[string]string{
		"PK":  name + "#{object_id}",
		"SK":  name + "#{object_id}",
		"PK1": name + "#REMOTE#{remote_id}",
		"SK1": name,
	}
}

// Validate checks that the descriptor can be used by a store.
func (et EntityType) Validate() error {
	if strings.TrimSpace(et.Name) == "" {
		return fmt.Errorf("entity type name is required")
	}
	if strings.ContainsAny(et.Name, "#{}") {
		return fmt.Errorf("entity type name %q must not contain '#', '{' or '}'", et.Name)
	}
	return nil
}

// typeRegistry holds the mapping from an entity type name to its descriptor.
var typeRegistry = make(map[string]EntityType)

// LookupEntityType returns the registered descriptor for the given name.
// If no descriptor is registered, it returns an error.
func LookupEntityType(name string) (EntityType, error) {
	mu.RLock()
	defer mu.RUnlock()

	et, ok := typeRegistry[name]
	if !ok {
		return EntityType{}, fmt.Errorf("type registry: no entity type registered with name %q", name)
	}
	return et, nil
}

// EntityTypeNames lists the registered names.
func EntityTypeNames() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(typeRegistry))
	for name := range typeRegistry {
		names = append(names, name)
	}
	return names
}
