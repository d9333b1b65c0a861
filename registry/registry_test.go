/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suparena/remotestore/errors"
)

type registryPost struct{ Title string }
type registryComment struct{ Body string }
type unregistered struct{}

func TestRegisterEntityType(t *testing.T) {
	et := RegisterEntityType[registryPost]("RegistryPost", nil)
	assert.Equal(t, "RegistryPost", et.Name)
	assert.Equal(t, "RegistryPost#{object_id}", et.IndexMap["PK"])
	assert.Equal(t, "RegistryPost#REMOTE#{remote_id}", et.IndexMap["PK1"])

	byType, err := EntityTypeOf[registryPost]()
	require.NoError(t, err)
	assert.Equal(t, et, byType)

	byName, err := LookupEntityType("RegistryPost")
	require.NoError(t, err)
	assert.Equal(t, et, byName)

	assert.Contains(t, EntityTypeNames(), "RegistryPost")
}

func TestRegisterEntityTypeCustomIndexMap(t *testing.T) {
	custom := map[string]string{"PK": "C#{object_id}", "SK": "C#{object_id}"}
	et := RegisterEntityType[registryComment]("RegistryComment", custom)
	assert.Equal(t, custom, et.IndexMap)
}

func TestRegisterEntityTypeDuplicates(t *testing.T) {
	type dupA struct{}
	type dupB struct{}

	RegisterEntityType[dupA]("Dup", nil)

	assert.Panics(t, func() { RegisterEntityType[dupB]("Dup", nil) }, "duplicate name")
	assert.Panics(t, func() { RegisterEntityType[dupA]("DupOther", nil) }, "duplicate Go type")
	assert.Panics(t, func() { RegisterEntityType[dupB]("Bad#Name", nil) }, "invalid name")
}

func TestEntityTypeOfUnregistered(t *testing.T) {
	_, err := EntityTypeOf[unregistered]()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNoEntityType)

	assert.Panics(t, func() { MustEntityTypeOf[unregistered]() })

	_, err = LookupEntityType("nope")
	require.Error(t, err)
}

func TestNewEntityType(t *testing.T) {
	et := NewEntityType("note")
	require.NoError(t, et.Validate())
	assert.Equal(t, "note", et.IndexMap["SK1"])

	assert.Error(t, EntityType{}.Validate())
	assert.Error(t, EntityType{Name: "a{b}"}.Validate())
}
