/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package remotestore

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDictionary(t *testing.T) {
	d, err := DecodeDictionary(strings.NewReader(`{"id": 42, "title": "Hello", "author": {"name": "Ann"}}`))
	require.NoError(t, err)

	assert.Equal(t, json.Number("42"), d["id"])
	title, ok := d.String("title")
	assert.True(t, ok)
	assert.Equal(t, "Hello", title)

	author, ok := d.Dictionary("author")
	require.True(t, ok)
	name, _ := author.String("name")
	assert.Equal(t, "Ann", name)

	_, ok = d.Dictionary("title")
	assert.False(t, ok)

	_, err = DecodeDictionary(strings.NewReader(`null`))
	assert.Error(t, err)
	_, err = DecodeDictionary(strings.NewReader(`[1, 2]`))
	assert.Error(t, err)
}

func TestDecodeDictionaries(t *testing.T) {
	list, err := DecodeDictionaries(strings.NewReader(` [{"id": 1}, {"id": "2"}] `))
	require.NoError(t, err)
	require.Len(t, list, 2)

	list, err = DecodeDictionaries(strings.NewReader(`{"id": 1}`))
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = DecodeDictionaries(strings.NewReader(`[{"id": 1}, null]`))
	assert.Error(t, err)

	_, err = DecodeDictionaries(strings.NewReader(`{"id": `))
	assert.Error(t, err)
}

func TestFromYAML(t *testing.T) {
	list, err := FromYAML([]byte("id: 7\ntitle: Seven\n"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	id, ok := list[0].RemoteID()
	assert.True(t, ok)
	assert.Equal(t, "7", id)

	list, err = FromYAML([]byte("- id: a\n- id: b\n"))
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = FromYAML([]byte("- 1\n- 2\n"))
	assert.Error(t, err)

	_, err = FromYAML([]byte("just a string"))
	assert.Error(t, err)
}

func TestRemoteID(t *testing.T) {
	tests := []struct {
		name   string
		d      Dictionary
		want   string
		wantOK bool
	}{
		{"string id", Dictionary{"id": "abc"}, "abc", true},
		{"int id", Dictionary{"id": 42}, "42", true},
		{"float id", Dictionary{"id": 42.0}, "42", true},
		{"json number id", Dictionary{"id": json.Number("42")}, "42", true},
		{"json number float id", Dictionary{"id": json.Number("42.0")}, "42", true},
		{"huge id", Dictionary{"id": json.Number("123456789012345678901234")}, "123456789012345678901234", true},
		{"remote_id fallback", Dictionary{"remote_id": "r-1"}, "r-1", true},
		{"id wins", Dictionary{"id": "a", "remote_id": "b"}, "a", true},
		{"blank id falls back", Dictionary{"id": "  ", "remote_id": "b"}, "b", true},
		{"trimmed", Dictionary{"id": " 7 "}, "7", true},
		{"null id", Dictionary{"id": nil}, "", false},
		{"bool id", Dictionary{"id": true}, "", false},
		{"missing", Dictionary{"title": "x"}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.d.RemoteID()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDictionaryDate(t *testing.T) {
	d := Dictionary{"updated_at": 1700000000, "bad": "soon"}
	require.NotNil(t, d.Date("updated_at"))
	assert.Nil(t, d.Date("bad"))
	assert.Nil(t, d.Date("missing"))
}
