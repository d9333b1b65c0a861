/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package remotestore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Conventional payload keys.
const (
	KeyID        = "id"
	KeyRemoteID  = "remote_id"
	KeyCreatedAt = "created_at"
	KeyUpdatedAt = "updated_at"
)

// Dictionary is a decoded remote payload: a JSON-object-like mapping.
type Dictionary map[string]any

// DecodeDictionary decodes a single JSON object. Numbers are kept as
// json.Number so that large integer ids survive intact.
func DecodeDictionary(r io.Reader) (Dictionary, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var d Dictionary
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode dictionary: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("decode dictionary: payload is not an object")
	}
	return d, nil
}

// DecodeDictionaries decodes a JSON object or an array of objects.
func DecodeDictionaries(r io.Reader) ([]Dictionary, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		var list []Dictionary
		if err := dec.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode dictionaries: %w", err)
		}
		for i, d := range list {
			if d == nil {
				return nil, fmt.Errorf("decode dictionaries: element %d is not an object", i)
			}
		}
		return list, nil
	}

	d, err := DecodeDictionary(bytes.NewReader(trimmed))
	if err != nil {
		return nil, err
	}
	return []Dictionary{d}, nil
}

// FromYAML decodes a YAML mapping or a sequence of mappings.
func FromYAML(data []byte) ([]Dictionary, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	switch v := raw.(type) {
	case map[string]any:
		return []Dictionary{Dictionary(v)}, nil
	case []any:
		list := make([]Dictionary, 0, len(v))
		for i, elem := range v {
			m, ok := elem.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("decode yaml: element %d is not a mapping", i)
			}
			list = append(list, Dictionary(m))
		}
		return list, nil
	default:
		return nil, fmt.Errorf("decode yaml: payload is not a mapping")
	}
}

// Value returns the raw value stored under key.
func (d Dictionary) Value(key string) (any, bool) {
	v, ok := d[key]
	return v, ok
}

// String returns the value under key as a string. Numbers are formatted in
// decimal; other types are not converted.
func (d Dictionary) String(key string) (string, bool) {
	v, ok := d[key]
	if !ok || v == nil {
		return "", false
	}
	return scalarString(v)
}

// Date parses the value under key with ParseDate.
func (d Dictionary) Date(key string) *time.Time {
	v, ok := d[key]
	if !ok {
		return nil
	}
	return ParseDate(v)
}

// Dictionary returns the nested mapping under key.
func (d Dictionary) Dictionary(key string) (Dictionary, bool) {
	switch v := d[key].(type) {
	case Dictionary:
		return v, true
	case map[string]any:
		return Dictionary(v), true
	default:
		return nil, false
	}
}

// RemoteID extracts the identifier from the conventional top-level keys,
// "id" first, then "remote_id". Numeric ids are returned in decimal form,
// so 42 and 42.0 both yield "42".
func (d Dictionary) RemoteID() (string, bool) {
	for _, key := range []string{KeyID, KeyRemoteID} {
		if id, ok := d.String(key); ok && strings.TrimSpace(id) != "" {
			return strings.TrimSpace(id), true
		}
	}
	return "", false
}

var integerPattern = regexp.MustCompile(`^-?[0-9]+$`)

func scalarString(v any) (string, bool) {
	switch tv := v.(type) {
	case string:
		return tv, true
	case json.Number:
		if i, err := tv.Int64(); err == nil {
			return strconv.FormatInt(i, 10), true
		}
		if integerPattern.MatchString(tv.String()) {
			// beyond int64, keep the digits as sent
			return tv.String(), true
		}
		f, err := tv.Float64()
		if err != nil {
			return "", false
		}
		return floatString(f), true
	case int:
		return strconv.Itoa(tv), true
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", tv), true
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", tv), true
	case float32:
		return floatString(float64(tv)), true
	case float64:
		return floatString(tv), true
	default:
		return "", false
	}
}

func floatString(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e18 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
