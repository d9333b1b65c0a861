/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package remotestore

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/suparena/remotestore/errors"
)

// ParseDate converts a payload timestamp into a UTC time.
//
// Numbers are seconds since the Unix epoch, fractions included. Strings are
// ISO-8601 date-times. time.Time values pass through. Anything else yields
// nil; malformed input is never an error.
func ParseDate(v any) *time.Time {
	t, err := parseDate(v)
	if err != nil {
		return nil
	}
	return t
}

func parseDate(v any) (*time.Time, error) {
	switch tv := v.(type) {
	case nil:
		return nil, errors.NewDateParseError(v, "no value")
	case time.Time:
		t := tv.UTC()
		return &t, nil
	case *time.Time:
		if tv == nil {
			return nil, errors.NewDateParseError(v, "no value")
		}
		t := tv.UTC()
		return &t, nil
	case string:
		return parseDateString(tv)
	case json.Number:
		if i, err := tv.Int64(); err == nil {
			return unixSeconds(float64(i), v)
		}
		f, err := tv.Float64()
		if err != nil {
			return nil, errors.NewDateParseError(v, "not a number")
		}
		return unixSeconds(f, v)
	case int:
		return unixSeconds(float64(tv), v)
	case int32:
		return unixSeconds(float64(tv), v)
	case int64:
		return unixSeconds(float64(tv), v)
	case uint:
		return unixSeconds(float64(tv), v)
	case uint32:
		return unixSeconds(float64(tv), v)
	case uint64:
		return unixSeconds(float64(tv), v)
	case float32:
		return unixSeconds(float64(tv), v)
	case float64:
		return unixSeconds(tv, v)
	default:
		return nil, errors.NewDateParseError(v, "unsupported type")
	}
}

func parseDateString(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	// strfmt accepts "" as the zero time
	if s == "" {
		return nil, errors.NewDateParseError(s, "empty string")
	}
	dt, err := strfmt.ParseDateTime(s)
	if err != nil {
		return nil, errors.NewDateParseError(s, err.Error())
	}
	t := time.Time(dt).UTC()
	return &t, nil
}

func unixSeconds(f float64, original any) (*time.Time, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > 1e15 {
		return nil, errors.NewDateParseError(original, "out of range")
	}
	sec, frac := math.Modf(f)
	t := time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
	return &t, nil
}
