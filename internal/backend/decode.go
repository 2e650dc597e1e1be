package backend

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is one JSON object from the backend, read leniently.  Every getter
// takes a list of field names and returns the first one present with a
// usable value, so renamed fields across backend versions (total vs
// total_venta, puesto_num vs numero_puesto) are handled in one place.
type Record map[string]any

// AsRecord returns v as a Record when it is a JSON object.
func AsRecord(v any) (Record, bool) {
	m, ok := v.(map[string]any)
	return Record(m), ok
}

// Int returns the first numeric field among names.  Numeric strings are
// accepted; fractional values are rounded.
func (r Record) Int(names ...string) (int64, bool) {
	for _, n := range names {
		if v, ok := toInt(r[n]); ok {
			return v, true
		}
	}
	return 0, false
}

// IntOr is Int with a default.
func (r Record) IntOr(def int64, names ...string) int64 {
	if v, ok := r.Int(names...); ok {
		return v
	}
	return def
}

// IntPtr is Int returning nil when absent, for optional money fields.
func (r Record) IntPtr(names ...string) *int64 {
	if v, ok := r.Int(names...); ok {
		return &v
	}
	return nil
}

// Float returns the first numeric field among names.
func (r Record) Float(names ...string) (float64, bool) {
	for _, n := range names {
		switch t := r[n].(type) {
		case json.Number:
			if f, err := t.Float64(); err == nil {
				return f, true
			}
		case float64:
			return t, true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// String returns the first non-empty string field among names.
func (r Record) String(names ...string) string {
	for _, n := range names {
		if s, ok := r[n].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// Bool returns the first boolean field among names, nil when none is set.
func (r Record) Bool(names ...string) *bool {
	for _, n := range names {
		if b, ok := r[n].(bool); ok {
			return &b
		}
	}
	return nil
}

// Ints returns the first array-of-numbers field among names.  Entries that
// are not numbers are skipped.
func (r Record) Ints(names ...string) []int {
	for _, n := range names {
		arr, ok := r[n].([]any)
		if !ok {
			continue
		}
		out := make([]int, 0, len(arr))
		for _, e := range arr {
			if v, ok := toInt(e); ok {
				out = append(out, int(v))
			}
		}
		return out
	}
	return nil
}

// List extracts an array of objects from body.  body may be the array
// itself or an object wrapping it under one of keys.  ok is false when no
// array could be found; non-object entries inside the array are skipped.
func List(body any, keys ...string) (items []Record, ok bool) {
	arr, isArr := body.([]any)
	if !isArr {
		obj, isObj := body.(map[string]any)
		if !isObj {
			return nil, false
		}
		for _, k := range keys {
			if a, found := obj[k].([]any); found {
				arr, isArr = a, true
				break
			}
		}
		if !isArr {
			return nil, false
		}
	}
	items = make([]Record, 0, len(arr))
	for _, e := range arr {
		if rec, isRec := AsRecord(e); isRec {
			items = append(items, rec)
		}
	}
	return items, true
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		if f, err := t.Float64(); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int64(math.Round(f)), true
		}
	case float64:
		if !math.IsNaN(t) && !math.IsInf(t, 0) {
			return int64(math.Round(t)), true
		}
	case int:
		return int64(t), true
	case int64:
		return t, true
	case string:
		s := strings.TrimSpace(t)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return int64(math.Round(f)), true
		}
	}
	return 0, false
}
