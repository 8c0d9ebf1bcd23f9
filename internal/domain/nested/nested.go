// Package nested provides safe navigation over decoded JSON trees.
//
// A tree is built from map[string]any, []any, string, json.Number, float64,
// the Go integer kinds, bool and nil. Lookups never panic: a missing key, a
// non-object intermediate or a JSON null all read as absent.
package nested

import (
	"encoding/json"
	"math"
	"strconv"
)

// Kind classifies a tree value.
type Kind uint8

// Value kinds.
const (
	KindMissing Kind = iota
	KindNull
	KindObject
	KindArray
	KindString
	KindNumber
	KindBool
)

var kindNames = [...]string{"missing", "null", "object", "array", "string", "number", "bool"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// KindOf reports the kind of v. Unsupported Go types classify as KindMissing.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNull
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	case string:
		return KindString
	case json.Number, float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case bool:
		return KindBool
	default:
		return KindMissing
	}
}

// Lookup walks path through nested objects starting at root.
// It returns (nil, false) when any step is missing, not an object, or null.
func Lookup(root any, path ...string) (any, bool) {
	cur := root
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}
	if cur == nil {
		return nil, false
	}
	return cur, true
}

// String returns the value at path when it is a JSON string.
func String(root any, path ...string) (string, bool) {
	v, ok := Lookup(root, path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Number returns the value at path when it is a finite JSON number.
func Number(root any, path ...string) (float64, bool) {
	v, ok := Lookup(root, path...)
	if !ok {
		return 0, false
	}
	return toFloat(v)
}

// Object returns the value at path when it is a JSON object.
func Object(root any, path ...string) (map[string]any, bool) {
	v, ok := Lookup(root, path...)
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

// Array returns the value at path when it is a JSON array.
func Array(root any, path ...string) ([]any, bool) {
	v, ok := Lookup(root, path...)
	if !ok {
		return nil, false
	}
	a, ok := v.([]any)
	return a, ok
}

// Scalar returns the canonical text of a string, number or bool.
// Numbers keep their source text when decoded as json.Number.
func Scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case float32:
		f := float64(t)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', -1, 32), true
	case int:
		return strconv.FormatInt(int64(t), 10), true
	case int8:
		return strconv.FormatInt(int64(t), 10), true
	case int16:
		return strconv.FormatInt(int64(t), 10), true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case uint:
		return strconv.FormatUint(uint64(t), 10), true
	case uint8:
		return strconv.FormatUint(uint64(t), 10), true
	case uint16:
		return strconv.FormatUint(uint64(t), 10), true
	case uint32:
		return strconv.FormatUint(uint64(t), 10), true
	case uint64:
		return strconv.FormatUint(t, 10), true
	default:
		return "", false
	}
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case json.Number:
		parsed, err := strconv.ParseFloat(t.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
