package schema

import (
	"maps"
	"math"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
)

// Coerce rewrites numeric values in doc, in place, to the BSON type their
// field declares: whole numbers become int32 for "int" fields and any number
// becomes float64 for "double" fields. The server validator is strict about
// int vs double, while Go callers naturally pass int and float64 literals.
// Values that cannot be converted losslessly are left for Validate to reject.
//
// Embedded documents in declared arrays are copied and rewritten as bson.D
// with sorted keys. The server compares embedded documents field by field in
// order, so a stable order keeps equality filters on them meaningful.
// Caller-owned element maps are never modified.
func (c Collection) Coerce(doc bson.M) {
	coerceFields(c.Fields, doc)
}

func coerceFields(fields []Field, doc bson.M) {
	for _, f := range fields {
		v, ok := doc[f.Name]
		if !ok || v == nil {
			continue
		}
		doc[f.Name] = coerceValue(f, v)
	}
}

func coerceValue(f Field, v any) any {
	switch {
	case f.accepts(TypeDouble):
		if n, ok := toFloat(v); ok {
			return n
		}
	case f.accepts(TypeInt):
		if n, ok := toInt32(v); ok {
			return n
		}
	case f.accepts(TypeArray) && f.Items != nil:
		return coerceArray(*f.Items, v)
	}
	return v
}

func coerceArray(item Field, v any) any {
	var elems []any
	switch a := v.(type) {
	case bson.A:
		elems = a
	case []any:
		elems = a
	case []bson.M:
		elems = make([]any, len(a))
		for i := range a {
			elems[i] = a[i]
		}
	case []map[string]any:
		elems = make([]any, len(a))
		for i := range a {
			elems[i] = bson.M(a[i])
		}
	default:
		return v
	}
	out := make(bson.A, len(elems))
	for i, e := range elems {
		if m, ok := asMap(e); ok && len(item.Properties) > 0 {
			m = maps.Clone(m)
			coerceFields(item.Properties, m)
			out[i] = sortedDoc(m)
			continue
		}
		out[i] = coerceValue(item, e)
	}
	return out
}

func toInt32(v any) (int32, bool) {
	switch n := v.(type) {
	case int32:
		return n, true
	case int:
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n), true
		}
	case int64:
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n), true
		}
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt32 && n <= math.MaxInt32 {
			return int32(n), true
		}
	}
	return 0, false
}

func sortedDoc(m bson.M) bson.D {
	d := make(bson.D, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		d = append(d, bson.E{Key: k, Value: m[k]})
	}
	return d
}
