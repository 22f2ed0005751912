package schema

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrValidation is matched by every ValidationError.
var ErrValidation = errors.New("ficore: validation failed")

// ValidationError reports a document that does not satisfy its collection.
type ValidationError struct {
	Collection string
	Field      string
	Reason     string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("ficore: invalid %s document: %s", e.Collection, e.Reason)
	}
	return fmt.Sprintf("ficore: invalid %s document: field %q %s", e.Collection, e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validate checks that every required field is present and that every
// declared field holds a value of its declared domain. Call Coerce first so
// Go ints and floats match the declared BSON numeric types.
func (c Collection) Validate(doc bson.M) error {
	for _, name := range c.Required {
		if _, ok := doc[name]; !ok {
			return &ValidationError{Collection: c.Name, Field: name, Reason: "is required"}
		}
	}
	return c.ValidatePartial(doc)
}

// ValidatePartial checks the declared domain of the fields present in doc
// without requiring anything. Undeclared fields are accepted.
func (c Collection) ValidatePartial(doc bson.M) error {
	for _, f := range c.Fields {
		v, ok := doc[f.Name]
		if !ok {
			continue
		}
		if reason := checkValue(f, v); reason != "" {
			return &ValidationError{Collection: c.Name, Field: f.Name, Reason: reason}
		}
	}
	return nil
}

func checkValue(f Field, v any) string {
	if v == nil {
		if f.Nullable() || (len(f.Types) == 0 && len(f.Enum) == 0) {
			return ""
		}
		return "must not be null"
	}

	if len(f.Types) > 0 && !typeMatches(f, v) {
		return fmt.Sprintf("must be of type %v", f.Types)
	}

	if len(f.Enum) > 0 {
		s, ok := v.(string)
		if !ok || !contains(f.Enum, s) {
			return fmt.Sprintf("must be one of %v", f.Enum)
		}
	}

	if f.Minimum != nil || f.Maximum != nil {
		n, ok := toFloat(v)
		if ok && f.Minimum != nil && n < *f.Minimum {
			return fmt.Sprintf("must be >= %v", *f.Minimum)
		}
		if ok && f.Maximum != nil && n > *f.Maximum {
			return fmt.Sprintf("must be <= %v", *f.Maximum)
		}
	}

	if f.Items != nil {
		rv := reflect.ValueOf(v)
		for i := 0; i < rv.Len(); i++ {
			if reason := checkElement(*f.Items, rv.Index(i).Interface()); reason != "" {
				return fmt.Sprintf("element %d %s", i, reason)
			}
		}
	}
	return ""
}

func checkElement(f Field, v any) string {
	if len(f.Types) == 1 && f.Types[0] == TypeObject {
		m, ok := asMap(v)
		if !ok {
			return "must be a document"
		}
		for _, name := range f.Required {
			if _, ok := m[name]; !ok {
				return fmt.Sprintf("field %q is required", name)
			}
		}
		for _, p := range f.Properties {
			pv, ok := m[p.Name]
			if !ok {
				continue
			}
			if reason := checkValue(p, pv); reason != "" {
				return fmt.Sprintf("field %q %s", p.Name, reason)
			}
		}
		return ""
	}
	return checkValue(f, v)
}

func typeMatches(f Field, v any) bool {
	for _, t := range f.Types {
		if isType(t, v) {
			return true
		}
	}
	return false
}

func isType(t BSONType, v any) bool {
	switch t {
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeDouble:
		switch v.(type) {
		case float64, float32:
			return true
		}
	case TypeInt:
		switch n := v.(type) {
		case int32:
			return true
		case int:
			return n >= math.MinInt32 && n <= math.MaxInt32
		case int64:
			return n >= math.MinInt32 && n <= math.MaxInt32
		}
	case TypeNumber:
		_, ok := toFloat(v)
		return ok
	case TypeBool:
		_, ok := v.(bool)
		return ok
	case TypeDate:
		switch v.(type) {
		case time.Time, primitive.DateTime:
			return true
		}
	case TypeNull:
		return v == nil
	case TypeArray:
		if _, ok := v.(bson.A); ok {
			return true
		}
		return reflect.ValueOf(v).Kind() == reflect.Slice
	case TypeObject:
		_, ok := asMap(v)
		return ok
	}
	return false
}

func asMap(v any) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return bson.M(m), true
	case bson.D:
		return m.Map(), true
	}
	return nil, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func contains(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
