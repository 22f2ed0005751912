package schema

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Key is one component of an index key pattern.
type Key struct {
	Field string
	Order int // 1 ascending, -1 descending
}

// Asc returns an ascending index key.
func Asc(field string) Key { return Key{Field: field, Order: 1} }

// Desc returns a descending index key.
func Desc(field string) Key { return Key{Field: field, Order: -1} }

// Index declares a secondary index.
type Index struct {
	// Keys is the ordered key pattern. Order matters for equality.
	Keys []Key

	// Name overrides the server's default "field_order" name.
	Name string

	Unique bool
	Sparse bool

	// ExpireAfterSeconds makes this a TTL index when set.
	ExpireAfterSeconds *int32

	// PartialFilter restricts the index to matching documents.
	PartialFilter bson.D
}

// IndexName returns the explicit name or the server's default naming
// (e.g. "user_id_1_due_date_1").
func (i Index) IndexName() string {
	if i.Name != "" {
		return i.Name
	}
	parts := make([]string, 0, len(i.Keys)*2)
	for _, k := range i.Keys {
		parts = append(parts, k.Field, fmt.Sprintf("%d", k.Order))
	}
	return strings.Join(parts, "_")
}

// KeyDoc returns the key pattern as an ordered document.
func (i Index) KeyDoc() bson.D {
	d := make(bson.D, 0, len(i.Keys))
	for _, k := range i.Keys {
		d = append(d, bson.E{Key: k.Field, Value: int32(k.Order)})
	}
	return d
}

// Options returns the declared non-default index options keyed by their
// listIndexes names. Defaults (unique=false, sparse=false) are omitted so the
// result compares directly with a live index description.
func (i Index) Options() bson.M {
	opts := bson.M{}
	if i.Unique {
		opts["unique"] = true
	}
	if i.Sparse {
		opts["sparse"] = true
	}
	if i.ExpireAfterSeconds != nil {
		opts["expireAfterSeconds"] = *i.ExpireAfterSeconds
	}
	if len(i.PartialFilter) > 0 {
		opts["partialFilterExpression"] = i.PartialFilter
	}
	return opts
}

// IsPrimary reports whether the index is the primary identifier index.
func (i Index) IsPrimary() bool {
	return IsPrimaryIndex(i.IndexName(), i.Keys)
}

// IsPrimaryIndex reports whether an index with the given name and keys is the
// _id index. The reconciler never drops such an index.
func IsPrimaryIndex(name string, keys []Key) bool {
	if name == "_id_" {
		return true
	}
	return len(keys) == 1 && keys[0].Field == "_id"
}

// Collection declares one MongoDB collection.
type Collection struct {
	Name string

	// Required lists fields the validator requires.
	Required []string

	// Managed lists required fields the store stamps itself (timestamps).
	// They are enforced by the validator but not demanded from callers.
	Managed []string

	// Defaulted lists required fields the store fills with a documented
	// default when the caller omits them.
	Defaulted []string

	Fields  []Field
	Indexes []Index
}

// Field looks up a declared field by name.
func (c Collection) Field(name string) (Field, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// CallerRequired returns the required fields a caller must supply on create.
func (c Collection) CallerRequired() []string {
	skip := make(map[string]bool, len(c.Managed)+len(c.Defaulted))
	for _, f := range c.Managed {
		skip[f] = true
	}
	for _, f := range c.Defaulted {
		skip[f] = true
	}
	var out []string
	for _, f := range c.Required {
		if !skip[f] {
			out = append(out, f)
		}
	}
	return out
}

// IsManaged reports whether the store owns the field.
func (c Collection) IsManaged(name string) bool {
	for _, f := range c.Managed {
		if f == name {
			return true
		}
	}
	return false
}

// Validator renders the collection's $jsonSchema validator. Collections
// without declared fields get an empty validator.
func (c Collection) Validator() bson.M {
	if len(c.Fields) == 0 && len(c.Required) == 0 {
		return bson.M{}
	}
	return bson.M{"$jsonSchema": objectSchema(c.Required, c.Fields)}
}

func objectSchema(required []string, fields []Field) bson.M {
	s := bson.M{"bsonType": "object"}
	if len(required) > 0 {
		s["required"] = append([]string(nil), required...)
	}
	props := bson.M{}
	for _, f := range fields {
		props[f.Name] = fieldSchema(f)
	}
	if len(props) > 0 {
		s["properties"] = props
	}
	return s
}

func fieldSchema(f Field) bson.M {
	s := bson.M{}
	switch len(f.Types) {
	case 0:
	case 1:
		if f.Types[0] == TypeObject {
			return objectSchema(f.Required, f.Properties)
		}
		s["bsonType"] = string(f.Types[0])
	default:
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		s["bsonType"] = types
	}
	if len(f.Enum) > 0 {
		s["enum"] = append([]string(nil), f.Enum...)
	}
	if f.Minimum != nil {
		s["minimum"] = *f.Minimum
	}
	if f.Maximum != nil {
		s["maximum"] = *f.Maximum
	}
	if f.Items != nil {
		s["items"] = fieldSchema(*f.Items)
	}
	return s
}
