package schema

// BSONType is a $jsonSchema bsonType alias.
type BSONType string

const (
	TypeString BSONType = "string"
	TypeDouble BSONType = "double"
	TypeInt    BSONType = "int"
	TypeNumber BSONType = "number"
	TypeBool   BSONType = "bool"
	TypeDate   BSONType = "date"
	TypeArray  BSONType = "array"
	TypeObject BSONType = "object"
	TypeNull   BSONType = "null"
)

// Field describes one document property.
type Field struct {
	// Name is the stored field name.
	Name string

	// Types lists the accepted BSON types. Empty means any type (used for
	// enum-only fields, which mirror the stored validators).
	Types []BSONType

	// Enum restricts string values to a closed set.
	Enum []string

	// Minimum is the inclusive lower bound for numeric values.
	Minimum *float64

	// Maximum is the inclusive upper bound for numeric values.
	Maximum *float64

	// Items describes array elements. Only meaningful with TypeArray.
	Items *Field

	// Properties and Required describe embedded documents.
	// Only meaningful with TypeObject.
	Properties []Field
	Required   []string
}

// Nullable reports whether the field accepts null.
func (f Field) Nullable() bool {
	for _, t := range f.Types {
		if t == TypeNull {
			return true
		}
	}
	return false
}

func (f Field) accepts(t BSONType) bool {
	for _, have := range f.Types {
		if have == t {
			return true
		}
	}
	return false
}

func bound(v float64) *float64 { return &v }

// String declares a required-type string field.
func String(name string) Field {
	return Field{Name: name, Types: []BSONType{TypeString}}
}

// NullableString declares a string-or-null field.
func NullableString(name string) Field {
	return Field{Name: name, Types: []BSONType{TypeString, TypeNull}}
}

// Double declares a double field with an inclusive minimum.
func Double(name string, minimum float64) Field {
	return Field{Name: name, Types: []BSONType{TypeDouble}, Minimum: bound(minimum)}
}

// Number declares a field accepting any numeric BSON type.
func Number(name string) Field {
	return Field{Name: name, Types: []BSONType{TypeNumber}}
}

// NonNegative declares a numeric field with minimum 0.
func NonNegative(name string) Field {
	return Field{Name: name, Types: []BSONType{TypeNumber}, Minimum: bound(0)}
}

// Int declares an int32 field with an inclusive minimum.
func Int(name string, minimum float64) Field {
	return Field{Name: name, Types: []BSONType{TypeInt}, Minimum: bound(minimum)}
}

// NullableInt declares an int-or-null field.
func NullableInt(name string) Field {
	return Field{Name: name, Types: []BSONType{TypeInt, TypeNull}}
}

// Enum declares a field restricted to values.
func Enum(name string, values ...string) Field {
	return Field{Name: name, Enum: values}
}

// StringEnum declares a string field restricted to values.
func StringEnum(name string, values ...string) Field {
	return Field{Name: name, Types: []BSONType{TypeString}, Enum: values}
}

// Date declares a date field.
func Date(name string) Field {
	return Field{Name: name, Types: []BSONType{TypeDate}}
}

// Bool declares a boolean field.
func Bool(name string) Field {
	return Field{Name: name, Types: []BSONType{TypeBool}}
}

// StringArray declares an array of strings.
func StringArray(name string) Field {
	return Field{Name: name, Types: []BSONType{TypeArray}, Items: &Field{Types: []BSONType{TypeString}}}
}

// ObjectArray declares an array of embedded documents.
func ObjectArray(name string, required []string, properties ...Field) Field {
	return Field{
		Name:  name,
		Types: []BSONType{TypeArray},
		Items: &Field{Types: []BSONType{TypeObject}, Required: required, Properties: properties},
	}
}

// IntRange declares an int32 field bounded on both sides.
func IntRange(name string, lo, hi float64) Field {
	return Field{Name: name, Types: []BSONType{TypeInt}, Minimum: bound(lo), Maximum: bound(hi)}
}
