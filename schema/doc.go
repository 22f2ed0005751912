// Package schema declares the MongoDB collections used by Ficore.
//
// Each [Collection] lists its fields with their BSON types, enumerations and
// numeric minimums, the set of required fields, and the indexes that must
// exist. The same declaration serves two purposes:
//
//   - [Collection.Validator] renders the $jsonSchema validator applied by the
//     reconciler with createCollection / collMod.
//   - [Collection.Validate] and [Collection.ValidatePartial] check documents in
//     the application before any write, so a missing field surfaces as a
//     [ValidationError] instead of a server-side write error.
//
// # Registry
//
// [Default] returns the registry of every Ficore collection:
//
//	reg := schema.Default()
//	items, _ := reg.Collection(schema.ShoppingItems)
//	if err := items.Validate(doc); err != nil {
//	    // errors.Is(err, schema.ErrValidation)
//	}
//
// Field names and enumeration values are shared with the web layer and its
// templates; change them only together.
package schema
