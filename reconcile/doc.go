// Package reconcile applies a schema.Registry to a live database at startup.
//
// For every declared collection the validator is created or fully replaced,
// and every declared index is compared with the live indexes by key pattern:
//
//   - equal keys and options: left alone
//   - equal keys, other options: dropped and recreated
//   - no index with those keys: created
//
// A creation that collides with an index of the same name but other keys
// drops that index and retries once. The _id index is never dropped. Running
// twice against an unchanged registry performs no index writes the second
// time.
package reconcile
