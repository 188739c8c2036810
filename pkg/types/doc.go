// Package types defines the core data model for satchel: kinds (per-entity
// schemas), entities with validated attributes, insertion-ordered containers,
// the kind registry, and the Store/Bucket interfaces with their standard
// error values.
//
// The package has no dependencies beyond the standard library so that codec
// and backend packages can import it freely.
package types
