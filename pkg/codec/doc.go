// Package codec converts entities and containers to and from their
// serialized form: a plain keyed-value structure holding only
// interchange-safe values (strings, numbers, booleans, lists, and nested
// forms).
//
// Encoding is a depth-first traversal with two independent bookkeeping
// sets. An on-path set detects true cycles: an entity reachable from
// itself is replaced by a "$ref" back-reference marker (or fails the
// encode, per policy) instead of recursing forever. A separate
// completed-set, enabled by DedupShared, replaces repeated occurrences of
// a shared non-cyclic entity with the same marker. Diamond-shaped sharing
// is therefore serialized twice by default and once with a back-reference
// when deduplication is on.
//
// Decoding reconstructs the graph schema-first: the "type" discriminator
// selects the kind, values are coerced to the declared field types, and
// back-reference markers are patched in a second pass once every entity
// has been rebuilt.
//
// The codec is pure and performs no locking; callers must not mutate a
// graph concurrently with an Encode or Decode over it.
package codec
