// Package registry holds the static catalog of driver modules available to
// the build pipeline.
//
// A Registry is populated once, either from a YAML catalog manifest plus
// on-disk module blobs (Load) or from in-memory descriptors (New), and is
// immutable afterwards. Initialization fails if any module violates the
// header invariants; Lookup of an unknown identifier is a programmer error
// and panics.
package registry
