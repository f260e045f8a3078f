// Package types defines the shared vocabulary of the asset runtime: typed
// errors, positions, colors and pixels, cache keys, and the closed set of
// runtime instances (Character, Object, Environment) handed to renderers.
//
// Design goals:
//   - Typed errors with stable categories (format/schema/use-after-close/...).
//   - A closed sum type for instances; callers switch on the concrete type.
//   - Instance positions are safe to read and overwrite from many goroutines.
//
// This package has no dependencies beyond the standard library.
package types
