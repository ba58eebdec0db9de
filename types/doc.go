// Package types contains the shared types and interfaces used across the
// dispatch library.
//
// It has no dependencies on other dispatch packages, which allows internal
// packages to depend on it without importing the root package. The root
// dispatch package re-exports the most commonly used definitions through
// type aliases.
package types
