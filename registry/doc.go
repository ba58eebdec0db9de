// Package registry provides types.Registry implementations.
//
// The worker registry is the one piece of mutable shared state across
// invocations, so every backing store exposes the same
// compare-and-write-back contract: Load returns a snapshot with a
// version marker, Save rejects writes against a stale version with
// types.ErrRegistryConflict. File is a single-host JSON store; NATSKV
// uses a JetStream KV entry whose revision supplies the version.
package registry
