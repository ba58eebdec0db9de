// Package testing provides helpers for tests of dispatch-based code.
//
// StartEmbeddedNATS runs an in-process NATS server with JetStream for
// exercising the KV-backed locker and registry without external
// dependencies; NewTestLogger routes dispatch logs through testing.T.
package testing
