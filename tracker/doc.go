// Package tracker provides types.TrackerClient implementations.
//
// Memory is a fully in-process tracker used by tests and examples; it
// counts calls per operation so tests can assert the batch-collection
// call-count guarantees. GitHub adapts the interface onto the GitHub
// issues API, treating labels, assignees, and issue comments as the
// backing store for the assignment protocol.
package tracker
