// Package storage defines the persistence contracts shared by the screen
// server and its tooling.
//
// Two concerns are covered: the serialized event log the state store
// persists as a single opaque payload, and the mirrored screen documents
// that back filtered listings. The sqlite subpackage implements both; the
// memory subpackage provides an in-process event log store for tests and
// ephemeral runs.
//
// Implementations return ErrNotFound for missing records so callers can
// distinguish absence from failure with errors.Is.
package storage
