// Package keystore provides the SQLite-backed implementation of the static
// key validation collaborator. Keys are stored as SHA-256 digests; the raw
// key is shown exactly once at creation time.
package keystore
