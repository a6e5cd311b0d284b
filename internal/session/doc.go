// Package session provides the bounded LRU cache that holds one live
// protocol session per authenticated identity. Eviction is a logged,
// non-blocking housekeeping event, never an error.
package session
