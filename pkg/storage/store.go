// Package storage provides the persistent key/value medium behind the query
// cache and the suggestion ledger.
//
// The medium is modeled as a small synchronous port (Store) so the rest of
// the system can run against sqlite in production and an in-memory fake in
// tests. Backends are quota-bounded and fallible: Set may fail with
// ErrQuotaExceeded and Get may return values that no longer parse. Callers
// are expected to treat both as a cache miss, never as a fatal error.
package storage

import "errors"

// ErrQuotaExceeded is returned by Set when a write would push the backend
// past its configured byte quota.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// Store is a synchronous, quota-bounded key/value medium.
type Store interface {
	// Get returns the value for key. The second result is false on miss.
	Get(key string) ([]byte, bool, error)

	// Set writes value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Keys enumerates all keys with the given prefix, in unspecified order.
	// An empty prefix enumerates everything.
	Keys(prefix string) ([]string, error)

	Close() error
}
