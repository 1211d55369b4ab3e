// Package store provides the abstract byte-addressable backend that the
// Zarr chunk reader depends on, with variants for local filesystem, HTTP
// and S3-compatible object storage.
package store

import (
	"errors"
	"io"
)

// ErrNotFound is returned by Get when a key does not exist in the
// underlying backend. For Zarr chunk reads this is not a failure: it
// represents the array's fill value and callers absorb it silently.
var ErrNotFound = errors.New("store: key not found")

// Store is a read-only key -> blob backend. A key is a store-relative
// path using "/" as the separator regardless of the underlying transport.
type Store interface {
	// Get returns the bytes stored at key, or ErrNotFound if no blob
	// exists there. Any other error is a StoreError per spec.
	Get(key string) ([]byte, error)

	// Resolve returns a Store rooted at key relative to this one,
	// analogous to joining a sub-path onto a base directory/prefix.
	Resolve(key string) Store

	// Identity returns a stable string that uniquely identifies this
	// store's root (used as half of the cache key for shared metadata
	// and array-handle caches, so two Stores pointing at the same
	// location compare equal).
	Identity() string
}

// readAll drains an io.ReadCloser fully and closes it, used by the HTTP
// and S3 variants which hand back streaming bodies.
func readAll(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}
