package pixelbuffer

import (
	"github.com/ngffio/pixelbuffer/internal/cache"
	"github.com/ngffio/pixelbuffer/internal/multiscale"
	"github.com/ngffio/pixelbuffer/internal/store"
	"github.com/ngffio/pixelbuffer/internal/zarr"
)

// MetadataCache is the process-wide, shared cache of multiscale root
// attributes keyed by Store.Identity() (spec.md §4.7: "Metadata |
// (Store, path)"; here path is implicit in the root Store itself,
// since a multiscale descriptor describes exactly one root). Keying on
// the identity string, not the Store value itself, is what makes the
// cache actually shared: every concrete Store is a pointer type, so two
// different *Filesystem/*HTTP/*S3 instances opened against the same
// root (as happens once per request, since pixelbuffer.New opens a
// fresh Store each call) would never compare equal as map keys, and the
// cache would never hit. Bounded by size; concurrent misses on the same
// identity coalesce into a single load via the underlying
// cache.LoadingCache.
type MetadataCache struct {
	c *cache.LoadingCache[string, *multiscale.Descriptor]
}

// NewMetadataCache returns a metadata cache bounded to size roots.
func NewMetadataCache(size int) (*MetadataCache, error) {
	c, err := cache.NewKeyedCache[string, *multiscale.Descriptor](size)
	if err != nil {
		return nil, err
	}
	return &MetadataCache{c: c}, nil
}

// Get resolves the multiscale descriptor for root, loading and
// caching it on a miss.
func (m *MetadataCache) Get(root store.Store) (*multiscale.Descriptor, error) {
	return m.c.GetWith(root.Identity(), func(string) (*multiscale.Descriptor, error) {
		return multiscale.Resolve(root)
	})
}

// arrayCacheKey is comparable on strings alone (root identity + path),
// not on the Store value, for the same reason MetadataCache keys on
// Store.Identity() rather than the Store itself.
type arrayCacheKey struct {
	identity string
	path     string
}

// ArrayCache is the process-wide, shared cache of open ZarrArray
// handles keyed by (root identity, dataset path).
type ArrayCache struct {
	c *cache.LoadingCache[arrayCacheKey, *zarr.Array]
}

// NewArrayCache returns an array-handle cache bounded to size entries.
func NewArrayCache(size int) (*ArrayCache, error) {
	c, err := cache.NewKeyedCache[arrayCacheKey, *zarr.Array](size)
	if err != nil {
		return nil, err
	}
	return &ArrayCache{c: c}, nil
}

// Get opens (or returns the cached handle for) the array at path
// relative to root.
func (a *ArrayCache) Get(root store.Store, path string) (*zarr.Array, error) {
	key := arrayCacheKey{identity: root.Identity(), path: path}
	return a.c.GetWith(key, func(arrayCacheKey) (*zarr.Array, error) {
		return zarr.Open(root.Resolve(path))
	})
}
