// Package api provides the demo HTTP surface over the pixelbuffer engine.
package api

import (
	"context"
	"fmt"

	"github.com/ngffio/pixelbuffer/internal/pixelbuffer"
)

// RootInfo describes one configured NGFF root for the /api/roots listing.
type RootInfo struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type rootEntry struct {
	uri            string
	pixels         pixelbuffer.Pixels
	maxPlaneWidth  int
	maxPlaneHeight int
}

// RootRegistry holds the configured NGFF roots. Per spec.md §5, a
// PixelBuffer's resolution-level state is not safe for concurrent
// callers, so the registry never holds a live buffer: it opens a fresh
// one per request (New reuses the shared metadata/array caches, so this
// costs a cache lookup, not a re-read from the store).
type RootRegistry struct {
	entries       map[string]rootEntry
	order         []string
	defaultRoot   string
	title         string
	metadataCache *pixelbuffer.MetadataCache
	arrayCache    *pixelbuffer.ArrayCache
}

// NewRootRegistry creates an empty registry backed by the given shared
// caches.
func NewRootRegistry(defaultRoot, title string, metadataCache *pixelbuffer.MetadataCache, arrayCache *pixelbuffer.ArrayCache) *RootRegistry {
	return &RootRegistry{
		entries:       make(map[string]rootEntry),
		defaultRoot:   defaultRoot,
		title:         title,
		metadataCache: metadataCache,
		arrayCache:    arrayCache,
	}
}

// Register adds a named root.
func (r *RootRegistry) Register(name, uri string, pixels pixelbuffer.Pixels, maxPlaneWidth, maxPlaneHeight int) {
	r.entries[name] = rootEntry{uri: uri, pixels: pixels, maxPlaneWidth: maxPlaneWidth, maxPlaneHeight: maxPlaneHeight}
	r.order = append(r.order, name)
}

// Names returns configured root names in registration order.
func (r *RootRegistry) Names() []string { return r.order }

// DefaultName returns the default root's name.
func (r *RootRegistry) DefaultName() string { return r.defaultRoot }

// Title returns the configured site title.
func (r *RootRegistry) Title() string {
	if r.title != "" {
		return r.title
	}
	return "pixelbuffer"
}

// Roots returns display info for every registered root.
func (r *RootRegistry) Roots() []RootInfo {
	infos := make([]RootInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, RootInfo{Name: name, URI: r.entries[name].uri})
	}
	return infos
}

// Open constructs a fresh PixelBuffer over the named root, starting at
// its coarsest resolution level (spec.md §4.4 construction default).
func (r *RootRegistry) Open(ctx context.Context, name string) (*pixelbuffer.PixelBuffer, error) {
	entry, ok := r.entries[name]
	if !ok {
		return nil, fmt.Errorf("api: root %q not configured", name)
	}
	return pixelbuffer.New(ctx, entry.pixels, entry.uri, entry.maxPlaneWidth, entry.maxPlaneHeight, r.metadataCache, r.arrayCache)
}
