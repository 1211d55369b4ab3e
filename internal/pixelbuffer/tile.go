package pixelbuffer

import "github.com/ngffio/pixelbuffer/internal/cache"

// tileKey identifies one cached tile read (spec.md §4.7): the
// currently-selected internal resolution level plus the 7-tuple
// (z,c,t,x,y,w,h).
type tileKey struct {
	level int
	z, c, t, x, y, w, h int
}

func newTileCache(pb *PixelBuffer, size int) (*cache.LoadingCache[tileKey, []byte], error) {
	return cache.NewLoadingCache(size, func(k tileKey) ([]byte, error) {
		offset := [numDims]int{dimT: k.t, dimC: k.c, dimZ: k.z, dimY: k.y, dimX: k.x}
		shape := [numDims]int{dimT: 1, dimC: 1, dimZ: 1, dimY: k.h, dimX: k.w}
		return pb.read(offset, shape)
	})
}

// GetTile returns the w*h*byteWidth bytes at (z,c,t,x,y) (spec.md §4.4
// "Region reads", the canonical operation every other accessor
// decomposes into).
//
// RGB prefetch: when SizeC()==3, whatever the store kind, the engine
// assumes the caller will request all three channels in quick
// succession and coalesces the fetch (spec.md §4.4 "RGB prefetch",
// §8 S6). A cold miss on the requested channel invalidates the whole
// tile cache first rather than relying on LRU eviction to roll the
// previous triplet off.
func (pb *PixelBuffer) GetTile(z, c, t, x, y, w, h int) ([]byte, error) {
	if err := pb.checkBounds(x, y, z, c, t, w, h); err != nil {
		return nil, err
	}
	if err := pb.checkReadSize(w, h); err != nil {
		return nil, err
	}

	key := tileKey{level: pb.internalLevel, z: z, c: c, t: t, x: x, y: y, w: w, h: h}

	if pb.SizeC() == 3 {
		if _, cached := pb.tileCache.GetIfPresent(key); !cached {
			pb.tileCache.InvalidateAll()
		}
		var result []byte
		for cc := 0; cc < 3; cc++ {
			k := key
			k.c = cc
			data, err := pb.tileCache.Get(k)
			if err != nil {
				return nil, err
			}
			if cc == c {
				result = data
			}
		}
		return result, nil
	}

	return pb.tileCache.Get(key)
}

// GetRow returns getTile(z,c,t, 0, y, sizeX, 1).
func (pb *PixelBuffer) GetRow(y, z, c, t int) ([]byte, error) {
	return pb.GetTile(z, c, t, 0, y, pb.SizeX(), 1)
}

// GetCol returns getTile(z,c,t, x, 0, 1, sizeY).
func (pb *PixelBuffer) GetCol(x, z, c, t int) ([]byte, error) {
	return pb.GetTile(z, c, t, x, 0, 1, pb.SizeY())
}

// GetPlane returns getTile(z,c,t, 0, 0, sizeX, sizeY).
func (pb *PixelBuffer) GetPlane(z, c, t int) ([]byte, error) {
	return pb.GetTile(z, c, t, 0, 0, pb.SizeX(), pb.SizeY())
}

// GetStack issues a single multi-plane read covering all of Z at
// (c,t), handling the Z-downsample remap transparently (spec.md §4.4).
func (pb *PixelBuffer) GetStack(c, t int) ([]byte, error) {
	if err := pb.checkBounds(0, 0, 0, c, t, pb.SizeX(), pb.SizeY()); err != nil {
		return nil, err
	}
	if err := pb.checkReadSize(pb.SizeX(), pb.SizeY()); err != nil {
		return nil, err
	}
	offset := [numDims]int{dimT: t, dimC: c, dimZ: 0, dimY: 0, dimX: 0}
	shape := [numDims]int{dimT: 1, dimC: 1, dimZ: pb.SizeZ(), dimY: pb.SizeY(), dimX: pb.SizeX()}
	return pb.read(offset, shape)
}

// GetTimepoint issues a single read covering all of Z and C at t
// (spec.md §4.4).
func (pb *PixelBuffer) GetTimepoint(t int) ([]byte, error) {
	if err := pb.checkBounds(0, 0, 0, 0, t, pb.SizeX(), pb.SizeY()); err != nil {
		return nil, err
	}
	if err := pb.checkReadSize(pb.SizeX(), pb.SizeY()); err != nil {
		return nil, err
	}
	offset := [numDims]int{dimT: t, dimC: 0, dimZ: 0, dimY: 0, dimX: 0}
	shape := [numDims]int{dimT: 1, dimC: pb.SizeC(), dimZ: pb.SizeZ(), dimY: pb.SizeY(), dimX: pb.SizeX()}
	return pb.read(offset, shape)
}
