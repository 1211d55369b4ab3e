package pixelbuffer

import "github.com/ngffio/pixelbuffer/internal/multiscale"

// SetResolutionLevel switches the buffer to publicLevel, where 0 is
// the largest (full-resolution) dataset and L-1 is the smallest
// (spec.md §4.4's public numbering). Rebuilds the Z-remap table for
// the newly-selected level.
func (pb *PixelBuffer) SetResolutionLevel(publicLevel int) error {
	if publicLevel < 0 || publicLevel >= pb.levels {
		return newError(OutOfRange, nil, "resolution level %d out of range [0,%d]", publicLevel, pb.levels-1)
	}

	internal := (pb.levels - 1) - publicLevel
	datasetPath := pb.descriptor.Datasets[internal].Path

	arr, err := pb.arrayCache.Get(pb.root, datasetPath)
	if err != nil {
		return newError(StoreError, err, "opening array at %q", datasetPath)
	}

	var zmap []int
	var fullZ, arrayZ int
	if zAxisIdx, ok := pb.descriptor.Axes[multiscale.AxisZ]; ok {
		// Full resolution is public level 0, i.e. internal index L-1.
		fullResPath := pb.descriptor.Datasets[pb.levels-1].Path
		fullResArr, err := pb.arrayCache.Get(pb.root, fullResPath)
		if err != nil {
			return newError(StoreError, err, "opening full-resolution array at %q", fullResPath)
		}
		fullZ = fullResArr.Shape()[zAxisIdx]
		arrayZ = arr.Shape()[zAxisIdx]
		zmap = make([]int, fullZ)
		for z := 0; z < fullZ; z++ {
			// round(z*arrayZ/fullZ), round-half-up on the exact rational.
			zmap[z] = (z*arrayZ + fullZ/2) / fullZ
			if zmap[z] >= arrayZ {
				zmap[z] = arrayZ - 1
			}
		}
	}

	pb.publicLevel = publicLevel
	pb.internalLevel = internal
	pb.array = arr
	pb.zmap = zmap
	pb.fullZ = fullZ
	pb.arrayZ = arrayZ

	size := pb.SizeC()
	if size < 1 {
		size = 1
	}
	tileCache, err := newTileCache(pb, size)
	if err != nil {
		return newError(StoreError, err, "building tile cache")
	}
	pb.tileCache = tileCache

	return nil
}
