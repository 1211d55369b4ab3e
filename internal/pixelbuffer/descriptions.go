package pixelbuffer

import "github.com/ngffio/pixelbuffer/internal/multiscale"

// Description is one resolution level's synthetic (width,height) pair.
type Description struct {
	Width, Height int
}

// GetResolutionDescriptions returns, for each public level i, the pair
// (floor(pixels.SizeX/2^i), floor(pixels.SizeY/2^i)) — a synthetic
// power-of-two pyramid derived from the caller's declared full
// resolution, never from on-disk array shapes (spec.md §4.4, a
// deliberate legacy contract; see SPEC_FULL.md's decided open
// question on this).
func (pb *PixelBuffer) GetResolutionDescriptions() []Description {
	descs := make([]Description, pb.levels)
	for i := 0; i < pb.levels; i++ {
		shift := uint(i)
		descs[i] = Description{
			Width:  pb.pixels.SizeX >> shift,
			Height: pb.pixels.SizeY >> shift,
		}
	}
	return descs
}

// GetTileSize returns the chunk shape's (X,Y) components at the
// current internal level.
func (pb *PixelBuffer) GetTileSize() (width, height int) {
	chunks := pb.array.ChunkShape()
	return pb.nativeChunkSize(multiscale.AxisX, chunks), pb.nativeChunkSize(multiscale.AxisY, chunks)
}

func (pb *PixelBuffer) nativeChunkSize(axis string, chunks []int) int {
	if idx, ok := pb.descriptor.Axes[axis]; ok && idx < len(chunks) {
		return chunks[idx]
	}
	return 1
}
