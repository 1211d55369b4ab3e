package pixelbuffer

import (
	"errors"

	"github.com/ngffio/pixelbuffer/internal/multiscale"
	"github.com/ngffio/pixelbuffer/internal/zarr"
)

// checkBounds rejects any of x/y/z/c/t (plus, for tile reads, the far
// corner x+w-1/y+h-1) outside its axis's current range (spec.md §4.4
// "Bounds checking").
func (pb *PixelBuffer) checkBounds(x, y, z, c, t, w, h int) error {
	if x < 0 || y < 0 || w <= 0 || h <= 0 {
		return newError(DimensionsOutOfBounds, nil, "negative or empty origin/extent: x=%d y=%d w=%d h=%d", x, y, w, h)
	}
	if x+w-1 >= pb.SizeX() {
		return newError(DimensionsOutOfBounds, nil, "x+w-1=%d >= sizeX=%d", x+w-1, pb.SizeX())
	}
	if y+h-1 >= pb.SizeY() {
		return newError(DimensionsOutOfBounds, nil, "y+h-1=%d >= sizeY=%d", y+h-1, pb.SizeY())
	}
	if z < 0 || z >= pb.SizeZ() {
		return newError(DimensionsOutOfBounds, nil, "z=%d out of range [0,%d)", z, pb.SizeZ())
	}
	if c < 0 || c >= pb.SizeC() {
		return newError(DimensionsOutOfBounds, nil, "c=%d out of range [0,%d)", c, pb.SizeC())
	}
	if t < 0 || t >= pb.SizeT() {
		return newError(DimensionsOutOfBounds, nil, "t=%d out of range [0,%d)", t, pb.SizeT())
	}
	return nil
}

// checkReadSize rejects w*h exceeding maxPlaneWidth*maxPlaneHeight,
// before any buffer proportional to the request is allocated (spec.md
// §4.4/§8 invariant 9).
func (pb *PixelBuffer) checkReadSize(w, h int) error {
	if w*h > pb.maxPlaneWidth*pb.maxPlaneHeight {
		return newError(RequestTooLarge, nil, "w*h=%d exceeds maxPlaneWidth*maxPlaneHeight=%d", w*h, pb.maxPlaneWidth*pb.maxPlaneHeight)
	}
	return nil
}

// read assembles a canonical (T,C,Z,Y,X) region into a single
// big-endian byte buffer (spec.md §4.4 "Request assembly"). offset and
// shape are indexed by the dimT/dimC/dimZ/dimY/dimX constants.
func (pb *PixelBuffer) read(offset, shape [numDims]int) ([]byte, error) {
	width := pb.array.DType().ByteWidth()
	if width == 0 {
		return nil, newError(UnsupportedDataType, nil, "array element type %s", pb.array.DType())
	}

	outStrides := rowMajorStrides5(shape)
	out := make([]byte, product5(shape)*width)

	_, hasZ := pb.descriptor.Axes[multiscale.AxisZ]
	needsSplit := hasZ && pb.fullZ != pb.arrayZ

	if !needsSplit {
		nativeShape, nativeOffset := pb.projectNative(offset, shape)
		data := make([]byte, product5(shape)*width)
		if err := pb.array.ReadInto(data, nativeShape, nativeOffset); err != nil {
			return nil, toReadError(err)
		}
		pb.reorderNativeToCanonical(out, data, shape, outStrides, width)
		return out, nil
	}

	planeShape := shape
	planeShape[dimZ] = 1
	planeElems := product5(planeShape)
	planeStrides := rowMajorStrides5(planeShape)

	for k := 0; k < shape[dimZ]; k++ {
		origZ := offset[dimZ] + k
		if origZ < 0 || origZ >= len(pb.zmap) {
			return nil, newError(DimensionsOutOfBounds, nil, "z=%d out of range [0,%d)", origZ, len(pb.zmap))
		}
		remappedZ := pb.zmap[origZ]

		planeOffset := offset
		planeOffset[dimZ] = remappedZ

		nativeShape, nativeOffset := pb.projectNative(planeOffset, planeShape)
		data := make([]byte, planeElems*width)
		if err := pb.array.ReadInto(data, nativeShape, nativeOffset); err != nil {
			return nil, toReadError(err)
		}

		planeOut := make([]byte, planeElems*width)
		pb.reorderNativeToCanonical(planeOut, data, planeShape, planeStrides, width)

		dstOffset := k * planeElems * width
		copy(out[dstOffset:dstOffset+planeElems*width], planeOut)
	}

	return out, nil
}

// projectNative maps a canonical (T,C,Z,Y,X) offset/shape onto the
// array's native axis order, per spec.md §4.4 step 1: axes the array
// actually has receive the requested value; axes the array lacks are
// simply absent from the native vectors (they never appear since
// array rank equals |axes|).
func (pb *PixelBuffer) projectNative(offset, shape [numDims]int) (nativeShape, nativeOffset []int) {
	rank := len(pb.array.Shape())
	nativeShape = make([]int, rank)
	nativeOffset = make([]int, rank)
	for name, idx := range pb.descriptor.Axes {
		dim := canonicalDimForAxis(name)
		nativeShape[idx] = shape[dim]
		nativeOffset[idx] = offset[dim]
	}
	return nativeShape, nativeOffset
}

func canonicalDimForAxis(name string) int {
	switch name {
	case multiscale.AxisT:
		return dimT
	case multiscale.AxisC:
		return dimC
	case multiscale.AxisZ:
		return dimZ
	case multiscale.AxisY:
		return dimY
	case multiscale.AxisX:
		return dimX
	default:
		return -1
	}
}

// reorderNativeToCanonical permutes src (row-major in the array's
// native axis order) into dst (row-major in canonical T,C,Z,Y,X
// order). Byte order is already big-endian coming out of
// zarr.Array.ReadInto; this only rearranges dimension order.
func (pb *PixelBuffer) reorderNativeToCanonical(dst, src []byte, canonicalShape [numDims]int, canonicalStrides [numDims]int, width int) {
	rank := len(pb.array.Shape())
	nativeShape := make([]int, rank)
	dimForNativeAxis := make([]int, rank)
	for name, idx := range pb.descriptor.Axes {
		dim := canonicalDimForAxis(name)
		dimForNativeAxis[idx] = dim
		nativeShape[idx] = canonicalShape[dim]
	}
	nativeStrides := rowMajorStridesN(nativeShape)

	forEachIndexN(nativeShape, func(nativeIdx []int) bool {
		srcFlat := 0
		for d, v := range nativeIdx {
			srcFlat += v * nativeStrides[d]
		}
		var canonicalIdx [numDims]int
		for d, v := range nativeIdx {
			canonicalIdx[dimForNativeAxis[d]] = v
		}
		dstFlat := 0
		for d := 0; d < numDims; d++ {
			dstFlat += canonicalIdx[d] * canonicalStrides[d]
		}
		copy(dst[dstFlat*width:dstFlat*width+width], src[srcFlat*width:srcFlat*width+width])
		return true
	})
}

func toReadError(err error) error {
	var shapeErr *zarr.ErrInvalidShape
	if errors.As(err, &shapeErr) {
		return newError(DimensionsOutOfBounds, err, "invalid native read shape")
	}
	var dtypeErr *zarr.ErrUnsupportedDataType
	if errors.As(err, &dtypeErr) {
		return newError(UnsupportedDataType, err, "array element type")
	}
	return newError(StoreError, err, "reading array")
}
