package pixelbuffer

// GetHypercube is unsupported: spec.md explicitly excludes
// hypercube/strided reads from this engine's scope.
func (pb *PixelBuffer) GetHypercube(offset, shape, step []int) ([]byte, error) {
	return nil, newError(Unsupported, nil, "hypercube reads are not supported")
}

// GetPlaneRegion is unsupported: strided plane-region access with
// arbitrary step is out of scope (spec.md §4.4).
func (pb *PixelBuffer) GetPlaneRegion(z, c, t, x, y, w, h, stride int) ([]byte, error) {
	return nil, newError(Unsupported, nil, "strided plane-region reads are not supported")
}

// GetRegion is unsupported: arbitrary byte-offset "region" reads are
// explicitly a non-goal.
func (pb *PixelBuffer) GetRegion(offset, length int64) ([]byte, error) {
	return nil, newError(Unsupported, nil, "generic byte-offset region reads are not supported")
}

// SetTile, SetRow, SetPlane, SetStack, SetTimepoint, SetRegion: this is
// a read-only engine (spec.md §1 Non-goals: "Writing Zarr data; random
// write or truncate").

// SetTile is unsupported.
func (pb *PixelBuffer) SetTile(data []byte, z, c, t, x, y, w, h int) error {
	return newError(Unsupported, nil, "writes are not supported")
}

// SetRow is unsupported.
func (pb *PixelBuffer) SetRow(data []byte, y, z, c, t int) error {
	return newError(Unsupported, nil, "writes are not supported")
}

// SetPlane is unsupported.
func (pb *PixelBuffer) SetPlane(data []byte, z, c, t int) error {
	return newError(Unsupported, nil, "writes are not supported")
}

// SetStack is unsupported.
func (pb *PixelBuffer) SetStack(data []byte, c, t int) error {
	return newError(Unsupported, nil, "writes are not supported")
}

// SetTimepoint is unsupported.
func (pb *PixelBuffer) SetTimepoint(data []byte, t int) error {
	return newError(Unsupported, nil, "writes are not supported")
}

// Truncate is unsupported.
func (pb *PixelBuffer) Truncate() error {
	return newError(Unsupported, nil, "truncate is not supported")
}

// CalculateMessageDigest is unsupported: content hashing is an
// explicit non-goal.
func (pb *PixelBuffer) CalculateMessageDigest() ([]byte, error) {
	return nil, newError(Unsupported, nil, "message digest is not supported")
}
