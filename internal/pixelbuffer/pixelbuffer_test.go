package pixelbuffer

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// writeZattrs writes the multiscale root attributes document.
func writeZattrs(t *testing.T, dir string, axes []string, datasetPaths []string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	axesList := make([]map[string]string, len(axes))
	for i, a := range axes {
		axesList[i] = map[string]string{"name": a}
	}
	datasets := make([]map[string]string, len(datasetPaths))
	for i, p := range datasetPaths {
		datasets[i] = map[string]string{"path": p}
	}
	doc := map[string]interface{}{
		"multiscales": []interface{}{
			map[string]interface{}{
				"axes":     axesList,
				"datasets": datasets,
			},
		},
	}
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".zattrs"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

// writeSingleChunkLevel writes a v2 array whose entire shape is one
// chunk, holding values in row-major order for that shape.
func writeSingleChunkLevel(t *testing.T, dir string, shape []int, values []uint16) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	meta := map[string]interface{}{
		"zarr_format": 2,
		"shape":       shape,
		"chunks":      shape,
		"dtype":       "<u2",
		"order":       "C",
		"fill_value":  0,
		"compressor":  nil,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".zarray"), data, 0644); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(buf[i*2:], v)
	}
	segs := make([]string, len(shape))
	for i := range shape {
		segs[i] = "0"
	}
	key := segs[0]
	for _, s := range segs[1:] {
		key += "." + s
	}
	if err := os.WriteFile(filepath.Join(dir, key), buf, 0644); err != nil {
		t.Fatal(err)
	}
}

// writeTwoByTwoChunkedLevel writes a 2-D v2 array with shape [4,4] split
// into four 2x2 chunks, for exercising missing-chunk zero-fill.
func writeTwoByTwoChunkedLevel(t *testing.T, dir string, values [16]uint16, omitChunk string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	meta := map[string]interface{}{
		"zarr_format": 2,
		"shape":       []int{4, 4},
		"chunks":      []int{2, 2},
		"dtype":       "<u2",
		"order":       "C",
		"fill_value":  0,
		"compressor":  nil,
	}
	data, err := json.Marshal(meta)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".zarray"), data, 0644); err != nil {
		t.Fatal(err)
	}

	for cy := 0; cy < 2; cy++ {
		for cx := 0; cx < 2; cx++ {
			key := string(rune('0'+cy)) + "." + string(rune('0'+cx))
			if key == omitChunk {
				continue
			}
			buf := make([]byte, 2*2*2)
			for ly := 0; ly < 2; ly++ {
				for lx := 0; lx < 2; lx++ {
					gy := cy*2 + ly
					gx := cx*2 + lx
					binary.LittleEndian.PutUint16(buf[(ly*2+lx)*2:], values[gy*4+gx])
				}
			}
			if err := os.WriteFile(filepath.Join(dir, key), buf, 0644); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func newCaches(t *testing.T) (*MetadataCache, *ArrayCache) {
	t.Helper()
	mc, err := NewMetadataCache(16)
	if err != nil {
		t.Fatal(err)
	}
	ac, err := NewArrayCache(16)
	if err != nil {
		t.Fatal(err)
	}
	return mc, ac
}

func beUint16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

// TestPixelBuffer_RoundTrip5D exercises a default-axis-order (T,C,Z,Y,X)
// single-level volume end to end: plane, row, col, stack and timepoint
// reads must all agree with the same underlying values.
func TestPixelBuffer_RoundTrip5D(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vol.zarr")
	writeZattrs(t, root, []string{"t", "c", "z", "y", "x"}, []string{"0"})

	// shape (T,C,Z,Y,X) = (1,2,2,2,2), values = flat index.
	shape := []int{1, 2, 2, 2, 2}
	values := make([]uint16, 16)
	for i := range values {
		values[i] = uint16(i)
	}
	writeSingleChunkLevel(t, filepath.Join(root, "0"), shape, values)

	mc, ac := newCaches(t)
	pb, err := New(context.Background(), Pixels{SizeX: 2, SizeY: 2, SizeZ: 2, SizeC: 2, SizeT: 1}, root, 1024, 1024, mc, ac)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pb.Close()

	if pb.SizeX() != 2 || pb.SizeY() != 2 || pb.SizeZ() != 2 || pb.SizeC() != 2 || pb.SizeT() != 1 {
		t.Fatalf("unexpected sizes: x=%d y=%d z=%d c=%d t=%d", pb.SizeX(), pb.SizeY(), pb.SizeZ(), pb.SizeC(), pb.SizeT())
	}

	// Plane at z=1,c=1,t=0 starts at native index c*(Z*Y*X) + z*(Y*X) =
	// 1*8 + 1*4 = 12, i.e. elements 12..15 in the flat (T,C,Z,Y,X) layout.
	plane, err := pb.GetPlane(1, 1, 0)
	if err != nil {
		t.Fatalf("GetPlane: %v", err)
	}
	want := []byte{}
	for _, v := range values[12:16] {
		want = append(want, beUint16(v)...)
	}
	if !bytes.Equal(plane, want) {
		t.Fatalf("GetPlane: got %v, want %v", plane, want)
	}

	row, err := pb.GetRow(0, 1, 1, 0)
	if err != nil {
		t.Fatalf("GetRow: %v", err)
	}
	if !bytes.Equal(row, want[:4]) {
		t.Fatalf("GetRow: got %v, want %v", row, want[:4])
	}

	col, err := pb.GetCol(1, 1, 1, 0)
	if err != nil {
		t.Fatalf("GetCol: %v", err)
	}
	wantCol := append(beUint16(values[13]), beUint16(values[15])...)
	if !bytes.Equal(col, wantCol) {
		t.Fatalf("GetCol: got %v, want %v", col, wantCol)
	}

	stack, err := pb.GetStack(1, 0)
	if err != nil {
		t.Fatalf("GetStack: %v", err)
	}
	wantStack := []byte{}
	for _, v := range values[8:16] {
		wantStack = append(wantStack, beUint16(v)...)
	}
	if !bytes.Equal(stack, wantStack) {
		t.Fatalf("GetStack: got %v, want %v", stack, wantStack)
	}

	timepoint, err := pb.GetTimepoint(0)
	if err != nil {
		t.Fatalf("GetTimepoint: %v", err)
	}
	wantTimepoint := []byte{}
	for _, v := range values {
		wantTimepoint = append(wantTimepoint, beUint16(v)...)
	}
	if !bytes.Equal(timepoint, wantTimepoint) {
		t.Fatalf("GetTimepoint: got %v, want %v", timepoint, wantTimepoint)
	}
}

// TestCaches_SharedAcrossFreshStoreInstances guards against keying the
// metadata/array caches on the store.Store value itself: New opens a
// fresh Store per call, and every concrete Store is a pointer type, so
// two Stores rooted at the same path never compare equal unless the
// caches key on Store.Identity() instead.
func TestCaches_SharedAcrossFreshStoreInstances(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vol.zarr")
	writeZattrs(t, root, []string{"y", "x"}, []string{"0"})
	writeSingleChunkLevel(t, filepath.Join(root, "0"), []int{2, 2}, []uint16{1, 2, 3, 4})

	mc, ac := newCaches(t)

	pb1, err := New(context.Background(), Pixels{SizeX: 2, SizeY: 2}, root, 1024, 1024, mc, ac)
	if err != nil {
		t.Fatalf("New (first): %v", err)
	}
	defer pb1.Close()

	pb2, err := New(context.Background(), Pixels{SizeX: 2, SizeY: 2}, root, 1024, 1024, mc, ac)
	if err != nil {
		t.Fatalf("New (second): %v", err)
	}
	defer pb2.Close()

	if got := mc.c.Len(); got != 1 {
		t.Fatalf("expected 1 shared metadata cache entry, got %d", got)
	}
	if got := ac.c.Len(); got != 1 {
		t.Fatalf("expected 1 shared array cache entry, got %d", got)
	}
}

// TestPixelBuffer_NonDefaultAxisOrder exercises axis-order transparency
// (spec.md S2): the on-disk array is native (C,Y,X) with no Z or T axis,
// but the canonical API still reports sizes and byte order correctly.
func TestPixelBuffer_NonDefaultAxisOrder(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vol.zarr")
	writeZattrs(t, root, []string{"c", "y", "x"}, []string{"0"})

	shape := []int{3, 2, 2} // (C,Y,X)
	values := make([]uint16, 12)
	for i := range values {
		values[i] = uint16(100 + i)
	}
	writeSingleChunkLevel(t, filepath.Join(root, "0"), shape, values)

	mc, ac := newCaches(t)
	pb, err := New(context.Background(), Pixels{SizeX: 2, SizeY: 2, SizeZ: 1, SizeC: 3, SizeT: 1}, root, 1024, 1024, mc, ac)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pb.Close()

	if pb.SizeC() != 3 || pb.SizeZ() != 1 || pb.SizeT() != 1 {
		t.Fatalf("unexpected sizes: c=%d z=%d t=%d", pb.SizeC(), pb.SizeZ(), pb.SizeT())
	}

	plane, err := pb.GetPlane(0, 2, 0)
	if err != nil {
		t.Fatalf("GetPlane: %v", err)
	}
	want := []byte{}
	for _, v := range values[8:12] { // channel 2 is native block [2*4:3*4)
		want = append(want, beUint16(v)...)
	}
	if !bytes.Equal(plane, want) {
		t.Fatalf("GetPlane: got %v, want %v", plane, want)
	}
}

// TestPixelBuffer_ZDownsamplePyramid exercises the Z-remap table across
// resolution levels (spec.md S3): level 0 is full-resolution Z=4, level
// 1 (construction default) is downsampled Z=2.
func TestPixelBuffer_ZDownsamplePyramid(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vol.zarr")
	// Datasets are ordered coarsest-first; public level 0 (full
	// resolution) resolves to the last entry.
	writeZattrs(t, root, []string{"z", "y", "x"}, []string{"coarse", "fine"})

	writeSingleChunkLevel(t, filepath.Join(root, "coarse"), []int{2, 1, 1}, []uint16{100, 200})
	writeSingleChunkLevel(t, filepath.Join(root, "fine"), []int{4, 1, 1}, []uint16{10, 20, 30, 40})

	mc, ac := newCaches(t)
	pb, err := New(context.Background(), Pixels{SizeX: 1, SizeY: 1, SizeZ: 4, SizeC: 1, SizeT: 1}, root, 1024, 1024, mc, ac)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pb.Close()

	if pb.SizeZ() != 4 {
		t.Fatalf("SizeZ should always report full resolution: got %d", pb.SizeZ())
	}

	// Construction leaves us at publicLevel = levels-1 = 1 (the coarse
	// array), with the Z-remap table built against it.
	stack, err := pb.GetStack(0, 0)
	if err != nil {
		t.Fatalf("GetStack (coarse): %v", err)
	}
	wantCoarse := append(append(append(beUint16(100), beUint16(200)...), beUint16(200)...), beUint16(200)...)
	if !bytes.Equal(stack, wantCoarse) {
		t.Fatalf("GetStack (coarse): got %v, want %v", stack, wantCoarse)
	}

	if err := pb.SetResolutionLevel(0); err != nil {
		t.Fatalf("SetResolutionLevel(0): %v", err)
	}
	stack, err = pb.GetStack(0, 0)
	if err != nil {
		t.Fatalf("GetStack (fine): %v", err)
	}
	wantFine := append(append(append(beUint16(10), beUint16(20)...), beUint16(30)...), beUint16(40)...)
	if !bytes.Equal(stack, wantFine) {
		t.Fatalf("GetStack (fine): got %v, want %v", stack, wantFine)
	}
}

// TestPixelBuffer_OversizeRequestRejected exercises S4: a request whose
// w*h exceeds the configured maximum is rejected before any
// size-proportional buffer is allocated.
func TestPixelBuffer_OversizeRequestRejected(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vol.zarr")
	writeZattrs(t, root, []string{"y", "x"}, []string{"0"})
	values := make([]uint16, 16)
	for i := range values {
		values[i] = uint16(i)
	}
	writeSingleChunkLevel(t, filepath.Join(root, "0"), []int{4, 4}, values)

	mc, ac := newCaches(t)
	pb, err := New(context.Background(), Pixels{SizeX: 4, SizeY: 4, SizeZ: 1, SizeC: 1, SizeT: 1}, root, 2, 2, mc, ac)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pb.Close()

	_, err = pb.GetTile(0, 0, 0, 0, 0, 4, 4)
	if err == nil {
		t.Fatal("expected RequestTooLarge error")
	}
	var pbErr *Error
	if !errors.As(err, &pbErr) || pbErr.Kind != RequestTooLarge {
		t.Fatalf("expected RequestTooLarge, got %v", err)
	}
}

// TestPixelBuffer_OutOfBoundsRejected exercises bounds checking on all
// five axes.
func TestPixelBuffer_OutOfBoundsRejected(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vol.zarr")
	writeZattrs(t, root, []string{"y", "x"}, []string{"0"})
	writeSingleChunkLevel(t, filepath.Join(root, "0"), []int{4, 4}, make([]uint16, 16))

	mc, ac := newCaches(t)
	pb, err := New(context.Background(), Pixels{SizeX: 4, SizeY: 4, SizeZ: 1, SizeC: 1, SizeT: 1}, root, 1024, 1024, mc, ac)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pb.Close()

	_, err = pb.GetTile(0, 0, 0, 3, 3, 2, 2)
	if err == nil {
		t.Fatal("expected DimensionsOutOfBounds error")
	}
	var pbErr *Error
	if !errors.As(err, &pbErr) || pbErr.Kind != DimensionsOutOfBounds {
		t.Fatalf("expected DimensionsOutOfBounds, got %v", err)
	}
}

// TestPixelBuffer_SetResolutionLevelOutOfRange exercises the OutOfRange
// error path.
func TestPixelBuffer_SetResolutionLevelOutOfRange(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vol.zarr")
	writeZattrs(t, root, []string{"y", "x"}, []string{"0"})
	writeSingleChunkLevel(t, filepath.Join(root, "0"), []int{2, 2}, make([]uint16, 4))

	mc, ac := newCaches(t)
	pb, err := New(context.Background(), Pixels{SizeX: 2, SizeY: 2, SizeZ: 1, SizeC: 1, SizeT: 1}, root, 1024, 1024, mc, ac)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pb.Close()

	err = pb.SetResolutionLevel(5)
	var pbErr *Error
	if !errors.As(err, &pbErr) || pbErr.Kind != OutOfRange {
		t.Fatalf("expected OutOfRange, got %v", err)
	}
}

// TestPixelBuffer_MissingChunkZeroFilled exercises S5: a sparse array
// with one chunk absent reads back as zero in that region without
// failing the whole request.
func TestPixelBuffer_MissingChunkZeroFilled(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vol.zarr")
	writeZattrs(t, root, []string{"y", "x"}, []string{"0"})

	var values [16]uint16
	for i := range values {
		values[i] = uint16(i + 1)
	}
	writeTwoByTwoChunkedLevel(t, filepath.Join(root, "0"), values, "1.1")

	mc, ac := newCaches(t)
	pb, err := New(context.Background(), Pixels{SizeX: 4, SizeY: 4, SizeZ: 1, SizeC: 1, SizeT: 1}, root, 1024, 1024, mc, ac)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pb.Close()

	plane, err := pb.GetPlane(0, 0, 0)
	if err != nil {
		t.Fatalf("GetPlane: %v", err)
	}
	for row := 2; row < 4; row++ {
		for col := 2; col < 4; col++ {
			idx := row*4 + col
			got := binary.BigEndian.Uint16(plane[idx*2:])
			if got != 0 {
				t.Fatalf("expected zero fill at (%d,%d), got %d", row, col, got)
			}
		}
	}
	got := binary.BigEndian.Uint16(plane[0:])
	if got != values[0] {
		t.Fatalf("present chunk corrupted: got %d, want %d", got, values[0])
	}
}

// TestPixelBuffer_RGBCoalescing exercises S6: with SizeC()==3,
// requesting one of three channels populates the tile cache for
// all three, so a subsequent request for a different channel is served
// from cache without another read.
func TestPixelBuffer_RGBCoalescing(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vol.zarr")
	writeZattrs(t, root, []string{"c", "y", "x"}, []string{"0"})

	values := make([]uint16, 3*2*2)
	for i := range values {
		values[i] = uint16(i)
	}
	writeSingleChunkLevel(t, filepath.Join(root, "0"), []int{3, 2, 2}, values)

	mc, ac := newCaches(t)
	pb, err := New(context.Background(), Pixels{SizeX: 2, SizeY: 2, SizeZ: 1, SizeC: 3, SizeT: 1}, root, 1024, 1024, mc, ac)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pb.Close()
	// Coalescing does not depend on the store kind; marking the buffer
	// remote mirrors an HTTP/S3 deployment.
	pb.isRemote = true

	if _, err := pb.GetTile(0, 0, 0, 0, 0, 2, 2); err != nil {
		t.Fatalf("GetTile channel 0: %v", err)
	}
	if pb.tileCache.Len() != 3 {
		t.Fatalf("expected all 3 channels coalesced into the cache, got %d entries", pb.tileCache.Len())
	}

	data1, cached := pb.tileCache.GetIfPresent(tileKey{level: pb.internalLevel, z: 0, c: 1, t: 0, x: 0, y: 0, w: 2, h: 2})
	if !cached {
		t.Fatal("expected channel 1 to already be cached from the coalesced fetch")
	}
	want := append(beUint16(values[4]), beUint16(values[5])...)
	want = append(want, beUint16(values[6])...)
	want = append(want, beUint16(values[7])...)
	if !bytes.Equal(data1, want) {
		t.Fatalf("channel 1 data: got %v, want %v", data1, want)
	}
}
