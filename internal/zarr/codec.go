package zarr

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	kzlib "github.com/klauspost/compress/zlib"
)

// ErrUnsupportedCodec is returned for a compressor/codec id the engine
// does not know how to decode, e.g. "blosc" (no pure-Go blosc decoder
// is available in the dependency pack this engine is built from).
type ErrUnsupportedCodec struct {
	ID string
}

func (e *ErrUnsupportedCodec) Error() string {
	return fmt.Sprintf("zarr: unsupported compressor %q", e.ID)
}

// codecPool reuses zstd decoders across reads; constructing one per
// chunk read would be wasteful under concurrent tile reads.
type codecPool struct {
	mu   sync.Mutex
	zstd *zstd.Decoder
}

var sharedCodecs = &codecPool{}

func (p *codecPool) zstdDecoder() (*zstd.Decoder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.zstd == nil {
		d, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("zarr: creating zstd decoder: %w", err)
		}
		p.zstd = d
	}
	return p.zstd, nil
}

// decompress decodes compressed against the named Zarr/numcodecs
// compressor id. An empty id (or "none") means the bytes are stored
// raw. This covers the two general-purpose compressors Zarr v2/v3
// arrays commonly declare outside blosc: zstd and gzip/zlib (deflate).
func decompress(id string, compressed []byte) ([]byte, error) {
	switch id {
	case "", "none", "raw":
		return compressed, nil
	case "zstd":
		dec, err := sharedCodecs.zstdDecoder()
		if err != nil {
			return nil, err
		}
		out, err := dec.DecodeAll(compressed, nil)
		if err != nil {
			return nil, fmt.Errorf("zarr: zstd decompress: %w", err)
		}
		return out, nil
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("zarr: gzip decompress: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("zarr: gzip decompress: %w", err)
		}
		return out, nil
	case "zlib":
		r, err := kzlib.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("zarr: zlib decompress: %w", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("zarr: zlib decompress: %w", err)
		}
		return out, nil
	case "deflate", "flate":
		r := flate.NewReader(bytes.NewReader(compressed))
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("zarr: flate decompress: %w", err)
		}
		return out, nil
	default:
		return nil, &ErrUnsupportedCodec{ID: id}
	}
}
