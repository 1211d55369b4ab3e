package zarr

import (
	"encoding/json"
	"fmt"
	"math"
)

// fillValueBytes renders meta's fill value (defaulting to the type's
// zero value when unspecified) as byteWidth(dtype) little-endian bytes,
// ready to be repeated across a missing chunk's element count. Adapted
// from the teacher's zarrFillValueBytes, generalized from
// {float32,int32,uint32,uint64} to the full spec.md pixel-type set.
func fillValueBytes(meta *ArrayMetadata) ([]byte, error) {
	width := meta.DType.ByteWidth()
	if width == 0 {
		return nil, &ErrUnsupportedDataType{Raw: meta.DType.String()}
	}

	fill := meta.FillValue
	if fill == nil {
		return make([]byte, width), nil
	}

	switch meta.DType {
	case Int8:
		v, err := asInt64(fill)
		if err != nil {
			return nil, err
		}
		return []byte{byte(int8(v))}, nil
	case Uint8:
		v, err := asInt64(fill)
		if err != nil {
			return nil, err
		}
		return []byte{byte(uint8(v))}, nil
	case Int16:
		v, err := asInt64(fill)
		if err != nil {
			return nil, err
		}
		return le16(uint16(int16(v))), nil
	case Uint16:
		v, err := asInt64(fill)
		if err != nil {
			return nil, err
		}
		return le16(uint16(v)), nil
	case Int32:
		v, err := asInt64(fill)
		if err != nil {
			return nil, err
		}
		return le32(uint32(int32(v))), nil
	case Uint32:
		v, err := asInt64(fill)
		if err != nil {
			return nil, err
		}
		return le32(uint32(v)), nil
	case Float32:
		v, err := asFloat64(fill)
		if err != nil {
			return nil, err
		}
		return le32(math.Float32bits(float32(v))), nil
	case Float64:
		v, err := asFloat64(fill)
		if err != nil {
			return nil, err
		}
		return le64(math.Float64bits(v)), nil
	default:
		return nil, &ErrUnsupportedDataType{Raw: meta.DType.String()}
	}
}

func asInt64(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case int:
		return int64(t), nil
	case int64:
		return t, nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("zarr: unsupported fill_value type %T", v)
	}
}

func asFloat64(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case int:
		return float64(t), nil
	case string:
		switch t {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		}
		return 0, fmt.Errorf("zarr: unsupported fill_value string %q", t)
	default:
		return 0, fmt.Errorf("zarr: unsupported fill_value type %T", v)
	}
}

func le16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func le64(v uint64) []byte {
	return []byte{
		byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24),
		byte(v >> 32), byte(v >> 40), byte(v >> 48), byte(v >> 56),
	}
}

// repeatFillBytes repeats a single element's fill bytes n times.
// Adapted verbatim from the teacher's repeatFillBytes.
func repeatFillBytes(fill []byte, n int) []byte {
	if n <= 0 {
		return nil
	}
	if len(fill) == 0 {
		return make([]byte, n)
	}
	allZero := true
	for _, b := range fill {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return make([]byte, len(fill)*n)
	}
	out := make([]byte, len(fill)*n)
	for i := 0; i < n; i++ {
		copy(out[i*len(fill):(i+1)*len(fill)], fill)
	}
	return out
}
