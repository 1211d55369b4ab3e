package zarr

import (
	"fmt"
	"strings"
)

// DType enumerates the pixel element types the engine understands
// (spec.md §4.2): i1,u1,i2,u2,i4,u4,f4,f8. int64 is explicitly
// unsupported, as is any other numpy/Zarr dtype discriminant.
type DType int

const (
	Int8 DType = iota
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

func (d DType) String() string {
	switch d {
	case Int8:
		return "int8"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Uint16:
		return "uint16"
	case Int32:
		return "int32"
	case Uint32:
		return "uint32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return "unknown"
	}
}

// ByteWidth returns the element size in bytes.
func (d DType) ByteWidth() int {
	switch d {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	default:
		return 0
	}
}

// IsSigned reports whether the type is a signed integer.
func (d DType) IsSigned() bool {
	switch d {
	case Int8, Int16, Int32:
		return true
	default:
		return false
	}
}

// IsFloat reports whether the type is a floating-point type.
func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64
}

// ErrUnsupportedDataType is returned when a Zarr array declares a dtype
// outside the supported enumeration, including int64/uint64.
type ErrUnsupportedDataType struct {
	Raw string
}

func (e *ErrUnsupportedDataType) Error() string {
	return fmt.Sprintf("zarr: unsupported data type %q", e.Raw)
}

// ParseV2DType parses a numpy-style dtype descriptor as found in Zarr v2
// ".zarray" files: a one-character byte-order marker ('<','>','|','=')
// followed by a one-character kind ('i','u','f') and a byte width digit,
// e.g. "<u2", "|u1", ">f8".
func ParseV2DType(s string) (DType, error) {
	if len(s) < 2 {
		return 0, &ErrUnsupportedDataType{Raw: s}
	}
	body := s
	switch s[0] {
	case '<', '>', '|', '=':
		body = s[1:]
	}
	if len(body) != 2 {
		return 0, &ErrUnsupportedDataType{Raw: s}
	}
	kind := body[0]
	width := body[1]
	switch kind {
	case 'i':
		switch width {
		case '1':
			return Int8, nil
		case '2':
			return Int16, nil
		case '4':
			return Int32, nil
		}
	case 'u':
		switch width {
		case '1':
			return Uint8, nil
		case '2':
			return Uint16, nil
		case '4':
			return Uint32, nil
		}
	case 'f':
		switch width {
		case '4':
			return Float32, nil
		case '8':
			return Float64, nil
		}
	}
	return 0, &ErrUnsupportedDataType{Raw: s}
}

// IsV2LittleEndian reports the byte order a Zarr v2 dtype descriptor
// declares. "|" (not-applicable, single-byte types) is treated as
// little-endian for swap purposes since no swap is ever needed on a
// single byte.
func IsV2LittleEndian(s string) bool {
	if s == "" {
		return true
	}
	switch s[0] {
	case '>':
		return false
	default:
		return true
	}
}

// ParseV3DType parses a Zarr v3 "data_type" string as found in
// zarr.json, e.g. "uint16", "int32", "float64".
func ParseV3DType(s string) (DType, error) {
	switch strings.ToLower(s) {
	case "int8":
		return Int8, nil
	case "uint8":
		return Uint8, nil
	case "int16":
		return Int16, nil
	case "uint16":
		return Uint16, nil
	case "int32":
		return Int32, nil
	case "uint32":
		return Uint32, nil
	case "float32":
		return Float32, nil
	case "float64":
		return Float64, nil
	default:
		return 0, &ErrUnsupportedDataType{Raw: s}
	}
}
