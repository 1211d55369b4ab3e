package zarr

import (
	"encoding/json"
	"fmt"

	"github.com/ngffio/pixelbuffer/internal/store"
)

// ArrayMetadata is the engine's unified view of a Zarr array's
// descriptor, regardless of whether it was read from a v2 ".zarray" or
// a v3 "zarr.json" file.
type ArrayMetadata struct {
	ZarrFormat         int
	Shape              []int
	ChunkShape         []int
	DType              DType
	FillValue          interface{}
	Compressor         string // numcodecs id, or "" for none
	LittleEndian       bool
	DimensionSeparator string // "." or "/", v2 chunk key separator
	V3ChunkKeyPrefix   bool   // v3 keys live under "c/"
	V3Separator        string // v3 chunk_key_encoding separator, default "/"
}

// zarrayV2 mirrors the JSON shape of a Zarr v2 ".zarray" file.
type zarrayV2 struct {
	ZarrFormat int    `json:"zarr_format"`
	Shape      []int  `json:"shape"`
	Chunks     []int  `json:"chunks"`
	DType      string `json:"dtype"`
	Order      string `json:"order"`
	FillValue  interface{} `json:"fill_value"`
	Compressor *struct {
		ID string `json:"id"`
	} `json:"compressor"`
	DimensionSeparator string `json:"dimension_separator"`
}

// zarrJSONV3 mirrors the JSON shape of a Zarr v3 "zarr.json" array
// descriptor.
type zarrJSONV3 struct {
	ZarrFormat int    `json:"zarr_format"`
	NodeType   string `json:"node_type"`
	Shape      []int  `json:"shape"`
	DataType   string `json:"data_type"`
	ChunkGrid  struct {
		Name          string `json:"name"`
		Configuration struct {
			ChunkShape []int `json:"chunk_shape"`
		} `json:"configuration"`
	} `json:"chunk_grid"`
	ChunkKeyEncoding struct {
		Name          string `json:"name"`
		Configuration struct {
			Separator string `json:"separator"`
		} `json:"configuration"`
	} `json:"chunk_key_encoding"`
	FillValue interface{} `json:"fill_value"`
	Codecs    []struct {
		Name          string                 `json:"name"`
		Configuration map[string]interface{} `json:"configuration"`
	} `json:"codecs"`
}

// LoadArrayMetadata reads an array's descriptor from s, trying Zarr v3
// ("zarr.json") first and falling back to Zarr v2 (".zarray"), since
// real-world NGFF data is still overwhelmingly v2.
func LoadArrayMetadata(s store.Store) (*ArrayMetadata, error) {
	if data, err := s.Get("zarr.json"); err == nil {
		return parseV3(data)
	}

	data, err := s.Get(".zarray")
	if err != nil {
		return nil, fmt.Errorf("zarr: reading array metadata: %w", err)
	}
	return parseV2(data)
}

func parseV2(data []byte) (*ArrayMetadata, error) {
	var raw zarrayV2
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("zarr: parsing .zarray: %w", err)
	}
	if len(raw.Shape) == 0 || len(raw.Chunks) == 0 {
		return nil, fmt.Errorf("zarr: .zarray missing shape/chunks")
	}
	dtype, err := ParseV2DType(raw.DType)
	if err != nil {
		return nil, err
	}

	sep := raw.DimensionSeparator
	if sep == "" {
		sep = "."
	}
	compressor := ""
	if raw.Compressor != nil {
		compressor = raw.Compressor.ID
	}

	return &ArrayMetadata{
		ZarrFormat:         2,
		Shape:              raw.Shape,
		ChunkShape:         raw.Chunks,
		DType:              dtype,
		FillValue:          raw.FillValue,
		Compressor:         compressor,
		LittleEndian:       IsV2LittleEndian(raw.DType),
		DimensionSeparator: sep,
	}, nil
}

func parseV3(data []byte) (*ArrayMetadata, error) {
	var raw zarrJSONV3
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("zarr: parsing zarr.json: %w", err)
	}
	if len(raw.Shape) == 0 || len(raw.ChunkGrid.Configuration.ChunkShape) == 0 {
		return nil, fmt.Errorf("zarr: zarr.json missing shape/chunk_shape")
	}
	dtype, err := ParseV3DType(raw.DataType)
	if err != nil {
		return nil, err
	}

	sep := raw.ChunkKeyEncoding.Configuration.Separator
	if sep == "" {
		sep = "/"
	}
	prefix := raw.ChunkKeyEncoding.Name == "" || raw.ChunkKeyEncoding.Name == "default"

	compressor := ""
	littleEndian := true
	for _, codec := range raw.Codecs {
		switch codec.Name {
		case "bytes":
			if endian, ok := codec.Configuration["endian"].(string); ok {
				littleEndian = endian != "big"
			}
		case "zstd", "gzip", "zlib", "deflate":
			compressor = codec.Name
		}
	}

	return &ArrayMetadata{
		ZarrFormat:       3,
		Shape:            raw.Shape,
		ChunkShape:       raw.ChunkGrid.Configuration.ChunkShape,
		DType:            dtype,
		FillValue:        raw.FillValue,
		Compressor:       compressor,
		LittleEndian:     littleEndian,
		V3ChunkKeyPrefix: prefix,
		V3Separator:      sep,
	}, nil
}
