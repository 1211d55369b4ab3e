// Package multiscale parses OME-NGFF multiscale root-group attributes
// (spec.md §4.3): the resolution pyramid's dataset list and its axis
// ordering, tolerating the "ome"-nested attribute layout used by NGFF
// challenge datasets. Grounded on the axis/dataset handling in
// original_source/.../ZarrPixelBuffer.java's constructor and
// ZarrStore.java's metadata-unwrapping, adapted into Go's
// map[string]interface{} idiom the way the teacher's
// internal/data/zarr/reader.go decodes free-form JSON attribute maps.
package multiscale

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ngffio/pixelbuffer/internal/store"
)

// Axis names recognized by the multiscale resolver, per spec.md §3.
const (
	AxisT = "t"
	AxisC = "c"
	AxisZ = "z"
	AxisY = "y"
	AxisX = "x"
)

// ErrInvalidMultiscales is returned when a root group's attributes are
// missing "multiscales", declare an axis name outside {t,c,z,y,x}, or
// omit X or Y.
type ErrInvalidMultiscales struct {
	Reason string
}

func (e *ErrInvalidMultiscales) Error() string {
	return fmt.Sprintf("multiscale: invalid multiscales metadata: %s", e.Reason)
}

// Dataset names one resolution level's sub-path within the root group.
type Dataset struct {
	Path string
}

// Descriptor is the resolved view of one multiscale root: its dataset
// (resolution level) list in declared order and the axis-name-to-index
// map used to project canonical (T,C,Z,Y,X) coordinates onto each
// dataset's native array axes.
type Descriptor struct {
	RootAttributes map[string]interface{}
	Datasets       []Dataset
	Axes           map[string]int
}

// defaultAxes is used when the root attributes carry no "axes" array,
// per spec.md §3.
func defaultAxes() map[string]int {
	return map[string]int{AxisT: 0, AxisC: 1, AxisZ: 2, AxisY: 3, AxisX: 4}
}

// Resolve reads the root group's attributes from s, unwraps a
// top-level "ome" key if present, and builds the Descriptor for the
// multiscale root it describes. Only the first "multiscales" entry is
// used, per spec.md §3 ("Entry 0 is used").
func Resolve(s store.Store) (*Descriptor, error) {
	attrs, err := resolveAttributes(s)
	if err != nil {
		return nil, err
	}

	if inner, ok := attrs["ome"].(map[string]interface{}); ok {
		attrs = inner
	}

	rawMultiscales, ok := attrs["multiscales"]
	if !ok {
		return nil, &ErrInvalidMultiscales{Reason: `"multiscales" key absent`}
	}
	list, ok := rawMultiscales.([]interface{})
	if !ok || len(list) == 0 {
		return nil, &ErrInvalidMultiscales{Reason: `"multiscales" is not a non-empty array`}
	}
	entry, ok := list[0].(map[string]interface{})
	if !ok {
		return nil, &ErrInvalidMultiscales{Reason: "multiscales[0] is not an object"}
	}

	datasets, err := parseDatasets(entry)
	if err != nil {
		return nil, err
	}

	axes, err := parseAxes(entry)
	if err != nil {
		return nil, err
	}

	return &Descriptor{
		RootAttributes: attrs,
		Datasets:       datasets,
		Axes:           axes,
	}, nil
}

// resolveAttributes reads the root group's attribute document,
// preferring Zarr v2's ".zattrs" (still the overwhelming majority of
// NGFF data in the wild) and falling back to Zarr v3's "zarr.json",
// whose group metadata carries attributes nested under an
// "attributes" key rather than as a sibling file - a v3 root has no
// ".zattrs" at all, so without this fallback every v3 root would fail
// multiscale resolution even though internal/zarr can read v3 arrays.
func resolveAttributes(s store.Store) (map[string]interface{}, error) {
	raw, err := s.Get(".zattrs")
	if err == nil {
		attrs, err := decodeAttributes(raw)
		if err != nil {
			return nil, fmt.Errorf("multiscale: parsing .zattrs: %w", err)
		}
		return attrs, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("multiscale: reading .zattrs: %w", err)
	}

	raw, err = s.Get("zarr.json")
	if err != nil {
		return nil, fmt.Errorf("multiscale: reading zarr.json: %w", err)
	}
	group, err := decodeAttributes(raw)
	if err != nil {
		return nil, fmt.Errorf("multiscale: parsing zarr.json: %w", err)
	}
	attrs, _ := group["attributes"].(map[string]interface{})
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	return attrs, nil
}

func parseDatasets(entry map[string]interface{}) ([]Dataset, error) {
	raw, ok := entry["datasets"]
	if !ok {
		return nil, &ErrInvalidMultiscales{Reason: `"datasets" key absent`}
	}
	list, ok := raw.([]interface{})
	if !ok || len(list) == 0 {
		return nil, &ErrInvalidMultiscales{Reason: `"datasets" is not a non-empty array`}
	}

	datasets := make([]Dataset, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, &ErrInvalidMultiscales{Reason: fmt.Sprintf("datasets[%d] is not an object", i)}
		}
		path, ok := obj["path"].(string)
		if !ok || path == "" {
			return nil, &ErrInvalidMultiscales{Reason: fmt.Sprintf("datasets[%d] missing path", i)}
		}
		datasets = append(datasets, Dataset{Path: path})
	}
	return datasets, nil
}

func parseAxes(entry map[string]interface{}) (map[string]int, error) {
	raw, ok := entry["axes"]
	if !ok {
		return defaultAxes(), nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, &ErrInvalidMultiscales{Reason: `"axes" is not an array`}
	}

	axes := make(map[string]int, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, &ErrInvalidMultiscales{Reason: fmt.Sprintf("axes[%d] is not an object", i)}
		}
		name, ok := obj["name"].(string)
		if !ok {
			return nil, &ErrInvalidMultiscales{Reason: fmt.Sprintf("axes[%d] missing name", i)}
		}
		name = strings.ToLower(name)
		switch name {
		case AxisT, AxisC, AxisZ, AxisY, AxisX:
			axes[name] = i
		default:
			return nil, &ErrInvalidMultiscales{Reason: fmt.Sprintf("unknown axis name %q", name)}
		}
	}

	if _, ok := axes[AxisX]; !ok {
		return nil, &ErrInvalidMultiscales{Reason: "axes missing required X axis"}
	}
	if _, ok := axes[AxisY]; !ok {
		return nil, &ErrInvalidMultiscales{Reason: "axes missing required Y axis"}
	}
	return axes, nil
}
