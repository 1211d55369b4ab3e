package store

import (
	"os"
	"path/filepath"
	"strings"
)

// Filesystem is a Store backed by a directory on the local filesystem.
// Path segments are joined with the platform separator; a missing file
// is reported as ErrNotFound rather than an error, since an absent Zarr
// chunk is the common sparse case, not a failure.
type Filesystem struct {
	base string
}

var _ Store = (*Filesystem)(nil)

// NewFilesystem returns a Store rooted at base.
func NewFilesystem(base string) *Filesystem {
	return &Filesystem{base: filepath.Clean(base)}
}

func (f *Filesystem) Get(key string) ([]byte, error) {
	segments := strings.Split(key, "/")
	full := filepath.Join(append([]string{f.base}, segments...)...)
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (f *Filesystem) Resolve(key string) Store {
	segments := strings.Split(key, "/")
	return &Filesystem{base: filepath.Join(append([]string{f.base}, segments...)...)}
}

func (f *Filesystem) Identity() string {
	return "file://" + f.base
}
