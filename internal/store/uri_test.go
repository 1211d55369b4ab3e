package store

import (
	"context"
	"strings"
	"testing"
)

func TestOpen_File(t *testing.T) {
	dir := t.TempDir()
	uriPath := dir + "/images/sample.zarr/0/chunk"

	s, err := Open(context.Background(), uriPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fs, ok := s.(*Filesystem)
	if !ok {
		t.Fatalf("expected *Filesystem, got %T", s)
	}
	if !strings.HasSuffix(fs.base, "sample.zarr") {
		t.Fatalf("unexpected root: %s", fs.base)
	}
}

func TestOpen_FileMissingZarrSegment(t *testing.T) {
	_, err := Open(context.Background(), "/data/images/sample/0/chunk")
	if err == nil {
		t.Fatal("expected error for path without .zarr segment")
	}
	var invalid *ErrInvalidURI
	if !asInvalidURI(err, &invalid) {
		t.Fatalf("expected ErrInvalidURI, got %T: %v", err, err)
	}
}

func asInvalidURI(err error, target **ErrInvalidURI) bool {
	if e, ok := err.(*ErrInvalidURI); ok {
		*target = e
		return true
	}
	return false
}

func TestOpen_HTTP(t *testing.T) {
	s, err := Open(context.Background(), "https://example.org/data/sample.zarr/0/0.0")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	h, ok := s.(*HTTP)
	if !ok {
		t.Fatalf("expected *HTTP, got %T", s)
	}
	if h.base != "https://example.org/data/sample.zarr" {
		t.Fatalf("unexpected base: %s", h.base)
	}
}

func TestOpen_S3RejectsUserInfo(t *testing.T) {
	_, err := Open(context.Background(), "s3://user:pass@host/bucket/sample.zarr?anonymous=true")
	if err == nil {
		t.Fatal("expected error for s3:// URI with user-info")
	}
}

func TestParseS3Options(t *testing.T) {
	opts := parseS3Options("anonymous=true&region=eu-west-1")
	if !opts.Anonymous {
		t.Fatal("expected Anonymous=true")
	}
	if opts.Region != "eu-west-1" {
		t.Fatalf("unexpected region: %s", opts.Region)
	}
}
