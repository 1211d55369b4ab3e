package store

import (
	"context"
	"fmt"
	"strings"
)

// ErrInvalidURI is returned for URIs with an unsupported scheme, missing
// ".zarr" path segment, or (for s3://) embedded user-info.
type ErrInvalidURI struct {
	URI    string
	Reason string
}

func (e *ErrInvalidURI) Error() string {
	return fmt.Sprintf("store: invalid NGFF URI %q: %s", e.URI, e.Reason)
}

// Open resolves an NGFF root URI to a Store rooted at the ".zarr"
// directory the URI names. Supported schemes are "file://" (or no
// scheme), "http://", "https://", and "s3://"; see spec.md §4.1/§6 for
// the grammar.
func Open(ctx context.Context, uri string) (Store, error) {
	scheme, rest := splitScheme(uri)
	switch scheme {
	case "", "file":
		return openFile(rest)
	case "http", "https":
		return openHTTP(scheme, rest)
	case "s3":
		return openS3(ctx, rest)
	default:
		return nil, &ErrInvalidURI{URI: uri, Reason: "unsupported scheme " + scheme}
	}
}

func splitScheme(uri string) (scheme, rest string) {
	idx := strings.Index(uri, "://")
	if idx < 0 {
		return "", uri
	}
	return uri[:idx], uri[idx+3:]
}

// rootThroughZarr returns the prefix of path up through (and including)
// its last ".zarr" path segment, using sep as the path separator. It
// fails if no such segment exists.
func rootThroughZarr(path, sep string) (string, error) {
	search := path
	for {
		idx := strings.LastIndex(search, ".zarr")
		if idx < 0 {
			return "", fmt.Errorf("path does not contain a .zarr segment")
		}
		end := idx + len(".zarr")
		// ".zarr" may be followed by more of the same segment name, e.g.
		// "foo.zarr2" does not match; require the next rune, if any, to be
		// the separator (or "?"), else keep looking further left.
		if end == len(path) || path[end:end+1] == sep || path[end:end+1] == "?" {
			return path[:end], nil
		}
		search = path[:idx]
	}
}

func openFile(path string) (Store, error) {
	root, err := rootThroughZarr(path, "/")
	if err != nil {
		return nil, &ErrInvalidURI{URI: path, Reason: err.Error()}
	}
	return NewFilesystem(root), nil
}

func openHTTP(scheme, rest string) (Store, error) {
	full := scheme + "://" + rest
	path := rest
	if q := strings.IndexByte(path, '?'); q >= 0 {
		path = path[:q]
	}
	root, err := rootThroughZarr(path, "/")
	if err != nil {
		return nil, &ErrInvalidURI{URI: full, Reason: err.Error()}
	}
	return NewHTTP(scheme+"://"+root, nil), nil
}

func openS3(ctx context.Context, rest string) (Store, error) {
	full := "s3://" + rest
	if strings.Contains(strings.SplitN(rest, "/", 2)[0], "@") {
		return nil, &ErrInvalidURI{URI: full, Reason: "user-info is not supported in s3:// URIs; use profile or instance credentials"}
	}

	withoutQuery := rest
	query := ""
	if q := strings.IndexByte(rest, '?'); q >= 0 {
		withoutQuery = rest[:q]
		query = rest[q+1:]
	}

	segments := strings.Split(withoutQuery, "/")
	if len(segments) < 2 {
		return nil, &ErrInvalidURI{URI: full, Reason: "s3:// URI must have the form s3://host/bucket/key-prefix"}
	}
	host := segments[0]
	bucket := segments[1]
	keyPath := strings.Join(segments[2:], "/")

	root, err := rootThroughZarr(keyPath, "/")
	if err != nil {
		return nil, &ErrInvalidURI{URI: full, Reason: err.Error()}
	}

	opts := parseS3Options(query)
	client, err := NewS3Client(ctx, host, opts)
	if err != nil {
		return nil, err
	}
	return NewS3(client, bucket, root), nil
}

// parseS3Options parses the "&"/"="-delimited S3 query options named in
// spec.md §3/§4.1: anonymous, accessKeyId, secretAccessKey, profile,
// region. Unrecognized keys are ignored.
func parseS3Options(query string) S3CredentialOptions {
	var opts S3CredentialOptions
	if query == "" {
		return opts
	}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		key := kv[0]
		value := ""
		if len(kv) == 2 {
			value = kv[1]
		}
		switch key {
		case "anonymous":
			opts.Anonymous = value == "true"
		case "accessKeyId":
			opts.AccessKeyID = value
		case "secretAccessKey":
			opts.SecretAccessKey = value
		case "profile":
			opts.Profile = value
		case "region":
			opts.Region = value
		}
	}
	return opts
}
