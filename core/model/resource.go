package model

import (
	"bytes"
	"encoding/hex"
	"io"

	"github.com/zeebo/blake3"
)

// Resource is a binary asset (image, stylesheet, etc.) referenced by one or
// more documents. Identity is by ID; two nodes may reference the same
// resource ID and deduplicate to a single container item at export time.
type Resource struct {
	// ID is the stable name of the resource, typically a filename.
	ID string
	// MediaType is the resource's media type (e.g. "image/png").
	MediaType string
	// Filename is the display filename; defaults to ID.
	Filename string

	open func() (io.ReadCloser, error)
}

// NewResource creates a byte-backed resource. The data may be opened any
// number of times; each Open returns an independent reader.
func NewResource(id string, data []byte, mediaType, filename string) *Resource {
	if filename == "" {
		filename = id
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return &Resource{
		ID:        id,
		MediaType: mediaType,
		Filename:  filename,
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(copied)), nil
		},
	}
}

// NewResourceFromOpener creates a resource whose bytes come from an external
// store. The opener must support being called more than once per export or
// import pass.
func NewResourceFromOpener(id, mediaType, filename string, open func() (io.ReadCloser, error)) *Resource {
	if filename == "" {
		filename = id
	}
	return &Resource{ID: id, MediaType: mediaType, Filename: filename, open: open}
}

// Open returns a reader over the resource bytes. Callers must close it.
func (r *Resource) Open() (io.ReadCloser, error) {
	return r.open()
}

// ReadAll opens the resource and reads it fully.
func (r *Resource) ReadAll() ([]byte, error) {
	rc, err := r.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// ContentHash returns a short stable BLAKE3 hex digest of data, used for
// generated resource ids and fallback package identifiers.
func ContentHash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:12])
}
