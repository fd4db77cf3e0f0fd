// Package mimetypes maps media types to file extensions for container item
// naming.
package mimetypes

import (
	"mime"
	"strings"
)

// Unknown is returned when no extension is known for a media type.
const Unknown = "unknown"

// extensions covers the media types that appear in content containers.
// The stdlib mime package is consulted for anything not listed here.
var extensions = map[string]string{
	"application/xhtml+xml": ".xhtml",
	"text/html":             ".html",
	"text/css":              ".css",
	"image/png":             ".png",
	"image/jpeg":            ".jpg",
	"image/gif":             ".gif",
	"image/svg+xml":         ".svg",
	"application/xml":       ".xml",
	"text/plain":            ".txt",
	"application/pdf":       ".pdf",
	"font/otf":              ".otf",
	"font/ttf":              ".ttf",
}

// GuessExtension returns the preferred file extension (with leading dot) for
// the given media type, or Unknown when none is known. Parameters on the
// media type (e.g. "; charset=utf-8") are ignored.
func GuessExtension(mediaType string) string {
	base := mediaType
	if parsed, _, err := mime.ParseMediaType(mediaType); err == nil {
		base = parsed
	}
	base = strings.ToLower(strings.TrimSpace(base))

	if ext, ok := extensions[base]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(base); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return Unknown
}
