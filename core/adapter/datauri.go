package adapter

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/coursewright/bindery/core/errors"
)

const defaultDataMediaType = "text/plain;charset=US-ASCII"

// ParseDataURI decodes a data: URI into its media type and payload.
// Both base64 and percent-encoded payloads are handled; an absent media
// type falls back to the RFC 2397 default.
func ParseDataURI(uri string) (mediaType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, errors.NewParse("data-uri", uri, "missing data: scheme")
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, errors.NewParse("data-uri", uri, "missing comma separator")
	}

	isBase64 := false
	if suffix, cut := strings.CutSuffix(meta, ";base64"); cut {
		meta = suffix
		isBase64 = true
	}
	mediaType = meta
	if mediaType == "" {
		mediaType = defaultDataMediaType
	}

	if isBase64 {
		data, err = base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return "", nil, errors.NewParse("data-uri", uri, err.Error())
		}
		return mediaType, data, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, errors.NewParse("data-uri", uri, err.Error())
	}
	return mediaType, []byte(decoded), nil
}
