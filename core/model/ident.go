package model

import "strings"

// SplitIdent splits an ident hash of the form "{id}@{version}" into its id
// and version parts. A bare id yields an empty version.
func SplitIdent(ident string) (id, version string) {
	if i := strings.LastIndex(ident, "@"); i >= 0 {
		return ident[:i], ident[i+1:]
	}
	return ident, ""
}
