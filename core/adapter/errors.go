package adapter

import "fmt"

// UnresolvableMediaTypeError reports a document whose media type has no
// known file extension, making it impossible to name the packaged item.
type UnresolvableMediaTypeError struct {
	NodeID    string
	MediaType string
}

func (e *UnresolvableMediaTypeError) Error() string {
	return fmt.Sprintf("no file extension known for media type %q on node %q", e.MediaType, e.NodeID)
}

// StructureMismatchError reports a divergence between a navigation tree
// and the content it claims to describe.
type StructureMismatchError struct {
	Expected int
	Actual   int
	Detail   string
}

func (e *StructureMismatchError) Error() string {
	return fmt.Sprintf("structure mismatch: expected %d entries, found %d (%s)", e.Expected, e.Actual, e.Detail)
}
