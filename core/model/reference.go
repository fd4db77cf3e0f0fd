package model

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/coursewright/bindery/core/errors"
	"github.com/coursewright/bindery/core/xmlutil"
)

// RemoteType classifies where a reference's target lives.
type RemoteType string

// Reference remote types.
const (
	// RefInternal targets a resource or document within the same container.
	RefInternal RemoteType = "internal"
	// RefInline targets an embedded data: URI that must be materialized
	// into a resource at packaging time.
	RefInline RemoteType = "inline"
	// RefExternal targets content outside the container; never rewritten.
	RefExternal RemoteType = "external"
)

// ClassifyURI classifies a raw URI string. data: URIs are inline, URIs with
// a scheme or host are external, and everything else is internal.
func ClassifyURI(uri string) RemoteType {
	if strings.HasPrefix(uri, "data:") {
		return RefInline
	}
	u, err := url.Parse(uri)
	if err != nil {
		return RefExternal
	}
	if u.Scheme != "" || u.Host != "" {
		return RefExternal
	}
	return RefInternal
}

// AlreadyBoundError is returned when a bound reference is re-bound to a
// different resource.
type AlreadyBoundError struct {
	URI        string
	BoundID    string
	ResourceID string
}

func (e *AlreadyBoundError) Error() string {
	return fmt.Sprintf("reference %q already bound to %q, cannot rebind to %q",
		e.URI, e.BoundID, e.ResourceID)
}

func (e *AlreadyBoundError) Unwrap() error {
	return errors.ErrAlreadyExists
}

// Reference is a typed, rewritable link embedded in a document's body. It
// wraps the element attribute that carries the link so rewrites land in the
// document's serialized form.
type Reference struct {
	elem       *xmlutil.Node
	attr       string
	remoteType RemoteType
	bound      *Resource
}

// URI returns the reference's current serialized URI.
func (r *Reference) URI() string {
	return r.elem.Attr(r.attr)
}

// RemoteType returns the reference's current classification.
func (r *Reference) RemoteType() RemoteType {
	return r.remoteType
}

// Bound returns the resource this reference is bound to, or nil.
func (r *Reference) Bound() *Resource {
	return r.bound
}

// SetURI rewrites the serialized URI and reclassifies the reference.
func (r *Reference) SetURI(uri string) {
	r.elem.SetAttr(r.attr, uri)
	r.remoteType = ClassifyURI(uri)
}

// Bind resolves the reference to resource and rewrites its serialized URI
// to template with "{}" replaced by the resource id. A reference binds at
// most once: re-binding with the same resource is a no-op, re-binding with
// a different one is an AlreadyBoundError. After binding the reference is
// internal regardless of its prior type.
func (r *Reference) Bind(resource *Resource, template string) error {
	if r.bound != nil {
		if r.bound.ID == resource.ID {
			return nil
		}
		return &AlreadyBoundError{
			URI:        r.URI(),
			BoundID:    r.bound.ID,
			ResourceID: resource.ID,
		}
	}
	r.bound = resource
	r.elem.SetAttr(r.attr, strings.Replace(template, "{}", resource.ID, 1))
	r.remoteType = RefInternal
	return nil
}

// discoverReferences scans a parsed document for elements carrying href or
// src attributes, in document order.
func discoverReferences(doc *xmlutil.Document) []*Reference {
	nodes, err := doc.XPath("//*[@href or @src]")
	if err != nil {
		return nil
	}
	var refs []*Reference
	for _, node := range nodes {
		for _, attr := range []string{"href", "src"} {
			if !node.HasAttr(attr) {
				continue
			}
			refs = append(refs, &Reference{
				elem:       node,
				attr:       attr,
				remoteType: ClassifyURI(node.Attr(attr)),
			})
		}
	}
	return refs
}
