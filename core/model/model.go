// Package model holds the in-memory content tree: binders group ordered
// child nodes, documents carry serialized XHTML bodies with outgoing
// references, and resources are the binary assets those references target.
package model

import (
	"fmt"

	"github.com/coursewright/bindery/core/errors"
	"github.com/coursewright/bindery/core/xmlutil"
)

// TranslucentBinderID is the reserved placeholder id used for translucent
// binders in tree representations. Real ids never collide with it because
// they carry a package-issued identifier or a version separator.
const TranslucentBinderID = "subcol"

// DefaultDocumentMediaType is the media type of rendered content documents.
const DefaultDocumentMediaType = "application/xhtml+xml"

// NodeKind is the variant tag of a content tree node.
type NodeKind string

// Node kinds.
const (
	KindBinder            NodeKind = "binder"
	KindTranslucentBinder NodeKind = "translucent-binder"
	KindDocument          NodeKind = "document"
	KindCompositeDocument NodeKind = "composite-document"
	KindDocumentPointer   NodeKind = "document-pointer"
)

// Node is a content tree node. Variants are Binder, TranslucentBinder,
// Document, CompositeDocument, and DocumentPointer.
type Node interface {
	// Kind returns the variant tag.
	Kind() NodeKind
	// ID returns the node's identifier, or "" when the node has none.
	ID() string
	// IdentHash returns "{id}@{version}" when both are present, the bare id
	// when only the id is, and "" otherwise.
	IdentHash() string
	// Metadata returns the node's metadata. Title is always present.
	Metadata() *Metadata
}

// Parent is a collection-bearing node (Binder or TranslucentBinder).
type Parent interface {
	Node
	// Children returns the ordered child nodes.
	Children() []Node
	// SetTitleForNode records a display title for child used only within
	// this parent's navigation context.
	SetTitleForNode(child Node, title string)
	// TitleForNode returns the recorded override for child, falling back to
	// the child's own metadata title.
	TitleForNode(child Node) string
}

// InvalidNodeError is returned when children are appended to a node that
// cannot hold them.
type InvalidNodeError struct {
	Kind NodeKind
}

func (e *InvalidNodeError) Error() string {
	return fmt.Sprintf("node kind %q cannot hold children", e.Kind)
}

func (e *InvalidNodeError) Unwrap() error {
	return errors.ErrInvalidInput
}

// Append adds child to parent. It is the only way children enter a tree and
// fails with InvalidNodeError when parent is not a collection-bearing
// variant.
func Append(parent Node, child Node) error {
	switch p := parent.(type) {
	case *Binder:
		p.append(child)
	case *TranslucentBinder:
		p.append(child)
	default:
		return &InvalidNodeError{Kind: parent.Kind()}
	}
	return nil
}

// baseNode carries the fields shared by every variant.
type baseNode struct {
	id       string
	version  string
	metadata *Metadata
}

func (b *baseNode) ID() string { return b.id }

func (b *baseNode) IdentHash() string {
	if b.id == "" {
		return ""
	}
	if b.version != "" {
		return b.id + "@" + b.version
	}
	return b.id
}

func (b *baseNode) Metadata() *Metadata { return b.metadata }

// Version returns the node's version token, or "".
func (b *baseNode) Version() string { return b.version }

func newBase(id string, metadata *Metadata) baseNode {
	if metadata == nil {
		metadata = NewMetadata()
	}
	version := metadata.GetString("version")
	return baseNode{id: id, version: version, metadata: metadata}
}

// collection holds ordered children plus the per-parent title override
// table, keyed by child index.
type collection struct {
	nodes     []Node
	overrides map[int]string
}

func (c *collection) append(child Node) {
	c.nodes = append(c.nodes, child)
}

func (c *collection) children() []Node {
	out := make([]Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

func (c *collection) indexOf(child Node) int {
	for i, n := range c.nodes {
		if n == child {
			return i
		}
	}
	return -1
}

func (c *collection) setTitle(child Node, title string) {
	i := c.indexOf(child)
	if i < 0 {
		return
	}
	if c.overrides == nil {
		c.overrides = make(map[int]string)
	}
	c.overrides[i] = title
}

func (c *collection) titleFor(child Node) string {
	if i := c.indexOf(child); i >= 0 {
		if title, ok := c.overrides[i]; ok {
			return title
		}
	}
	return child.Metadata().Title()
}

// Binder is a persistable collection node grouping ordered children.
type Binder struct {
	baseNode
	collection
	// Resources declared at the binder level (e.g. cover images, rulesets).
	Resources []*Resource
}

// NewBinder creates a Binder with the given id and metadata.
func NewBinder(id string, metadata *Metadata) *Binder {
	return &Binder{baseNode: newBase(id, metadata)}
}

func (b *Binder) Kind() NodeKind { return KindBinder }

// Children returns the ordered child nodes.
func (b *Binder) Children() []Node { return b.children() }

// SetTitleForNode records a navigation title override for child.
func (b *Binder) SetTitleForNode(child Node, title string) { b.setTitle(child, title) }

// TitleForNode returns the override for child, or the child's own title.
func (b *Binder) TitleForNode(child Node) string { return b.titleFor(child) }

// TranslucentBinder is a non-persistable, id-less collection node used
// purely for grouping and navigation.
type TranslucentBinder struct {
	baseNode
	collection
}

// NewTranslucentBinder creates a TranslucentBinder with the given metadata.
func NewTranslucentBinder(metadata *Metadata) *TranslucentBinder {
	return &TranslucentBinder{baseNode: newBase("", metadata)}
}

func (b *TranslucentBinder) Kind() NodeKind { return KindTranslucentBinder }

// Children returns the ordered child nodes.
func (b *TranslucentBinder) Children() []Node { return b.children() }

// SetTitleForNode records a navigation title override for child.
func (b *TranslucentBinder) SetTitleForNode(child Node, title string) { b.setTitle(child, title) }

// TitleForNode returns the override for child, or the child's own title.
func (b *TranslucentBinder) TitleForNode(child Node) string { return b.titleFor(child) }

// Document is a leaf node with a serialized XHTML body and outgoing
// references. The body is parsed on construction so references can be
// discovered and rewritten in place; Content re-serializes the parsed tree.
type Document struct {
	baseNode
	MediaType string
	Resources []*Resource

	doc  *xmlutil.Document
	raw  []byte
	refs []*Reference
}

// NewDocument creates a Document from serialized content. When the content
// does not parse as XML it is kept opaque and the document exposes no
// references.
func NewDocument(id string, content []byte, metadata *Metadata) *Document {
	d := &Document{
		baseNode:  newBase(id, metadata),
		MediaType: DefaultDocumentMediaType,
	}
	d.setContent(content)
	return d
}

func (d *Document) Kind() NodeKind { return KindDocument }

// Content returns the serialized body, reflecting any reference rewrites.
func (d *Document) Content() []byte {
	if d.doc != nil {
		return d.doc.Serialize()
	}
	return d.raw
}

// SetContent replaces the body and re-discovers references.
func (d *Document) SetContent(content []byte) {
	d.setContent(content)
}

func (d *Document) setContent(content []byte) {
	d.doc = nil
	d.raw = content
	d.refs = nil
	doc, err := xmlutil.Parse(content)
	if err != nil {
		return
	}
	d.doc = doc
	d.refs = discoverReferences(doc)
}

// References returns the document's outgoing references in document order.
func (d *Document) References() []*Reference {
	return d.refs
}

// Body returns the parsed content tree, or nil when the content is opaque.
// Mutations through the returned document are reflected by Content.
func (d *Document) Body() *xmlutil.Document {
	return d.doc
}

// AddResource declares a resource on the document.
func (d *Document) AddResource(res *Resource) {
	d.Resources = append(d.Resources, res)
}

// CompositeDocument is a Document assembled from multiple source pages
// during single-document splitting.
type CompositeDocument struct {
	Document
}

// NewCompositeDocument creates a CompositeDocument from serialized content.
func NewCompositeDocument(id string, content []byte, metadata *Metadata) *CompositeDocument {
	return &CompositeDocument{Document: *NewDocument(id, content, metadata)}
}

func (d *CompositeDocument) Kind() NodeKind { return KindCompositeDocument }

// DocumentPointer is a leaf node referring to a document hosted outside
// this container. Pointers carry no references or resources of their own.
type DocumentPointer struct {
	baseNode
	MediaType string
}

// NewDocumentPointer creates a DocumentPointer.
func NewDocumentPointer(id string, metadata *Metadata) *DocumentPointer {
	return &DocumentPointer{
		baseNode:  newBase(id, metadata),
		MediaType: DefaultDocumentMediaType,
	}
}

func (p *DocumentPointer) Kind() NodeKind { return KindDocumentPointer }
