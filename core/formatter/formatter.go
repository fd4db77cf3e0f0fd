// Package formatter renders content tree nodes and navigation documents to
// XHTML bytes. The adapters call it once per node and once for the
// navigation item; everything it emits is parseable by the adapter's
// HTML parsers, which keeps export and import symmetric.
package formatter

import (
	"fmt"
	"strings"

	"github.com/coursewright/bindery/core/encoding"
	"github.com/coursewright/bindery/core/model"
	"github.com/coursewright/bindery/core/xmlutil"
)

const xhtmlHeader = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
`

// HTML renders nodes to XHTML.
type HTML struct{}

// New creates an HTML formatter.
func New() *HTML {
	return &HTML{}
}

// Navigation renders the navigation document for root: a metadata block,
// the translucent-binding marker when root has no persistable id, a
// resources listing for binder-level resources, and the nav tree whose
// nesting mirrors the content tree. extensions maps node ids and ident
// hashes to item file extensions.
func (h *HTML) Navigation(root model.Parent, extensions map[string]string) ([]byte, error) {
	title := root.Metadata().Title()

	var b strings.Builder
	b.WriteString(xhtmlHeader)
	b.WriteString(fmt.Sprintf("<head>\n  <title>%s</title>\n</head>\n<body>\n", encoding.EscapeXML(title)))

	b.WriteString("  <div data-type=\"metadata\">\n")
	b.WriteString(fmt.Sprintf("    <h1 data-type=\"title\">%s</h1>\n", encoding.EscapeXML(title)))
	if root.Kind() == model.KindTranslucentBinder || root.ID() == "" {
		b.WriteString("    <span data-type=\"binding\" data-value=\"translucent\"></span>\n")
	}
	if ident := root.IdentHash(); ident != "" {
		b.WriteString(fmt.Sprintf("    <span data-type=\"document-id\" data-value=\"%s\"></span>\n",
			encoding.EscapeXMLAttr(ident)))
	}
	writeDescriptiveMetadata(&b, root.Metadata())
	b.WriteString("  </div>\n")

	if binder, ok := root.(*model.Binder); ok && len(binder.Resources) > 0 {
		b.WriteString("  <div data-type=\"resources\">\n    <ul>\n")
		for _, res := range binder.Resources {
			b.WriteString(fmt.Sprintf("      <li><a href=\"%s\">%s</a></li>\n",
				encoding.EscapeXMLAttr(res.ID), encoding.EscapeXML(res.Filename)))
		}
		b.WriteString("    </ul>\n  </div>\n")
	}

	b.WriteString("  <nav id=\"toc\">\n")
	writeNavList(&b, root, extensions, "    ")
	b.WriteString("  </nav>\n</body>\n</html>\n")
	return []byte(b.String()), nil
}

// writeDescriptiveMetadata emits one marker span per descriptive metadata
// key the node carries, so import can restore the full metadata set.
func writeDescriptiveMetadata(b *strings.Builder, md *model.Metadata) {
	for _, key := range model.DescriptiveMetadataKeys {
		value := md.GetString(key)
		if value == "" {
			continue
		}
		b.WriteString(fmt.Sprintf("    <span data-type=\"%s\" data-value=\"%s\"></span>\n",
			key, encoding.EscapeXMLAttr(value)))
	}
}

func writeNavList(b *strings.Builder, parent model.Parent, extensions map[string]string, indent string) {
	b.WriteString(indent + "<ol>\n")
	for _, child := range parent.Children() {
		title := encoding.EscapeXML(parent.TitleForNode(child))
		if sub, ok := child.(model.Parent); ok {
			b.WriteString(indent + "  <li>\n")
			b.WriteString(fmt.Sprintf("%s    <span>%s</span>\n", indent, title))
			writeNavList(b, sub, extensions, indent+"    ")
			b.WriteString(indent + "  </li>\n")
		} else {
			name := child.IdentHash() + extensions[child.ID()]
			b.WriteString(fmt.Sprintf("%s  <li><a href=\"%s\">%s</a></li>\n",
				indent, encoding.EscapeXMLAttr(name), title))
		}
	}
	b.WriteString(indent + "</ol>\n")
}

// Document renders a leaf node to a complete XHTML item. Document and
// CompositeDocument bodies carry the node's content; DocumentPointer
// renders a stub marked with a document-pointer element.
func (h *HTML) Document(node model.Node) ([]byte, error) {
	title := node.Metadata().Title()

	var b strings.Builder
	b.WriteString(xhtmlHeader)
	b.WriteString(fmt.Sprintf("<head>\n  <title>%s</title>\n</head>\n<body>\n", encoding.EscapeXML(title)))

	b.WriteString("  <div data-type=\"metadata\">\n")
	b.WriteString(fmt.Sprintf("    <h1 data-type=\"title\">%s</h1>\n", encoding.EscapeXML(title)))
	if ident := node.IdentHash(); ident != "" {
		b.WriteString(fmt.Sprintf("    <span data-type=\"document-id\" data-value=\"%s\"></span>\n",
			encoding.EscapeXMLAttr(ident)))
	}
	switch node.Kind() {
	case model.KindDocumentPointer:
		b.WriteString(fmt.Sprintf("    <span data-type=\"document-pointer\" data-value=\"%s\"></span>\n",
			encoding.EscapeXMLAttr(node.IdentHash())))
	case model.KindCompositeDocument:
		b.WriteString("    <span data-type=\"composite-document\" data-value=\"true\"></span>\n")
	}
	writeDescriptiveMetadata(&b, node.Metadata())
	b.WriteString("  </div>\n")

	switch n := node.(type) {
	case *model.Document:
		b.WriteString(bodyFragment(n.Content()))
	case *model.CompositeDocument:
		b.WriteString(bodyFragment(n.Content()))
	case *model.DocumentPointer:
		b.WriteString(fmt.Sprintf("  <p>Refers to the document hosted at <a href=\"%s\">%s</a>.</p>\n",
			encoding.EscapeXMLAttr("/contents/"+n.IdentHash()), encoding.EscapeXML(title)))
	default:
		return nil, fmt.Errorf("formatter: cannot render node kind %q", node.Kind())
	}

	b.WriteString("</body>\n</html>\n")
	return []byte(b.String()), nil
}

// bodyFragment extracts the renderable fragment from stored content: the
// inner XML of a body element when the content is a full document, the
// content as-is otherwise.
func bodyFragment(content []byte) string {
	doc, err := xmlutil.Parse(content)
	if err != nil {
		return string(content)
	}
	body, err := doc.XPathFirst("//body")
	if err == nil && body != nil {
		return body.InnerXML()
	}
	return string(content)
}
