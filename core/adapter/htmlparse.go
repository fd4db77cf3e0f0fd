package adapter

import (
	"github.com/coursewright/bindery/core/errors"
	"github.com/coursewright/bindery/core/model"
	"github.com/coursewright/bindery/core/xmlutil"
)

// ParseNavigationHTML parses a navigation document into a raw tree. The
// name is assigned as the top-level tree id unless the document carries a
// translucent binding marker, in which case the placeholder id is used.
func ParseNavigationHTML(data []byte, name string) (*model.Tree, error) {
	doc, err := xmlutil.Parse(data)
	if err != nil {
		return nil, errors.NewParse("navigation", name, err.Error())
	}

	id := name
	binding, err := doc.XPathFirst(`//*[@data-type="binding"]`)
	if err == nil && binding != nil && binding.Attr("data-value") == "translucent" {
		id = model.TranslucentBinderID
	}

	titleElem, err := doc.XPathFirst(`//*[@data-type="title"]`)
	if err != nil || titleElem == nil {
		return nil, errors.NewParse("navigation", name, "missing title element")
	}

	nav, err := doc.XPathFirst("//nav")
	if err != nil || nav == nil {
		return nil, errors.NewParse("navigation", name, "missing nav element")
	}

	return &model.Tree{
		ID:       id,
		Title:    titleElem.Text(),
		Contents: navToTree(nav),
	}, nil
}

// navToTree walks a nav list: li entries holding a nested ol are subtrees
// identified by the placeholder id, plain entries link to an item by name.
func navToTree(root *xmlutil.Node) []*model.Tree {
	out := []*model.Tree{}
	items, err := root.XPath("ol/li")
	if err != nil {
		return out
	}
	for _, li := range items {
		sub, err := li.XPathFirst("ol")
		if err == nil && sub != nil {
			title := ""
			if span, err := li.XPathFirst("span"); err == nil && span != nil {
				title = span.Text()
			}
			out = append(out, &model.Tree{
				ID:       model.TranslucentBinderID,
				Title:    title,
				Contents: navToTree(li),
			})
			continue
		}
		a, err := li.XPathFirst("a")
		if err != nil || a == nil {
			continue
		}
		out = append(out, &model.Tree{ID: a.Attr("href"), Title: a.Text()})
	}
	return out
}

// metadataQuerier is satisfied by both whole documents and subtree nodes.
type metadataQuerier interface {
	XPathFirst(expr string) (*xmlutil.Node, error)
}

// parseMetadata extracts node metadata from parsed XHTML. Title is
// required; the document id (an ident hash) and derived version are
// included when present.
func parseMetadata(q metadataQuerier, name string) (*model.Metadata, error) {
	titleElem, err := q.XPathFirst(`.//*[@data-type="title"]`)
	if err != nil || titleElem == nil {
		return nil, errors.NewParse("metadata", name, "missing title element")
	}

	metadata := model.NewMetadata()
	metadata.Set("title", titleElem.Text())

	if idElem, err := q.XPathFirst(`.//*[@data-type="document-id"]`); err == nil && idElem != nil {
		ident := idElem.Attr("data-value")
		metadata.Set("document-id", ident)
		if _, version := model.SplitIdent(ident); version != "" {
			metadata.Set("version", version)
		}
	}
	for _, key := range model.DescriptiveMetadataKeys {
		elem, err := q.XPathFirst(`.//*[@data-type="` + key + `"]`)
		if err != nil || elem == nil {
			continue
		}
		if value := elem.Attr("data-value"); value != "" {
			metadata.Set(key, value)
		}
	}
	return metadata, nil
}

// idFromMetadata returns the node id recorded in metadata, or "".
func idFromMetadata(metadata *model.Metadata) string {
	id, _ := model.SplitIdent(metadata.GetString("document-id"))
	return id
}

// isDocumentPointer is the best-effort pointer probe: a parsed body
// carrying a document-pointer marker element.
func isDocumentPointer(doc *xmlutil.Document) bool {
	node, err := doc.XPathFirst(`//*[@data-type="document-pointer"]`)
	return err == nil && node != nil
}

// isCompositeDocument reports whether the parsed body carries the
// composite-document marker emitted for split-and-collated pages.
func isCompositeDocument(doc *xmlutil.Document) bool {
	node, err := doc.XPathFirst(`//*[@data-type="composite-document"]`)
	return err == nil && node != nil
}

// resourceEntry is one row of a binder document's resources listing.
type resourceEntry struct {
	id       string
	filename string
}

// parseResources extracts the resources listing from a binder document.
func parseResources(doc *xmlutil.Document) []resourceEntry {
	nodes, err := doc.XPath(`//*[@data-type="resources"]//a`)
	if err != nil {
		return nil
	}
	var out []resourceEntry
	for _, a := range nodes {
		out = append(out, resourceEntry{id: a.Attr("href"), filename: a.Text()})
	}
	return out
}
