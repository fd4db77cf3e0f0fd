package adapter

import (
	"log/slog"
	"strings"

	"github.com/coursewright/bindery/core/errors"
	"github.com/coursewright/bindery/core/model"
	"github.com/coursewright/bindery/core/xmlutil"
)

// Structural markers in a collated single-document book.
const (
	markerUnit      = "unit"
	markerChapter   = "chapter"
	markerPage      = "page"
	markerComposite = "composite-page"
)

// syntheticIDPrefix marks anchor ids that were rewritten to be unique
// across the collated document and must be restored on split.
const syntheticIDPrefix = "auto_"

// AdaptSingleHTML splits a collated single-document book into a content
// tree, deriving the title tree from the document's own structural
// markers.
func AdaptSingleHTML(data []byte, logger *slog.Logger) (*model.Binder, error) {
	doc, body, err := parseCollated(data)
	if err != nil {
		return nil, err
	}
	return splitParsed(body, deriveTitleTree(doc, body), logger)
}

// Split splits a collated single-document book against an externally
// parsed title tree. The tree must match the document's structural
// nesting level for level or the split fails.
func Split(data []byte, titleTree *model.Tree, logger *slog.Logger) (*model.Binder, error) {
	_, body, err := parseCollated(data)
	if err != nil {
		return nil, err
	}
	return splitParsed(body, titleTree, logger)
}

func parseCollated(data []byte) (*xmlutil.Document, *xmlutil.Node, error) {
	doc, err := xmlutil.Parse(data)
	if err != nil {
		return nil, nil, errors.NewParse("collated-html", "", err.Error())
	}
	body, err := doc.XPathFirst("//body")
	if err != nil || body == nil {
		return nil, nil, errors.NewParse("collated-html", "", "missing body element")
	}
	return doc, body, nil
}

type splitState struct {
	// idents maps a page marker's local id attribute to the ident hash
	// of the document it becomes.
	idents map[string]string
	logger *slog.Logger
}

func splitParsed(body *xmlutil.Node, titleTree *model.Tree, logger *slog.Logger) (*model.Binder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	st := &splitState{idents: map[string]string{}, logger: logger}
	indexPages(body, st)
	fixupLinks(body, st)

	metadata := model.MetadataFromPairs("title", titleTree.Title)
	id := titleTree.ID
	if id == model.TranslucentBinderID {
		id = ""
	}
	if docID, version := model.SplitIdent(id); version != "" {
		metadata.Set("document-id", id)
		metadata.Set("version", version)
		id = docID
	}
	binder := model.NewBinder(id, metadata)

	if err := buildLevel(binder, body, titleTree.Contents, st); err != nil {
		return nil, err
	}
	return binder, nil
}

// structuralChildren returns the direct child elements carrying one of
// the structural markers.
func structuralChildren(elem *xmlutil.Node) []*xmlutil.Node {
	var out []*xmlutil.Node
	for _, child := range elem.Children() {
		switch child.Attr("data-type") {
		case markerUnit, markerChapter, markerPage, markerComposite:
			out = append(out, child)
		}
	}
	return out
}

// documentTitle returns the marker's own title: a direct document-title
// child, falling back to the first descendant carrying the marker.
func documentTitle(elem *xmlutil.Node) string {
	if t, err := elem.XPathFirst(`*[@data-type="document-title"]`); err == nil && t != nil {
		return t.Text()
	}
	if t, err := elem.XPathFirst(`.//*[@data-type="document-title"]`); err == nil && t != nil {
		return t.Text()
	}
	return ""
}

// pageIdent returns a page marker's ident hash: the embedded document id
// when present, else its local id attribute.
func pageIdent(elem *xmlutil.Node) string {
	if idElem, err := elem.XPathFirst(`.//*[@data-type="document-id"]`); err == nil && idElem != nil {
		if ident := idElem.Attr("data-value"); ident != "" {
			return ident
		}
	}
	return elem.Attr("id")
}

// indexPages records every page marker's local id and eventual ident
// hash before any content is rewritten.
func indexPages(body *xmlutil.Node, st *splitState) {
	pages, err := body.XPath(`.//*[@data-type="page" or @data-type="composite-page"]`)
	if err != nil {
		return
	}
	for _, page := range pages {
		localID := page.Attr("id")
		if localID == "" {
			continue
		}
		st.idents[localID] = pageIdent(page)
	}
}

// fixupLinks undoes the collation-time link rewrites, page by page:
// synthetic anchor ids lose their page prefix, fragment links to a
// synthetic anchor become plain fragments (same page) or cross-document
// links (other page), and fragment links naming a page directly become
// cross-document links.
func fixupLinks(body *xmlutil.Node, st *splitState) {
	pages, err := body.XPath(`.//*[@data-type="page" or @data-type="composite-page"]`)
	if err != nil {
		return
	}
	for _, page := range pages {
		localID := page.Attr("id")
		prefix := syntheticIDPrefix + localID + "_"

		anchors, err := page.XPath(`.//*[starts-with(@id, "` + syntheticIDPrefix + `")]`)
		if err == nil {
			for _, el := range anchors {
				if rest, ok := strings.CutPrefix(el.Attr("id"), prefix); ok {
					el.SetAttr("id", rest)
				}
			}
		}

		links, err := page.XPath(`.//*[starts-with(@href, "#")]`)
		if err != nil {
			continue
		}
		for _, link := range links {
			target := strings.TrimPrefix(link.Attr("href"), "#")
			if rewritten, ok := st.resolveFragment(target, localID); ok {
				link.SetAttr("href", rewritten)
			}
		}
	}
}

// resolveFragment rewrites one fragment target relative to the page that
// contains the link. The boolean reports whether a rewrite applies.
// A synthetic target is matched against the containing page first, then
// against the longest page id that prefixes it, so a page id that is a
// prefix of another cannot steal the match.
func (st *splitState) resolveFragment(target, containingPage string) (string, bool) {
	if rest, ok := strings.CutPrefix(target, syntheticIDPrefix); ok {
		if anchor, ok := strings.CutPrefix(rest, containingPage+"_"); ok {
			if _, known := st.idents[containingPage]; known {
				return "#" + anchor, true
			}
		}
		var bestPage, bestAnchor string
		for pageID := range st.idents {
			if anchor, ok := strings.CutPrefix(rest, pageID+"_"); ok && len(pageID) > len(bestPage) {
				bestPage, bestAnchor = pageID, anchor
			}
		}
		if bestPage != "" {
			return "/contents/" + st.idents[bestPage] + "#" + bestAnchor, true
		}
		st.logger.Warn("synthetic link targets no known page", "target", target)
		return "", false
	}
	if ident, ok := st.idents[target]; ok {
		return "/contents/" + ident, true
	}
	return "", false
}

// buildLevel constructs one nesting level, pairing structural children
// with title-tree entries positionally. The counts must agree.
func buildLevel(parent model.Parent, elem *xmlutil.Node, entries []*model.Tree, st *splitState) error {
	kids := structuralChildren(elem)
	if len(kids) != len(entries) {
		return &StructureMismatchError{
			Expected: len(entries),
			Actual:   len(kids),
			Detail:   "under " + describeLevel(parent),
		}
	}

	for i, kid := range kids {
		entry := entries[i]
		var child model.Node
		switch kid.Attr("data-type") {
		case markerUnit, markerChapter:
			sub := model.NewTranslucentBinder(model.MetadataFromPairs("title", documentTitle(kid)))
			if err := buildLevel(sub, kid, entry.Contents, st); err != nil {
				return err
			}
			child = sub
		case markerPage:
			page, err := buildPage(kid, false)
			if err != nil {
				return err
			}
			child = page
		case markerComposite:
			page, err := buildPage(kid, true)
			if err != nil {
				return err
			}
			child = page
		}
		if err := model.Append(parent, child); err != nil {
			return err
		}
		if entry.Title != "" && entry.Title != child.Metadata().Title() {
			parent.SetTitleForNode(child, entry.Title)
		}
	}
	return nil
}

func describeLevel(parent model.Parent) string {
	if title := parent.Metadata().Title(); title != "" {
		return title
	}
	return string(parent.Kind())
}

// buildPage turns one page marker into a document. The embedded metadata
// block and title marker are removed from the stored body; the marker's
// id is kept so intra-page fragment links still resolve.
func buildPage(elem *xmlutil.Node, composite bool) (model.Node, error) {
	localID := elem.Attr("id")
	title := documentTitle(elem)
	if title == "" {
		return nil, errors.NewParse("collated-html", localID, "page has no title marker")
	}

	metadata := model.MetadataFromPairs("title", title)
	id := localID
	if idElem, err := elem.XPathFirst(`.//*[@data-type="document-id"]`); err == nil && idElem != nil {
		ident := idElem.Attr("data-value")
		metadata.Set("document-id", ident)
		docID, version := model.SplitIdent(ident)
		if version != "" {
			metadata.Set("version", version)
		}
		if docID != "" {
			id = docID
		}
	}

	if blocks, err := elem.XPath(`.//*[@data-type="metadata"]`); err == nil {
		for _, b := range blocks {
			b.Remove()
		}
	}
	if t, err := elem.XPathFirst(`.//*[@data-type="document-title"]`); err == nil && t != nil {
		t.Remove()
	}

	content := []byte(elem.OuterXML())
	if composite {
		return model.NewCompositeDocument(id, content, metadata), nil
	}
	return model.NewDocument(id, content, metadata), nil
}

// deriveTitleTree reads the title tree implied by the collated document
// itself: book title and id from the body-level metadata, one entry per
// structural marker below.
func deriveTitleTree(doc *xmlutil.Document, body *xmlutil.Node) *model.Tree {
	root := &model.Tree{ID: "book"}

	if t, err := body.XPathFirst(`*[@data-type="metadata"]//*[@data-type="document-title"]`); err == nil && t != nil {
		root.Title = t.Text()
	} else if t, err := body.XPathFirst(`*[@data-type="document-title"]`); err == nil && t != nil {
		root.Title = t.Text()
	} else if t, err := doc.XPathFirst("//head/title"); err == nil && t != nil {
		root.Title = t.Text()
	}
	if idElem, err := body.XPathFirst(`*[@data-type="metadata"]//*[@data-type="document-id"]`); err == nil && idElem != nil {
		if ident := idElem.Attr("data-value"); ident != "" {
			root.ID = ident
		}
	}

	root.Contents = deriveTitleEntries(body)
	return root
}

func deriveTitleEntries(elem *xmlutil.Node) []*model.Tree {
	var out []*model.Tree
	for _, kid := range structuralChildren(elem) {
		switch kid.Attr("data-type") {
		case markerUnit, markerChapter:
			out = append(out, &model.Tree{
				ID:       model.TranslucentBinderID,
				Title:    documentTitle(kid),
				Contents: deriveTitleEntries(kid),
			})
		default:
			out = append(out, &model.Tree{ID: pageIdent(kid), Title: documentTitle(kid)})
		}
	}
	return out
}
