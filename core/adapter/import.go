package adapter

import (
	"log/slog"
	"path"
	"strings"

	"github.com/coursewright/bindery/core/container"
	"github.com/coursewright/bindery/core/errors"
	"github.com/coursewright/bindery/core/model"
	"github.com/coursewright/bindery/core/xmlutil"
)

// AdaptPackage rebuilds the content tree a package was exported from. The
// navigation item supplies the structure and binder metadata, content
// items become documents of the kind their markers declare, and resource
// items referenced from document bodies are re-attached and re-bound.
func AdaptPackage(pkg *container.Package, logger *slog.Logger) (model.Parent, error) {
	if logger == nil {
		logger = slog.Default()
	}

	metadata := pkg.Metadata.Clone()
	for _, key := range container.RequiredMetadataKeys {
		if _, ok := metadata.Get(key); !ok {
			return nil, &container.MissingMetadataError{Key: key, Package: pkg.Name}
		}
	}

	nav := pkg.Navigation()
	navName := strings.TrimSuffix(nav.Name, path.Ext(nav.Name))
	tree, err := ParseNavigationHTML(nav.Data, navName)
	if err != nil {
		return nil, err
	}

	navDoc, err := xmlutil.Parse(nav.Data)
	if err != nil {
		return nil, err
	}
	navMeta, err := parseMetadata(navDoc, nav.Name)
	if err != nil {
		return nil, err
	}
	for _, key := range navMeta.Keys() {
		value, _ := navMeta.Get(key)
		metadata.Set(key, value)
	}

	var binder model.Parent
	if tree.ID == model.TranslucentBinderID {
		binder = model.NewTranslucentBinder(metadata)
	} else {
		b := model.NewBinder(idFromMetadata(metadata), metadata)
		b.Resources = binderResources(navDoc, pkg, logger)
		binder = b
	}

	for _, entry := range tree.Contents {
		if err := appendTreeNode(binder, entry, pkg, logger); err != nil {
			return nil, err
		}
	}
	return binder, nil
}

// binderResources resolves the nav document's resources listing against
// the package. Entries the package cannot satisfy are dropped.
func binderResources(navDoc *xmlutil.Document, pkg *container.Package, logger *slog.Logger) []*model.Resource {
	var out []*model.Resource
	for _, entry := range parseResources(navDoc) {
		item, err := pkg.GrabByName(entry.id)
		if err != nil {
			logger.Warn("resources listing names a missing item", "id", entry.id)
			continue
		}
		out = append(out, model.NewResource(entry.id, item.Data, item.MediaType, entry.filename))
	}
	return out
}

// appendTreeNode converts one raw tree entry into a model node under
// parent, recording a title override when the tree's caption differs
// from the node's own title.
func appendTreeNode(parent model.Parent, entry *model.Tree, pkg *container.Package, logger *slog.Logger) error {
	var child model.Node
	if entry.IsCollection() {
		sub := model.NewTranslucentBinder(model.MetadataFromPairs("title", entry.Title))
		for _, nested := range entry.Contents {
			if err := appendTreeNode(sub, nested, pkg, logger); err != nil {
				return err
			}
		}
		child = sub
	} else {
		item, err := pkg.GrabByName(entry.ID)
		if err != nil {
			return err
		}
		child, err = documentFromItem(item, pkg, logger)
		if err != nil {
			return err
		}
	}

	if err := model.Append(parent, child); err != nil {
		return err
	}
	if entry.Title != "" && entry.Title != child.Metadata().Title() {
		parent.SetTitleForNode(child, entry.Title)
	}
	return nil
}

// documentFromItem turns a rendered content item back into the node kind
// its markers declare. The rendered metadata block is stripped from the
// body so round trips do not accumulate copies of it.
func documentFromItem(item *container.Item, pkg *container.Package, logger *slog.Logger) (model.Node, error) {
	doc, err := xmlutil.Parse(item.Data)
	if err != nil {
		logger.Error("content item does not parse", "item", item.Name, "error", err)
		return nil, errors.NewParse("content", item.Name, err.Error())
	}
	metadata, err := parseMetadata(doc, item.Name)
	if err != nil {
		return nil, err
	}

	id := idFromMetadata(metadata)
	if id == "" {
		id = strings.TrimSuffix(item.Name, path.Ext(item.Name))
	}

	if isDocumentPointer(doc) {
		return model.NewDocumentPointer(id, metadata), nil
	}
	composite := isCompositeDocument(doc)

	stripMetadataBlocks(doc)
	content := doc.Serialize()

	var node model.Node
	var body *model.Document
	if composite {
		cd := model.NewCompositeDocument(id, content, metadata)
		node, body = cd, &cd.Document
	} else {
		d := model.NewDocument(id, content, metadata)
		node, body = d, d
	}
	body.MediaType = item.MediaType

	attachResources(body, pkg, logger)
	return node, nil
}

func stripMetadataBlocks(doc *xmlutil.Document) {
	nodes, err := doc.XPath(`//*[@data-type="metadata"]`)
	if err != nil {
		return
	}
	for _, n := range nodes {
		n.Remove()
	}
}

// attachResources re-binds internal references that point into the
// package's resources directory. References the package cannot satisfy
// stay as they are.
func attachResources(doc *model.Document, pkg *container.Package, logger *slog.Logger) {
	byID := map[string]*model.Resource{}
	for _, ref := range doc.References() {
		if ref.RemoteType() != model.RefInternal {
			continue
		}
		uri := ref.URI()
		if !strings.Contains(uri, "/resources/") {
			continue
		}
		name := path.Base(uri)
		res, ok := byID[name]
		if !ok {
			item, err := pkg.GrabByName(name)
			if err != nil {
				logger.Warn("reference names a missing resource", "uri", uri, "document", doc.ID())
				continue
			}
			res = model.NewResource(name, item.Data, item.MediaType, name)
			byID[name] = res
			doc.AddResource(res)
		}
		if err := ref.Bind(res, ResourceTemplate); err != nil {
			logger.Warn("could not bind reference", "uri", uri, "error", err)
		}
	}
}
