package adapter

import (
	"encoding/json"
	"log/slog"
	"path"

	"github.com/coursewright/bindery/core/container"
	"github.com/coursewright/bindery/core/formatter"
	"github.com/coursewright/bindery/core/mimetypes"
	"github.com/coursewright/bindery/core/model"
)

// ResourceTemplate is the URI shape internal references are rewritten to
// when they bind to a packaged resource.
const ResourceTemplate = "../resources/{}"

// Export renders a content tree into a package: one navigation item, one
// rendered item per document and pointer, and one item per resource
// reachable from the tree. Resources sharing a name are emitted once, the
// first occurrence winning.
func Export(root model.Parent, f *formatter.HTML, logger *slog.Logger) (*container.Package, error) {
	if logger == nil {
		logger = slog.Default()
	}

	pkgID := packageID(root)

	extensions, err := itemExtensions(root)
	if err != nil {
		return nil, err
	}

	var items []*container.Item
	seen := map[string]bool{}
	add := func(item *container.Item) {
		if seen[item.Name] {
			logger.Debug("skipping duplicate package item", "name", item.Name)
			return
		}
		seen[item.Name] = true
		items = append(items, item)
	}

	// Resources accumulate across the whole walk so a document can
	// reference one declared on the binder or an earlier sibling.
	byFilename := map[string]*model.Resource{}
	register := func(res *model.Resource) *model.Resource {
		if existing, ok := byFilename[res.Filename]; ok {
			return existing
		}
		byFilename[res.Filename] = res
		return res
	}

	for node := range model.Flatten(root) {
		switch n := node.(type) {
		case *model.Binder:
			for _, res := range n.Resources {
				register(res)
				item, err := resourceItem(res)
				if err != nil {
					return nil, err
				}
				add(item)
			}
		case *model.Document, *model.CompositeDocument:
			doc := asDocument(n)
			for _, res := range doc.Resources {
				register(res)
			}
			if err := bindDocumentResources(doc, byFilename, register, logger); err != nil {
				return nil, err
			}
			for _, res := range doc.Resources {
				item, err := resourceItem(res)
				if err != nil {
					return nil, err
				}
				add(item)
			}
			rendered, err := f.Document(node)
			if err != nil {
				return nil, err
			}
			add(&container.Item{
				Name:      node.IdentHash() + extensions[node.ID()],
				Data:      rendered,
				MediaType: doc.MediaType,
			})
		case *model.DocumentPointer:
			rendered, err := f.Document(node)
			if err != nil {
				return nil, err
			}
			add(&container.Item{
				Name:      node.IdentHash() + extensions[node.ID()],
				Data:      rendered,
				MediaType: model.DefaultDocumentMediaType,
			})
		}
	}

	navData, err := f.Navigation(root, extensions)
	if err != nil {
		return nil, err
	}
	nav := &container.Item{
		Name:         pkgID + ".xhtml",
		Data:         navData,
		MediaType:    container.NavigationMediaType,
		IsNavigation: true,
		Properties:   []string{container.NavProperty},
	}
	items = append([]*container.Item{nav}, items...)

	return container.NewPackage(pkgID+".opf", items, root.Metadata().Clone())
}

// packageID is the root's ident hash, or a content-derived stand-in when
// the tree is translucent and has none.
func packageID(root model.Parent) string {
	if ident := root.IdentHash(); ident != "" {
		return ident
	}
	shape, err := json.Marshal(model.ModelToTree(root))
	if err != nil {
		return "book"
	}
	return "book-" + model.ContentHash(shape)
}

// itemExtensions maps each leaf node's id to the file extension its item
// will carry, derived from the node's media type.
func itemExtensions(root model.Parent) (map[string]string, error) {
	extensions := map[string]string{}
	for node := range model.Flatten(root) {
		switch n := node.(type) {
		case *model.Document:
			ext := mimetypes.GuessExtension(n.MediaType)
			if ext == mimetypes.Unknown {
				return nil, &UnresolvableMediaTypeError{NodeID: n.ID(), MediaType: n.MediaType}
			}
			extensions[n.ID()] = ext
		case *model.CompositeDocument:
			ext := mimetypes.GuessExtension(n.MediaType)
			if ext == mimetypes.Unknown {
				return nil, &UnresolvableMediaTypeError{NodeID: n.ID(), MediaType: n.MediaType}
			}
			extensions[n.ID()] = ext
		case *model.DocumentPointer:
			extensions[n.ID()] = ".xhtml"
		}
	}
	return extensions, nil
}

func asDocument(node model.Node) *model.Document {
	switch n := node.(type) {
	case *model.Document:
		return n
	case *model.CompositeDocument:
		return &n.Document
	}
	return nil
}

// bindDocumentResources materializes inline data: references into
// resources and binds internal references that address any resource the
// walk has seen so far by filename. External references are untouched.
func bindDocumentResources(doc *model.Document, byFilename map[string]*model.Resource,
	register func(*model.Resource) *model.Resource, logger *slog.Logger) error {
	for _, ref := range doc.References() {
		switch ref.RemoteType() {
		case model.RefInline:
			res, err := materializeInline(ref.URI())
			if err != nil {
				return err
			}
			if existing := register(res); existing != res {
				res = existing
			} else {
				doc.AddResource(res)
			}
			if err := ref.Bind(res, ResourceTemplate); err != nil {
				return err
			}
		case model.RefInternal:
			name := path.Base(ref.URI())
			res, ok := byFilename[name]
			if !ok {
				continue
			}
			if err := ref.Bind(res, ResourceTemplate); err != nil {
				return err
			}
		default:
			logger.Debug("leaving external reference untouched", "uri", ref.URI())
		}
	}
	return nil
}

// materializeInline turns a data: URI into a content-addressed resource.
func materializeInline(uri string) (*model.Resource, error) {
	mediaType, data, err := ParseDataURI(uri)
	if err != nil {
		return nil, err
	}
	ext := mimetypes.GuessExtension(mediaType)
	if ext == mimetypes.Unknown {
		ext = ".bin"
	}
	name := model.ContentHash(data) + ext
	return model.NewResource(name, data, mediaType, name), nil
}

// resourceItem wraps a resource as a package item named by its id.
func resourceItem(res *model.Resource) (*container.Item, error) {
	data, err := res.ReadAll()
	if err != nil {
		return nil, err
	}
	return &container.Item{
		Name:      res.ID,
		Data:      data,
		MediaType: res.MediaType,
	}, nil
}
