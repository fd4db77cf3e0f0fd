package container

import (
	"fmt"
	"strings"

	"github.com/coursewright/bindery/core/encoding"
	"github.com/coursewright/bindery/core/errors"
	"github.com/coursewright/bindery/core/model"
	"github.com/coursewright/bindery/core/xmlutil"
)

// Required and optional package metadata keys (spec'd by the OPF layout).
var (
	RequiredMetadataKeys = []string{"publisher", "publication_message"}
	OptionalMetadataKeys = []string{"title", "identifier", "language", "license_text", "license_url"}
)

// MissingMetadataError is returned when required package metadata is absent.
type MissingMetadataError struct {
	Key     string
	Package string
}

func (e *MissingMetadataError) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("a value for %q could not be found in package %s", e.Key, e.Package)
	}
	return fmt.Sprintf("a value for %q could not be found", e.Key)
}

func (e *MissingMetadataError) Unwrap() error {
	return errors.ErrInvalidInput
}

// ParseOPFMetadata extracts package metadata from an OPF document. Required
// keys (publisher, publication_message) produce a MissingMetadataError when
// absent; optional keys are included only when present.
func ParseOPFMetadata(opfName string, data []byte) (*model.Metadata, error) {
	doc, err := xmlutil.Parse(data)
	if err != nil {
		return nil, errors.NewParse("OPF", opfName, err.Error())
	}
	root := doc.Root()
	if root == nil || root.Name() != "package" {
		return nil, errors.NewParse("OPF", opfName, "missing package element")
	}

	var metaElem *xmlutil.Node
	for _, child := range root.Children() {
		if child.Name() == "metadata" {
			metaElem = child
			break
		}
	}
	if metaElem == nil {
		return nil, errors.NewParse("OPF", opfName, "missing metadata element")
	}

	// Element names are matched by local name; the OPF mixes the opf and dc
	// namespaces but the local names are unambiguous.
	values := map[string]string{}
	for _, el := range metaElem.Children() {
		switch el.Name() {
		case "title":
			values["title"] = el.Text()
		case "creator":
			values["publisher"] = el.Text()
		case "identifier":
			values["identifier"] = el.Text()
		case "language":
			values["language"] = el.Text()
		case "rights":
			values["license_text"] = el.Text()
		case "meta":
			if el.Attr("property") == "publicationMessage" {
				values["publication_message"] = el.Text()
			}
		case "link":
			if el.Attr("rel") == "cc:license" {
				values["license_url"] = el.Attr("href")
			}
		}
	}

	metadata := model.NewMetadata()
	for _, key := range RequiredMetadataKeys {
		v, ok := values[key]
		if !ok || v == "" {
			return nil, &MissingMetadataError{Key: key, Package: opfName}
		}
		metadata.Set(key, v)
	}
	for _, key := range OptionalMetadataKeys {
		if v, ok := values[key]; ok && v != "" {
			metadata.Set(key, v)
		}
	}
	return metadata, nil
}

// manifestEntry is one item row parsed from an OPF manifest.
type manifestEntry struct {
	href       string
	mediaType  string
	properties []string
}

func parseManifest(opfName string, data []byte) ([]manifestEntry, error) {
	doc, err := xmlutil.Parse(data)
	if err != nil {
		return nil, errors.NewParse("OPF", opfName, err.Error())
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.NewParse("OPF", opfName, "missing package element")
	}
	var out []manifestEntry
	for _, child := range root.Children() {
		if child.Name() != "manifest" {
			continue
		}
		for _, item := range child.Children() {
			if item.Name() != "item" {
				continue
			}
			out = append(out, manifestEntry{
				href:       item.Attr("href"),
				mediaType:  item.Attr("media-type"),
				properties: strings.Fields(item.Attr("properties")),
			})
		}
	}
	return out, nil
}

// FromOPF builds a Package by parsing an OPF document and fetching each
// manifest item's bytes through fetch, which receives the item's href as
// written in the manifest.
func FromOPF(opfName string, opfData []byte, fetch func(href string) ([]byte, error)) (*Package, error) {
	metadata, err := ParseOPFMetadata(opfName, opfData)
	if err != nil {
		return nil, err
	}
	manifest, err := parseManifest(opfName, opfData)
	if err != nil {
		return nil, err
	}

	items := make([]*Item, 0, len(manifest))
	for _, entry := range manifest {
		data, err := fetch(entry.href)
		if err != nil {
			return nil, errors.Wrapf(err, "fetch manifest item %q", entry.href)
		}
		item := &Item{
			Name:       baseName(entry.href),
			Data:       data,
			MediaType:  entry.mediaType,
			Properties: entry.properties,
		}
		item.IsNavigation = item.HasProperty(NavProperty)
		items = append(items, item)
	}
	return NewPackage(opfName, items, metadata)
}

// BuildOPF serializes the package manifest document. Content documents live
// under contents/ and everything else under resources/, mirroring the
// on-disk layout.
func BuildOPF(p *Package) []byte {
	var manifest strings.Builder
	for i, item := range p.Items() {
		href := ItemHref(item)
		props := ""
		if len(item.Properties) > 0 {
			props = fmt.Sprintf(` properties="%s"`, encoding.EscapeXMLAttr(strings.Join(item.Properties, " ")))
		}
		manifest.WriteString(fmt.Sprintf(
			`    <item id="item-%d" href="%s" media-type="%s"%s/>`,
			i+1, encoding.EscapeXMLAttr(href), encoding.EscapeXMLAttr(item.MediaType), props))
		manifest.WriteString("\n")
	}

	var meta strings.Builder
	writeText := func(tag, key string) {
		if v := p.Metadata.GetString(key); v != "" {
			meta.WriteString(fmt.Sprintf("    <%s>%s</%s>\n", tag, encoding.EscapeXML(v), tag))
		}
	}
	writeText("dc:title", "title")
	writeText("dc:creator", "publisher")
	writeText("dc:identifier", "identifier")
	writeText("dc:language", "language")
	writeText("dc:rights", "license_text")
	if v := p.Metadata.GetString("license_url"); v != "" {
		meta.WriteString(fmt.Sprintf(`    <link rel="cc:license" href="%s"/>`, encoding.EscapeXMLAttr(v)))
		meta.WriteString("\n")
	}
	if v := p.Metadata.GetString("publication_message"); v != "" {
		meta.WriteString(fmt.Sprintf(`    <meta property="publicationMessage">%s</meta>`, encoding.EscapeXML(v)))
		meta.WriteString("\n")
	}

	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" version="3.0" unique-identifier="pub-id">
  <metadata>
%s  </metadata>
  <manifest>
%s  </manifest>
</package>
`, meta.String(), manifest.String()))
}

// ItemHref returns the manifest href for an item: navigation and content
// documents under contents/, resources under resources/.
func ItemHref(item *Item) string {
	if item.IsNavigation || item.MediaType == NavigationMediaType {
		return "contents/" + item.Name
	}
	return "resources/" + item.Name
}

func baseName(href string) string {
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}
