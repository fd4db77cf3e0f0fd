// Package container models the packaged form of a content tree: an ordered
// manifest of named items with media types, exactly one of which is the
// navigation document, plus package-level metadata parsed from the OPF.
package container

import (
	"fmt"

	"github.com/coursewright/bindery/core/errors"
	"github.com/coursewright/bindery/core/model"
)

// Media types and property tags used in the container layout.
const (
	// MimetypeContents is the fixed content of the top-level mimetype file.
	MimetypeContents = "application/epub+zip"
	// NavigationMediaType is the media type of the navigation document.
	NavigationMediaType = "application/xhtml+xml"
	// NavProperty flags the navigation item in the manifest.
	NavProperty = "nav"
)

// MissingNavigationError is returned when a package has no navigation item.
type MissingNavigationError struct {
	Package string
}

func (e *MissingNavigationError) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("package %s has no navigation item", e.Package)
	}
	return "package has no navigation item"
}

func (e *MissingNavigationError) Unwrap() error {
	return errors.ErrInvalidInput
}

// AdditionalNavigationError is returned when a package has more than one
// navigation item.
type AdditionalNavigationError struct {
	Package string
	Names   []string
}

func (e *AdditionalNavigationError) Error() string {
	return fmt.Sprintf("package %s has %d navigation items, only one is allowed",
		e.Package, len(e.Names))
}

func (e *AdditionalNavigationError) Unwrap() error {
	return errors.ErrInvalidInput
}

// ItemNotFoundError is returned when a named item is absent from a package.
type ItemNotFoundError struct {
	Package string
	Name    string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %q not found in package %s", e.Name, e.Package)
}

func (e *ItemNotFoundError) Unwrap() error {
	return errors.ErrNotFound
}

// Item is a single named entry in a package manifest.
type Item struct {
	// Name is the item's filename, unique within the package.
	Name string
	// Data is the item's byte content.
	Data []byte
	// MediaType is the item's media type from the manifest.
	MediaType string
	// IsNavigation marks the package's navigation document.
	IsNavigation bool
	// Properties is the manifest property tag set (e.g. "nav").
	Properties []string
}

// HasProperty reports whether the item carries the given property tag.
func (i *Item) HasProperty(prop string) bool {
	for _, p := range i.Properties {
		if p == prop {
			return true
		}
	}
	return false
}

// Entry is the storage tuple an archive or directory collaborator supplies
// when building a package without going through an OPF document.
type Entry struct {
	Name       string
	Data       []byte
	MediaType  string
	Properties []string
}

// Package is an ordered sequence of items plus package-level metadata.
// Packages are built once per export or extraction and not mutated after
// construction.
type Package struct {
	// Name is the package document's filename (the "<id>.opf").
	Name string
	// Metadata is the package-level metadata.
	Metadata *model.Metadata

	items    []*Item
	navIndex int
}

// NewPackage builds a Package, enforcing the navigation invariant: exactly
// one item must be flagged as the navigation document.
func NewPackage(name string, items []*Item, metadata *model.Metadata) (*Package, error) {
	if metadata == nil {
		metadata = model.NewMetadata()
	}
	navIndex := -1
	var navNames []string
	for i, item := range items {
		if item.IsNavigation {
			navNames = append(navNames, item.Name)
			if navIndex < 0 {
				navIndex = i
			}
		}
	}
	switch {
	case len(navNames) == 0:
		return nil, &MissingNavigationError{Package: name}
	case len(navNames) > 1:
		return nil, &AdditionalNavigationError{Package: name, Names: navNames}
	}
	return &Package{
		Name:     name,
		Metadata: metadata,
		items:    items,
		navIndex: navIndex,
	}, nil
}

// FromEntries builds a Package from externally-supplied storage tuples.
// The navigation item is the entry carrying the "nav" property.
func FromEntries(name string, entries []Entry, metadata *model.Metadata) (*Package, error) {
	items := make([]*Item, len(entries))
	for i, e := range entries {
		item := &Item{
			Name:       e.Name,
			Data:       e.Data,
			MediaType:  e.MediaType,
			Properties: e.Properties,
		}
		item.IsNavigation = item.HasProperty(NavProperty)
		items[i] = item
	}
	return NewPackage(name, items, metadata)
}

// Items returns the package items in manifest order.
func (p *Package) Items() []*Item {
	out := make([]*Item, len(p.items))
	copy(out, p.items)
	return out
}

// Len returns the number of items.
func (p *Package) Len() int {
	return len(p.items)
}

// Navigation returns the package's single navigation item.
func (p *Package) Navigation() *Item {
	return p.items[p.navIndex]
}

// GrabByName returns the item with the given name, or ItemNotFoundError.
func (p *Package) GrabByName(name string) (*Item, error) {
	for _, item := range p.items {
		if item.Name == name {
			return item, nil
		}
	}
	return nil, &ItemNotFoundError{Package: p.Name, Name: name}
}
