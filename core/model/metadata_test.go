package model

import (
	"reflect"
	"testing"
)

func TestMetadataOrder(t *testing.T) {
	m := NewMetadata()
	m.Set("title", "Book")
	m.Set("language", "en")
	m.Set("publisher", "Ream")
	m.Set("title", "Book (2nd ed.)") // replace keeps position

	want := []string{"title", "language", "publisher"}
	if got := m.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if m.Title() != "Book (2nd ed.)" {
		t.Errorf("Title() = %q", m.Title())
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
}

func TestMetadataGet(t *testing.T) {
	m := MetadataFromPairs("title", "Book", "authors", []string{"a", "b"})

	if v, ok := m.Get("authors"); !ok || len(v.([]string)) != 2 {
		t.Errorf("Get(authors) = %v, %v", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Error("Get(missing) should report absence")
	}
	if m.GetString("authors") != "" {
		t.Error("GetString on non-string value should return empty")
	}
	if m.GetString("title") != "Book" {
		t.Errorf("GetString(title) = %q", m.GetString("title"))
	}
}

func TestMetadataClone(t *testing.T) {
	m := MetadataFromPairs("title", "Book", "language", "en")
	c := m.Clone()
	c.Set("title", "Changed")

	if m.Title() != "Book" {
		t.Error("mutating the clone changed the original")
	}
	if !reflect.DeepEqual(c.Keys(), m.Keys()) {
		t.Errorf("clone keys = %v, want %v", c.Keys(), m.Keys())
	}
}

func TestMetadataFromPairsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("odd argument count should panic")
		}
	}()
	MetadataFromPairs("title")
}
