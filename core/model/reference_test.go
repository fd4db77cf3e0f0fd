package model

import (
	"errors"
	"strings"
	"testing"
)

func TestClassifyURI(t *testing.T) {
	tests := []struct {
		uri  string
		want RemoteType
	}{
		{"data:image/png;base64,iVBOR", RefInline},
		{"http://example.org/page", RefExternal},
		{"https://example.org/page", RefExternal},
		{"mailto:someone@example.org", RefExternal},
		{"//example.org/protocol-relative", RefExternal},
		{"../resources/openstax.png", RefInternal},
		{"#fragment", RefInternal},
		{"chapter-2.xhtml", RefInternal},
		{"/contents/abc@1", RefInternal},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			if got := ClassifyURI(tt.uri); got != tt.want {
				t.Errorf("ClassifyURI(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

const refDoc = `<html xmlns="http://www.w3.org/1999/xhtml"><body>
<p><a href="http://example.org/">external</a></p>
<p><img src="../resources/diagram.png"/></p>
<p><a href="#note-1">note</a></p>
</body></html>`

func TestDiscoverReferences(t *testing.T) {
	doc := NewDocument("d1", []byte(refDoc), MetadataFromPairs("title", "Doc"))
	refs := doc.References()
	if len(refs) != 3 {
		t.Fatalf("References() = %d, want 3", len(refs))
	}

	if refs[0].RemoteType() != RefExternal {
		t.Errorf("refs[0] type = %q, want external", refs[0].RemoteType())
	}
	if refs[1].RemoteType() != RefInternal {
		t.Errorf("refs[1] type = %q, want internal", refs[1].RemoteType())
	}
	if refs[1].URI() != "../resources/diagram.png" {
		t.Errorf("refs[1] uri = %q", refs[1].URI())
	}
	if refs[2].URI() != "#note-1" {
		t.Errorf("refs[2] uri = %q", refs[2].URI())
	}
}

func TestBindRewritesContent(t *testing.T) {
	doc := NewDocument("d1", []byte(refDoc), MetadataFromPairs("title", "Doc"))
	refs := doc.References()

	res := NewResource("diagram.png", []byte{0x89, 0x50}, "image/png", "")
	if err := refs[1].Bind(res, "../resources/{}"); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}

	if refs[1].Bound() != res {
		t.Error("Bound() should return the bound resource")
	}
	if refs[1].RemoteType() != RefInternal {
		t.Errorf("after bind, type = %q, want internal", refs[1].RemoteType())
	}
	if !strings.Contains(string(doc.Content()), `src="../resources/diagram.png"`) {
		t.Errorf("content not rewritten: %s", doc.Content())
	}
}

func TestBindIdempotent(t *testing.T) {
	doc := NewDocument("d1", []byte(refDoc), MetadataFromPairs("title", "Doc"))
	ref := doc.References()[1]
	res := NewResource("diagram.png", nil, "image/png", "")

	if err := ref.Bind(res, "../resources/{}"); err != nil {
		t.Fatalf("first Bind() error = %v", err)
	}
	uri := ref.URI()
	if err := ref.Bind(res, "../resources/{}"); err != nil {
		t.Fatalf("second Bind() with same resource error = %v", err)
	}
	if ref.URI() != uri {
		t.Errorf("URI changed on re-bind: %q -> %q", uri, ref.URI())
	}
}

func TestBindConflict(t *testing.T) {
	doc := NewDocument("d1", []byte(refDoc), MetadataFromPairs("title", "Doc"))
	ref := doc.References()[1]

	first := NewResource("diagram.png", nil, "image/png", "")
	other := NewResource("other.png", nil, "image/png", "")

	if err := ref.Bind(first, "../resources/{}"); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	err := ref.Bind(other, "../resources/{}")
	if err == nil {
		t.Fatal("re-binding to a different resource should fail")
	}
	var bound *AlreadyBoundError
	if !errors.As(err, &bound) {
		t.Fatalf("error = %T, want *AlreadyBoundError", err)
	}
	if bound.BoundID != "diagram.png" || bound.ResourceID != "other.png" {
		t.Errorf("error ids = %q, %q", bound.BoundID, bound.ResourceID)
	}
}

func TestSetURIReclassifies(t *testing.T) {
	doc := NewDocument("d1", []byte(refDoc), MetadataFromPairs("title", "Doc"))
	ref := doc.References()[2] // "#note-1", internal

	ref.SetURI("http://example.org/elsewhere")
	if ref.RemoteType() != RefExternal {
		t.Errorf("type = %q, want external", ref.RemoteType())
	}
	if !strings.Contains(string(doc.Content()), "http://example.org/elsewhere") {
		t.Error("SetURI not reflected in content")
	}
}
