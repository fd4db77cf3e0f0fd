package adapter

import (
	"bytes"
	"errors"
	"testing"

	"github.com/coursewright/bindery/core/container"
	binderrors "github.com/coursewright/bindery/core/errors"
	"github.com/coursewright/bindery/core/formatter"
	"github.com/coursewright/bindery/core/model"
)

// flattenedTitles walks the tree collecting the displayed title of every
// node: the root's own title, then each child's title as its parent
// reports it.
func flattenedTitles(root model.Parent) []string {
	titles := []string{root.Metadata().Title()}
	var walk func(parent model.Parent)
	walk = func(parent model.Parent) {
		for _, child := range parent.Children() {
			titles = append(titles, parent.TitleForNode(child))
			if sub, ok := child.(model.Parent); ok {
				walk(sub)
			}
		}
	}
	walk(root)
	return titles
}

func countNodes(root model.Node) int {
	n := 0
	for range model.Flatten(root) {
		n++
	}
	return n
}

func TestRoundTripTranslucentBinder(t *testing.T) {
	binder := model.NewTranslucentBinder(packableMetadata("Kraken"))
	mustAppend(t, binder, model.NewDocument("ingress", []byte("<p>Hello.</p>"),
		model.MetadataFromPairs("title", "entrée")))
	mustAppend(t, binder, model.NewDocument("egress", []byte("<p>hüvasti.</p>"),
		model.MetadataFromPairs("title", "egress")))

	pkg, err := Export(binder, formatter.New(), nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := AdaptPackage(pkg, nil)
	if err != nil {
		t.Fatalf("AdaptPackage: %v", err)
	}

	if got.Kind() != model.KindTranslucentBinder {
		t.Errorf("root kind = %q, want translucent binder", got.Kind())
	}
	if n := countNodes(got); n != 3 {
		t.Errorf("flattened node count = %d, want 3", n)
	}
	wantTitles := []string{"Kraken", "entrée", "egress"}
	gotTitles := flattenedTitles(got)
	if len(gotTitles) != len(wantTitles) {
		t.Fatalf("titles = %v, want %v", gotTitles, wantTitles)
	}
	for i := range wantTitles {
		if gotTitles[i] != wantTitles[i] {
			t.Errorf("title[%d] = %q, want %q", i, gotTitles[i], wantTitles[i])
		}
	}

	wantIdents := []string{"", "ingress", "egress"}
	i := 0
	for node := range model.Flatten(got) {
		if node.IdentHash() != wantIdents[i] {
			t.Errorf("ident[%d] = %q, want %q", i, node.IdentHash(), wantIdents[i])
		}
		i++
	}
}

func TestRoundTripTitleOverride(t *testing.T) {
	binder := model.NewBinder("bk5", packableMetadata("Overrides"))
	doc := model.NewDocument("way", []byte("<p>x</p>"),
		model.MetadataFromPairs("title", "egress"))
	mustAppend(t, binder, doc)
	binder.SetTitleForNode(doc, "Way Out")

	pkg, err := Export(binder, formatter.New(), nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := AdaptPackage(pkg, nil)
	if err != nil {
		t.Fatalf("AdaptPackage: %v", err)
	}

	children := got.Children()
	if len(children) != 1 {
		t.Fatalf("len(children) = %d, want 1", len(children))
	}
	if title := got.TitleForNode(children[0]); title != "Way Out" {
		t.Errorf("override title = %q, want %q", title, "Way Out")
	}
	if title := children[0].Metadata().Title(); title != "egress" {
		t.Errorf("metadata title = %q, want %q", title, "egress")
	}
}

func TestRoundTripNestedStructure(t *testing.T) {
	binder := model.NewBinder("bk6@2", packableMetadata("Nested"))
	part := model.NewTranslucentBinder(model.MetadataFromPairs("title", "Part One"))
	mustAppend(t, part, model.NewDocument("leaf", []byte("<p>deep</p>"),
		model.MetadataFromPairs("title", "Leaf")))
	mustAppend(t, binder, part)

	pkg, err := Export(binder, formatter.New(), nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := AdaptPackage(pkg, nil)
	if err != nil {
		t.Fatalf("AdaptPackage: %v", err)
	}

	if got.Kind() != model.KindBinder {
		t.Fatalf("root kind = %q, want binder", got.Kind())
	}
	shape := model.ModelToTree(got)
	if len(shape.Contents) != 1 || !shape.Contents[0].IsCollection() {
		t.Fatalf("tree shape = %+v, want one nested collection", shape)
	}
	if shape.Contents[0].Contents[0].ID != "leaf" {
		t.Errorf("nested leaf id = %q, want %q", shape.Contents[0].Contents[0].ID, "leaf")
	}
}

func TestRoundTripResources(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	doc := model.NewDocument("figs", []byte(`<p><img src="chart.png"/></p>`),
		model.MetadataFromPairs("title", "Figures"))
	doc.AddResource(model.NewResource("chart.png", payload, "image/png", "chart.png"))
	binder := model.NewBinder("bk7", packableMetadata("Resources"))
	mustAppend(t, binder, doc)

	pkg, err := Export(binder, formatter.New(), nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := AdaptPackage(pkg, nil)
	if err != nil {
		t.Fatalf("AdaptPackage: %v", err)
	}

	var gotDoc *model.Document
	for node := range model.FlattenToDocuments(got) {
		if d, ok := node.(*model.Document); ok {
			gotDoc = d
		}
	}
	if gotDoc == nil {
		t.Fatal("no document in re-imported tree")
	}
	if len(gotDoc.Resources) != 1 {
		t.Fatalf("len(Resources) = %d, want 1", len(gotDoc.Resources))
	}
	data, err := gotDoc.Resources[0].ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Errorf("resource bytes = %v, want %v", data, payload)
	}
	ref := gotDoc.References()[0]
	if ref.Bound() == nil {
		t.Error("reference not re-bound after import")
	}
}

func TestAdaptPackageMissingMetadata(t *testing.T) {
	binder := model.NewBinder("bk8",
		model.MetadataFromPairs("title", "No Publisher"))
	mustAppend(t, binder, model.NewDocument("d", []byte("<p>x</p>"),
		model.MetadataFromPairs("title", "D")))

	pkg, err := Export(binder, formatter.New(), nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	_, err = AdaptPackage(pkg, nil)
	var missing *container.MissingMetadataError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingMetadataError", err)
	}
	if missing.Key != "publisher" {
		t.Errorf("missing key = %q, want %q", missing.Key, "publisher")
	}
}

func TestAdaptPackageMalformedContentItem(t *testing.T) {
	binder := model.NewBinder("bk10", packableMetadata("Broken"))
	mustAppend(t, binder, model.NewDocument("bad", []byte("<p>x</p>"),
		model.MetadataFromPairs("title", "Bad")))

	pkg, err := Export(binder, formatter.New(), nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	item, err := pkg.GrabByName("bad.xhtml")
	if err != nil {
		t.Fatalf("GrabByName(bad.xhtml): %v", err)
	}
	item.Data = []byte("<p>unclosed")

	_, err = AdaptPackage(pkg, nil)
	var parseErr *binderrors.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("err = %v, want ParseError", err)
	}
	if parseErr.Path != "bad.xhtml" {
		t.Errorf("ParseError path = %q, want %q", parseErr.Path, "bad.xhtml")
	}
}

func TestRoundTripBinderResources(t *testing.T) {
	binder := model.NewBinder("bk9", packableMetadata("Cover Art"))
	binder.Resources = append(binder.Resources,
		model.NewResource("cover.jpg", []byte{1, 2}, "image/jpeg", "cover.jpg"))
	mustAppend(t, binder, model.NewDocument("d", []byte("<p>x</p>"),
		model.MetadataFromPairs("title", "D")))

	pkg, err := Export(binder, formatter.New(), nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := AdaptPackage(pkg, nil)
	if err != nil {
		t.Fatalf("AdaptPackage: %v", err)
	}
	b, ok := got.(*model.Binder)
	if !ok {
		t.Fatalf("root is %T, want *model.Binder", got)
	}
	if len(b.Resources) != 1 || b.Resources[0].Filename != "cover.jpg" {
		t.Errorf("binder resources = %+v, want cover.jpg", b.Resources)
	}
}

func TestRoundTripDescriptiveMetadata(t *testing.T) {
	meta := packableMetadata("Annotated")
	meta.Set("language", "en")
	meta.Set("license_url", "http://creativecommons.org/licenses/by/4.0/")
	binder := model.NewBinder("bk11", meta)
	mustAppend(t, binder, model.NewDocument("essay", []byte("<p>x</p>"),
		model.MetadataFromPairs(
			"title", "Essay",
			"authors", "Marie Curie, Pierre Curie",
			"created", "2026-01-05",
			"revised", "2026-02-10",
		)))

	pkg, err := Export(binder, formatter.New(), nil)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	got, err := AdaptPackage(pkg, nil)
	if err != nil {
		t.Fatalf("AdaptPackage: %v", err)
	}

	if lang := got.Metadata().GetString("language"); lang != "en" {
		t.Errorf("binder language = %q, want %q", lang, "en")
	}
	if url := got.Metadata().GetString("license_url"); url != "http://creativecommons.org/licenses/by/4.0/" {
		t.Errorf("binder license_url = %q", url)
	}
	child := got.Children()[0].Metadata()
	for key, want := range map[string]string{
		"authors": "Marie Curie, Pierre Curie",
		"created": "2026-01-05",
		"revised": "2026-02-10",
	} {
		if v := child.GetString(key); v != want {
			t.Errorf("child %s = %q, want %q", key, v, want)
		}
	}
}
