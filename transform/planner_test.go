package transform

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/teracodedev/pdfengine/ir/raw"
	"github.com/teracodedev/pdfengine/pagetree"
)

// newSourceDoc builds a document with pageCount pages. Page i (1-based) gets
// its own MediaBox of width 100*i so tests can identify pages after a
// transform. All pages share one Resources dictionary through the tree root.
func newSourceDoc(t *testing.T, pageCount int) *raw.Document {
	t.Helper()
	doc := raw.NewDocument("1.7")

	resources := raw.Dict()
	resources.Set(raw.NameLiteral("ProcSet"), raw.NewArray(raw.NameLiteral("PDF")))
	resourcesRef := doc.Insert(resources)

	var leaves []raw.ObjectRef
	for i := 1; i <= pageCount; i++ {
		page := raw.Dict()
		page.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))
		page.Set(raw.NameLiteral("MediaBox"), raw.NewArray(
			raw.NumberInt(0), raw.NumberInt(0),
			raw.NumberInt(int64(100*i)), raw.NumberInt(800),
		))
		leaves = append(leaves, doc.Insert(page))
	}
	catalogRef := BuildPageTree(doc, leaves)

	// Resources hangs off the Pages node so every page inherits it.
	catalog, _ := doc.Objects[catalogRef].(*raw.DictObj)
	pagesRefObj, _ := catalog.Get(raw.NameLiteral("Pages"))
	pagesDict, _ := doc.Objects[pagesRefObj.(raw.RefObj).R].(*raw.DictObj)
	pagesDict.Set(raw.NameLiteral("Resources"), raw.RefObj{R: resourcesRef})
	return doc
}

// pageWidths enumerates doc and returns the effective width of each page in
// order.
func pageWidths(t *testing.T, doc *raw.Document) []float64 {
	t.Helper()
	pages, _, err := pagetree.Enumerate(doc)
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	widths := make([]float64, 0, len(pages))
	for _, p := range pages {
		attrs, err := pagetree.ResolveAttributes(doc, p)
		if err != nil {
			t.Fatalf("resolve page %d: %v", p.Number, err)
		}
		widths = append(widths, attrs.Width)
	}
	return widths
}

func TestPlanIdentityKeepsEverything(t *testing.T) {
	src := newSourceDoc(t, 3)

	dst, err := Plan(src, Identity(3))
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if diff := cmp.Diff([]float64{100, 200, 300}, pageWidths(t, dst)); diff != "" {
		t.Fatalf("page widths mismatch (-want +got):\n%s", diff)
	}
	// The source must be untouched.
	if diff := cmp.Diff([]float64{100, 200, 300}, pageWidths(t, src)); diff != "" {
		t.Fatalf("source was mutated (-want +got):\n%s", diff)
	}
}

func TestPlanReorder(t *testing.T) {
	src := newSourceDoc(t, 3)

	dst, err := Plan(src, Instructions{PageOrder: []int{3, 1, 2}})
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if diff := cmp.Diff([]float64{300, 100, 200}, pageWidths(t, dst)); diff != "" {
		t.Fatalf("page order wrong (-want +got):\n%s", diff)
	}
}

func TestPlanDeletion(t *testing.T) {
	src := newSourceDoc(t, 5)

	inst := Identity(5)
	inst.DeletedPages = []int{2, 4}
	dst, err := Plan(src, inst)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if diff := cmp.Diff([]float64{100, 300, 500}, pageWidths(t, dst)); diff != "" {
		t.Fatalf("deletion result wrong (-want +got):\n%s", diff)
	}
}

func TestPlanDuplication(t *testing.T) {
	src := newSourceDoc(t, 2)

	dst, err := Plan(src, Instructions{PageOrder: []int{1, 1, 2}})
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	if diff := cmp.Diff([]float64{100, 100, 200}, pageWidths(t, dst)); diff != "" {
		t.Fatalf("duplication result wrong (-want +got):\n%s", diff)
	}
	// The duplicated pages are distinct objects.
	pages, _, err := pagetree.Enumerate(dst)
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	if pages[0].Ref == pages[1].Ref {
		t.Fatalf("duplicate pages share one object")
	}
}

func TestPlanRotationOverride(t *testing.T) {
	src := newSourceDoc(t, 3)

	dst, err := Plan(src, Instructions{
		PageOrder: []int{1, 2, 3},
		Rotations: map[int]int{1: 450, 2: -90, 3: 90},
	})
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	pages, _, err := pagetree.Enumerate(dst)
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	want := []int{90, 270, 90}
	for i, p := range pages {
		attrs, err := pagetree.ResolveAttributes(dst, p)
		if err != nil {
			t.Fatalf("resolve page %d: %v", p.Number, err)
		}
		if attrs.Rotate != want[i] {
			t.Fatalf("page %d rotation = %d, want %d", p.Number, attrs.Rotate, want[i])
		}
	}
}

func TestPlanInvalidRotation(t *testing.T) {
	src := newSourceDoc(t, 1)

	_, err := Plan(src, Instructions{PageOrder: []int{1}, Rotations: map[int]int{1: 45}})
	var invalid *InvalidRotationError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidRotationError, got %v", err)
	}
	if invalid.Page != 1 || invalid.Degrees != 45 {
		t.Fatalf("error carries wrong detail: %+v", invalid)
	}
}

func TestPlanUnknownPageNumber(t *testing.T) {
	src := newSourceDoc(t, 2)

	_, err := Plan(src, Instructions{PageOrder: []int{1, 7}})
	var unknown *UnknownPageNumberError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownPageNumberError, got %v", err)
	}
	if unknown.Page != 7 || unknown.PageCount != 2 {
		t.Fatalf("error carries wrong detail: %+v", unknown)
	}
}

func TestPlanDeleteAllPages(t *testing.T) {
	src := newSourceDoc(t, 2)

	inst := Identity(2)
	inst.DeletedPages = []int{1, 2}
	dst, err := Plan(src, inst)
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	pages, _, err := pagetree.Enumerate(dst)
	if err != nil {
		t.Fatalf("zero-page document must still enumerate: %v", err)
	}
	if len(pages) != 0 {
		t.Fatalf("expected 0 pages, got %d", len(pages))
	}
}

func TestPlanPreservesSharedResources(t *testing.T) {
	src := newSourceDoc(t, 2)

	dst, err := Plan(src, Identity(2))
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	pages, _, err := pagetree.Enumerate(dst)
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	res0, ok := pages[0].Dict.Get(raw.NameLiteral("Resources"))
	if !ok {
		t.Fatalf("page 1 lost its Resources")
	}
	res1, ok := pages[1].Dict.Get(raw.NameLiteral("Resources"))
	if !ok {
		t.Fatalf("page 2 lost its Resources")
	}
	if res0.(raw.RefObj).R != res1.(raw.RefObj).R {
		t.Fatalf("shared Resources duplicated: %v vs %v", res0, res1)
	}
}

func TestPlanCarriesInfo(t *testing.T) {
	src := newSourceDoc(t, 1)
	info := raw.Dict()
	info.Set(raw.NameLiteral("Title"), raw.Str([]byte("Quarterly Report")))
	infoRef := src.Insert(info)
	src.Trailer.Set(raw.NameLiteral("Info"), raw.Ref(infoRef.Num, infoRef.Gen))

	dst, err := Plan(src, Identity(1))
	if err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	dstInfoRef, ok := dst.Info()
	if !ok {
		t.Fatalf("Info not carried over")
	}
	obj, err := dst.Dereference(dstInfoRef)
	if err != nil {
		t.Fatalf("Info dereference failed: %v", err)
	}
	title, _ := obj.(*raw.DictObj).Get(raw.NameLiteral("Title"))
	if string(title.(raw.StringObj).Value()) != "Quarterly Report" {
		t.Fatalf("Info content lost: %#v", title)
	}
}
