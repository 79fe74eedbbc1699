package pagetree

import (
	"errors"
	"testing"

	"github.com/teracodedev/pdfengine/ir/raw"
)

func mediaBox(llx, lly, urx, ury float64) *raw.ArrayObj {
	return raw.NewArray(
		raw.NumberFloat(llx), raw.NumberFloat(lly),
		raw.NumberFloat(urx), raw.NumberFloat(ury),
	)
}

func TestResolveAttributesInheritance(t *testing.T) {
	doc := buildTree(t, func(doc *raw.Document) raw.ObjectRef {
		plain := newPage(doc, raw.ObjectRef{})

		custom := raw.Dict()
		custom.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))
		custom.Set(raw.NameLiteral("MediaBox"), mediaBox(0, 0, 300, 300))
		customRef := doc.Insert(custom)

		root := pagesNode(doc, plain, customRef)
		rootDict := doc.Objects[root].(*raw.DictObj)
		rootDict.Set(raw.NameLiteral("MediaBox"), mediaBox(0, 0, 612, 792))
		rootDict.Set(raw.NameLiteral("Rotate"), raw.NumberInt(90))
		return root
	})

	pages, _, err := Enumerate(doc)
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}

	first, err := ResolveAttributes(doc, pages[0])
	if err != nil {
		t.Fatalf("resolve page 1: %v", err)
	}
	if first.Width != 612 || first.Height != 792 {
		t.Fatalf("expected inherited 612x792, got %gx%g", first.Width, first.Height)
	}
	if !first.MediaBoxInherited {
		t.Fatalf("page 1 MediaBox should be marked inherited")
	}
	if first.Rotate != 90 || !first.RotateInherited {
		t.Fatalf("expected inherited rotation 90, got %d (inherited %v)", first.Rotate, first.RotateInherited)
	}

	second, err := ResolveAttributes(doc, pages[1])
	if err != nil {
		t.Fatalf("resolve page 2: %v", err)
	}
	if second.Width != 300 || second.Height != 300 {
		t.Fatalf("expected own 300x300, got %gx%g", second.Width, second.Height)
	}
	if second.MediaBoxInherited {
		t.Fatalf("page 2 MediaBox should be its own")
	}
}

func TestResolveAttributesDefaults(t *testing.T) {
	doc := buildTree(t, func(doc *raw.Document) raw.ObjectRef {
		return pagesNode(doc, newPage(doc, raw.ObjectRef{}))
	})
	pages, _, err := Enumerate(doc)
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}

	attrs, err := ResolveAttributes(doc, pages[0])
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if attrs.Width != DefaultWidth || attrs.Height != DefaultHeight {
		t.Fatalf("expected default size, got %gx%g", attrs.Width, attrs.Height)
	}
	if attrs.Rotate != 0 {
		t.Fatalf("expected default rotation 0, got %d", attrs.Rotate)
	}
	if attrs.Resources != nil {
		t.Fatalf("expected nil Resources, got %#v", attrs.Resources)
	}
}

func TestResolveAttributesMalformedMediaBox(t *testing.T) {
	cases := map[string]raw.Object{
		"not an array":    raw.NameLiteral("Letter"),
		"short array":     raw.NewArray(raw.NumberInt(0), raw.NumberInt(0)),
		"non numeric":     raw.NewArray(raw.NumberInt(0), raw.NumberInt(0), raw.NameLiteral("w"), raw.NumberInt(10)),
		"negative extent": mediaBox(500, 0, 100, 100),
	}
	for name, box := range cases {
		t.Run(name, func(t *testing.T) {
			doc := buildTree(t, func(doc *raw.Document) raw.ObjectRef {
				page := raw.Dict()
				page.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))
				page.Set(raw.NameLiteral("MediaBox"), box)
				return pagesNode(doc, doc.Insert(page))
			})
			pages, _, err := Enumerate(doc)
			if err != nil {
				t.Fatalf("enumerate failed: %v", err)
			}
			_, err = ResolveAttributes(doc, pages[0])
			var malformed *MalformedAttributeError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected MalformedAttributeError, got %v", err)
			}
			if malformed.Attr != "MediaBox" {
				t.Fatalf("error names %q, want MediaBox", malformed.Attr)
			}
		})
	}
}

func TestResolveAttributesMalformedRotate(t *testing.T) {
	doc := buildTree(t, func(doc *raw.Document) raw.ObjectRef {
		page := raw.Dict()
		page.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))
		page.Set(raw.NameLiteral("Rotate"), raw.NumberInt(45))
		return pagesNode(doc, doc.Insert(page))
	})
	pages, _, err := Enumerate(doc)
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	_, err = ResolveAttributes(doc, pages[0])
	var malformed *MalformedAttributeError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedAttributeError, got %v", err)
	}
}

func TestResolveAttributesIndirectMediaBox(t *testing.T) {
	doc := buildTree(t, func(doc *raw.Document) raw.ObjectRef {
		boxRef := doc.Insert(mediaBox(0, 0, 200, 400))
		page := raw.Dict()
		page.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))
		page.Set(raw.NameLiteral("MediaBox"), raw.Ref(boxRef.Num, boxRef.Gen))
		return pagesNode(doc, doc.Insert(page))
	})
	pages, _, err := Enumerate(doc)
	if err != nil {
		t.Fatalf("enumerate failed: %v", err)
	}
	attrs, err := ResolveAttributes(doc, pages[0])
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if attrs.Width != 200 || attrs.Height != 400 {
		t.Fatalf("expected 200x400 through the reference, got %gx%g", attrs.Width, attrs.Height)
	}
}

func TestNormalizeRotation(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, 0},
		{90, 90},
		{450, 90},
		{-90, 270},
		{360, 0},
		{-450, 270},
		{180, 180},
	}
	for _, tc := range cases {
		got, err := NormalizeRotation(tc.in)
		if err != nil {
			t.Fatalf("NormalizeRotation(%d) failed: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("NormalizeRotation(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if _, err := NormalizeRotation(45); err == nil {
		t.Fatalf("expected error for 45 degrees")
	}
	if _, err := NormalizeRotation(91); err == nil {
		t.Fatalf("expected error for 91 degrees")
	}
}
