package raw

import (
	"errors"
	"testing"
)

func TestDocumentDereference(t *testing.T) {
	doc := NewDocument("1.7")
	ref := doc.Insert(NameLiteral("target"))

	obj, err := doc.Dereference(ref)
	if err != nil {
		t.Fatalf("dereference failed: %v", err)
	}
	if name, ok := obj.(NameObj); !ok || name.Val != "target" {
		t.Fatalf("wrong object: %#v", obj)
	}

	// Generation mismatch falls back to any stored generation.
	obj, err = doc.Dereference(ObjectRef{Num: ref.Num, Gen: 5})
	if err != nil {
		t.Fatalf("generation fallback failed: %v", err)
	}
	if name, ok := obj.(NameObj); !ok || name.Val != "target" {
		t.Fatalf("fallback returned wrong object: %#v", obj)
	}
}

func TestDocumentDereferenceDangling(t *testing.T) {
	doc := NewDocument("1.7")

	_, err := doc.Dereference(ObjectRef{Num: 42, Gen: 0})
	var dangling *DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingReferenceError, got %v", err)
	}
	if dangling.Ref.Num != 42 {
		t.Fatalf("error names wrong ref: %v", dangling.Ref)
	}
}

func TestDocumentInsertAllocatesFreshNumbers(t *testing.T) {
	doc := NewDocument("1.7")
	doc.Objects[ObjectRef{Num: 7, Gen: 0}] = NullObj{}

	ref := doc.Insert(Bool(true))
	if ref.Num != 8 || ref.Gen != 0 {
		t.Fatalf("expected 8 0, got %v", ref)
	}
	ref = doc.Insert(Bool(false))
	if ref.Num != 9 {
		t.Fatalf("expected 9, got %v", ref)
	}
}

func TestDocumentCatalog(t *testing.T) {
	doc := NewDocument("1.7")
	catalog := Dict()
	catalog.Set(NameLiteral("Type"), NameLiteral("Catalog"))
	ref := doc.Insert(catalog)
	doc.Trailer.Set(NameLiteral("Root"), Ref(ref.Num, ref.Gen))

	gotRef, gotDict, err := doc.Catalog()
	if err != nil {
		t.Fatalf("catalog lookup failed: %v", err)
	}
	if gotRef != ref {
		t.Fatalf("expected ref %v, got %v", ref, gotRef)
	}
	if gotDict != catalog {
		t.Fatalf("catalog dict is not the stored one")
	}
}

func TestDocumentCatalogMissingRoot(t *testing.T) {
	doc := NewDocument("1.7")
	if _, _, err := doc.Catalog(); err == nil {
		t.Fatalf("expected error without Root")
	}
}

func TestImportRewritesReferences(t *testing.T) {
	src := NewDocument("1.7")
	sharedRef := src.Insert(NameLiteral("shared"))

	pageA := Dict()
	pageA.Set(NameLiteral("Resources"), RefObj{R: sharedRef})
	pageB := Dict()
	pageB.Set(NameLiteral("Resources"), RefObj{R: sharedRef})

	dst := NewDocument("1.7")
	remap := make(map[ObjectRef]ObjectRef)

	copiedA, err := dst.Import(src, pageA, remap)
	if err != nil {
		t.Fatalf("import pageA failed: %v", err)
	}
	copiedB, err := dst.Import(src, pageB, remap)
	if err != nil {
		t.Fatalf("import pageB failed: %v", err)
	}

	refA, _ := copiedA.(*DictObj).Get(NameLiteral("Resources"))
	refB, _ := copiedB.(*DictObj).Get(NameLiteral("Resources"))
	if refA.(RefObj).R != refB.(RefObj).R {
		t.Fatalf("shared target copied twice: %v vs %v", refA, refB)
	}
	target, err := dst.Dereference(refA.(RefObj).R)
	if err != nil {
		t.Fatalf("copied target missing: %v", err)
	}
	if name, ok := target.(NameObj); !ok || name.Val != "shared" {
		t.Fatalf("copied target is wrong: %#v", target)
	}
}

func TestImportHandlesReferenceCycles(t *testing.T) {
	src := NewDocument("1.7")
	a := Dict()
	b := Dict()
	refA := src.Insert(a)
	refB := src.Insert(b)
	a.Set(NameLiteral("Next"), RefObj{R: refB})
	b.Set(NameLiteral("Next"), RefObj{R: refA})

	dst := NewDocument("1.7")
	remap := make(map[ObjectRef]ObjectRef)
	copied, err := dst.Import(src, RefObj{R: refA}, remap)
	if err != nil {
		t.Fatalf("cyclic import failed: %v", err)
	}
	if len(dst.Objects) != 2 {
		t.Fatalf("expected 2 imported objects, got %d", len(dst.Objects))
	}

	// Follow the cycle in the destination: a -> b -> a.
	first, err := dst.Dereference(copied.(RefObj).R)
	if err != nil {
		t.Fatalf("dereference failed: %v", err)
	}
	next, _ := first.(*DictObj).Get(NameLiteral("Next"))
	second, err := dst.Dereference(next.(RefObj).R)
	if err != nil {
		t.Fatalf("dereference failed: %v", err)
	}
	back, _ := second.(*DictObj).Get(NameLiteral("Next"))
	if back.(RefObj).R != copied.(RefObj).R {
		t.Fatalf("cycle not preserved: %v", back)
	}
}

func TestImportDanglingReferenceFails(t *testing.T) {
	src := NewDocument("1.7")
	dst := NewDocument("1.7")
	remap := make(map[ObjectRef]ObjectRef)

	_, err := dst.Import(src, Ref(99, 0), remap)
	var dangling *DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingReferenceError, got %v", err)
	}
}

func TestImportCopiesStreamData(t *testing.T) {
	src := NewDocument("1.7")
	stream := NewStream(Dict(), []byte("payload"))
	ref := src.Insert(stream)

	dst := NewDocument("1.7")
	copied, err := dst.Import(src, RefObj{R: ref}, make(map[ObjectRef]ObjectRef))
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	target, err := dst.Dereference(copied.(RefObj).R)
	if err != nil {
		t.Fatalf("dereference failed: %v", err)
	}
	copiedStream := target.(*StreamObj)
	if string(copiedStream.Data) != "payload" {
		t.Fatalf("data not copied: %q", copiedStream.Data)
	}
	// Mutating the copy must not touch the source.
	copiedStream.Data[0] = 'X'
	if string(stream.Data) != "payload" {
		t.Fatalf("source data aliased by the copy")
	}
}
