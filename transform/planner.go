package transform

import (
	"github.com/teracodedev/pdfengine/ir/raw"
	"github.com/teracodedev/pdfengine/pagetree"
)

// Plan applies inst to src and returns a new document. The source is never
// mutated. Selected page nodes are cloned and flattened (inherited
// attributes materialized onto the leaf); everything they reference is
// imported into the new store through one shared remap table, so a
// Resources dictionary shared by several pages stays shared in the output.
// Deleting every page is allowed and produces a well-formed zero-page
// document.
func Plan(src *raw.Document, inst Instructions) (*raw.Document, error) {
	pages, _, err := pagetree.Enumerate(src)
	if err != nil {
		return nil, err
	}
	byNumber := make(map[int]pagetree.PageNode, len(pages))
	for _, p := range pages {
		byNumber[p.Number] = p
	}
	deleted := make(map[int]bool, len(inst.DeletedPages))
	for _, n := range inst.DeletedPages {
		deleted[n] = true
	}

	version := src.Version
	if version == "" {
		version = "1.7"
	}
	dst := raw.NewDocument(version)
	remap := make(map[raw.ObjectRef]raw.ObjectRef)

	var leafRefs []raw.ObjectRef
	for _, pageNum := range inst.PageOrder {
		if deleted[pageNum] {
			continue
		}
		node, ok := byNumber[pageNum]
		if !ok {
			return nil, &UnknownPageNumberError{Page: pageNum, PageCount: len(pages)}
		}

		clone, err := ClonePage(src, node)
		if err != nil {
			return nil, err
		}
		if degrees, ok := inst.Rotations[pageNum]; ok {
			norm, err := pagetree.NormalizeRotation(degrees)
			if err != nil {
				return nil, &InvalidRotationError{Page: pageNum, Degrees: degrees, Err: err}
			}
			clone.Set(raw.NameLiteral("Rotate"), raw.NumberInt(int64(norm)))
		}

		imported, err := dst.Import(src, clone, remap)
		if err != nil {
			return nil, err
		}
		leafRefs = append(leafRefs, dst.Insert(imported))
	}

	BuildPageTree(dst, leafRefs)
	carryInfo(dst, src, remap)
	return dst, nil
}

// ClonePage returns a standalone copy of a page node: a shallow clone of
// its dictionary with the Parent link dropped and the inherited MediaBox,
// Rotate and Resources values written onto the leaf, so the page keeps its
// effective attributes outside its original tree. Contents and Resources
// stay references into the source store.
func ClonePage(src *raw.Document, node pagetree.PageNode) (*raw.DictObj, error) {
	attrs, err := pagetree.ResolveAttributes(src, node)
	if err != nil {
		return nil, err
	}
	clone := node.Dict.Clone()
	clone.Delete(raw.NameLiteral("Parent"))
	clone.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))

	if _, ok := clone.Get(raw.NameLiteral("MediaBox")); !ok {
		clone.Set(raw.NameLiteral("MediaBox"), raw.NewArray(
			raw.NumberFloat(attrs.MediaBox[0]),
			raw.NumberFloat(attrs.MediaBox[1]),
			raw.NumberFloat(attrs.MediaBox[2]),
			raw.NumberFloat(attrs.MediaBox[3]),
		))
	}
	if _, ok := clone.Get(raw.NameLiteral("Rotate")); !ok && attrs.Rotate != 0 {
		clone.Set(raw.NameLiteral("Rotate"), raw.NumberInt(int64(attrs.Rotate)))
	}
	if _, ok := clone.Get(raw.NameLiteral("Resources")); !ok && attrs.Resources != nil {
		clone.Set(raw.NameLiteral("Resources"), attrs.Resources)
	}
	return clone, nil
}

// carryInfo imports the source Info dictionary, when present, into dst.
func carryInfo(dst, src *raw.Document, remap map[raw.ObjectRef]raw.ObjectRef) {
	infoRef, ok := src.Info()
	if !ok {
		return
	}
	imported, err := dst.Import(src, raw.RefObj{R: infoRef}, remap)
	if err != nil {
		return
	}
	dst.Trailer.Set(raw.NameLiteral("Info"), imported)
}
