// Package merge combines the pages of several documents into one store,
// remapping object identifiers so that independently numbered sources never
// collide.
package merge

import (
	"errors"
	"fmt"

	"github.com/teracodedev/pdfengine/ir/raw"
	"github.com/teracodedev/pdfengine/pagetree"
	"github.com/teracodedev/pdfengine/transform"
)

// ErrEmptyInput is returned when no source documents are given.
var ErrEmptyInput = errors.New("merge: no input documents")

// Merge builds a new document whose pages are the concatenation of each
// source's pages, in source order. Every object reachable from a copied
// page is imported through a per-source remap table, so references stay
// consistent and objects shared within one source stay shared in the
// output. The Info dictionary comes from the first source only.
func Merge(sources []*raw.Document) (*raw.Document, error) {
	if len(sources) == 0 {
		return nil, ErrEmptyInput
	}

	version := sources[0].Version
	if version == "" {
		version = "1.7"
	}
	dst := raw.NewDocument(version)

	var leafRefs []raw.ObjectRef
	var firstRemap map[raw.ObjectRef]raw.ObjectRef
	for i, src := range sources {
		pages, _, err := pagetree.Enumerate(src)
		if err != nil {
			return nil, fmt.Errorf("merge: source %d: %w", i+1, err)
		}
		// One remap table per source: ObjectRefs are store-local, so a
		// table must never span documents.
		remap := make(map[raw.ObjectRef]raw.ObjectRef)
		if i == 0 {
			firstRemap = remap
		}
		for _, node := range pages {
			clone, err := transform.ClonePage(src, node)
			if err != nil {
				return nil, fmt.Errorf("merge: source %d page %d: %w", i+1, node.Number, err)
			}
			imported, err := dst.Import(src, clone, remap)
			if err != nil {
				return nil, fmt.Errorf("merge: source %d page %d: %w", i+1, node.Number, err)
			}
			leafRefs = append(leafRefs, dst.Insert(imported))
		}
	}

	transform.BuildPageTree(dst, leafRefs)
	carryFirstInfo(dst, sources[0], firstRemap)
	return dst, nil
}

func carryFirstInfo(dst, first *raw.Document, remap map[raw.ObjectRef]raw.ObjectRef) {
	infoRef, ok := first.Info()
	if !ok {
		return
	}
	imported, err := dst.Import(first, raw.RefObj{R: infoRef}, remap)
	if err != nil {
		return
	}
	dst.Trailer.Set(raw.NameLiteral("Info"), imported)
	dst.Metadata = first.Metadata
}
