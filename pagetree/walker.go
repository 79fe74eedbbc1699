// Package pagetree enumerates the leaves of a document's page tree and
// resolves the attributes they inherit from ancestor nodes.
package pagetree

import (
	"errors"
	"fmt"

	"github.com/teracodedev/pdfengine/ir/raw"
)

// PageNode is one leaf of the page tree in traversal order.
type PageNode struct {
	// Number is the 1-based position in depth-first, left-to-right
	// traversal order. It is assigned by visitation, never taken from the
	// document.
	Number int
	Ref    raw.ObjectRef
	Dict   *raw.DictObj
	// Chain holds the ancestor dictionaries from the tree root down to the
	// leaf's direct parent. The inheritance chain for the leaf is Chain
	// followed by the leaf itself.
	Chain []*raw.DictObj
}

// Diagnostic records a tree node that was skipped without aborting the walk.
type Diagnostic struct {
	Ref     raw.ObjectRef
	Message string
}

// CyclicPageTreeError reports a Kids cycle: a node reachable from itself.
type CyclicPageTreeError struct {
	Ref raw.ObjectRef
}

func (e *CyclicPageTreeError) Error() string {
	return fmt.Sprintf("page tree cycle through %s", e.Ref)
}

type walker struct {
	doc         *raw.Document
	pages       []PageNode
	diagnostics []Diagnostic
	onPath      map[raw.ObjectRef]bool
}

// Enumerate walks the page tree from the catalog's Pages entry and returns
// the leaves in order, along with diagnostics for skipped nodes.
func Enumerate(doc *raw.Document) ([]PageNode, []Diagnostic, error) {
	_, catalog, err := doc.Catalog()
	if err != nil {
		return nil, nil, err
	}
	pagesObj, ok := catalog.Get(raw.NameLiteral("Pages"))
	if !ok {
		return nil, nil, errors.New("catalog has no Pages entry")
	}
	ref, ok := pagesObj.(raw.RefObj)
	if !ok {
		return nil, nil, errors.New("catalog Pages is not a reference")
	}

	w := &walker{doc: doc, onPath: make(map[raw.ObjectRef]bool)}
	if err := w.walk(ref.R, nil); err != nil {
		return nil, nil, err
	}
	return w.pages, w.diagnostics, nil
}

func (w *walker) walk(ref raw.ObjectRef, chain []*raw.DictObj) error {
	if w.onPath[ref] {
		return &CyclicPageTreeError{Ref: ref}
	}
	obj, err := w.doc.Dereference(ref)
	if err != nil {
		return err
	}
	dict, ok := obj.(*raw.DictObj)
	if !ok {
		w.skip(ref, fmt.Sprintf("page tree node is a %s, not a dictionary", obj.Type()))
		return nil
	}

	switch nodeKind(dict) {
	case kindPage:
		w.pages = append(w.pages, PageNode{
			Number: len(w.pages) + 1,
			Ref:    ref,
			Dict:   dict,
			Chain:  chain,
		})
		return nil
	case kindPages:
		kidsObj, ok := dict.Get(raw.NameLiteral("Kids"))
		if !ok {
			w.skip(ref, "Pages node has no Kids")
			return nil
		}
		kids, err := w.doc.Resolve(kidsObj)
		if err != nil {
			return err
		}
		kidsArr, ok := kids.(*raw.ArrayObj)
		if !ok {
			w.skip(ref, "Kids is not an array")
			return nil
		}
		w.onPath[ref] = true
		defer delete(w.onPath, ref)
		childChain := append(chain[:len(chain):len(chain)], dict)
		for _, kid := range kidsArr.Items {
			kidRef, ok := kid.(raw.RefObj)
			if !ok {
				w.skip(ref, fmt.Sprintf("Kids entry is a direct %s, not a reference", kid.Type()))
				continue
			}
			if err := w.walk(kidRef.R, childChain); err != nil {
				return err
			}
		}
		return nil
	default:
		w.skip(ref, "node is neither Page nor Pages")
		return nil
	}
}

func (w *walker) skip(ref raw.ObjectRef, msg string) {
	w.diagnostics = append(w.diagnostics, Diagnostic{Ref: ref, Message: msg})
}

type kind int

const (
	kindOther kind = iota
	kindPage
	kindPages
)

// nodeKind classifies a tree node. A missing Type is inferred from the
// presence of Kids, which tolerates a common class of malformed writers.
func nodeKind(dict *raw.DictObj) kind {
	if tv, ok := dict.Get(raw.NameLiteral("Type")); ok {
		if name, ok := tv.(raw.NameObj); ok {
			switch name.Val {
			case "Page":
				return kindPage
			case "Pages":
				return kindPages
			}
		}
		return kindOther
	}
	if _, hasKids := dict.Get(raw.NameLiteral("Kids")); hasKids {
		return kindPages
	}
	return kindPage
}
