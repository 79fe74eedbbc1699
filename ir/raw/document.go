package raw

import (
	"errors"
	"fmt"
)

// Document is the object store for one PDF: the exclusive owner of every
// parsed object, addressed by ObjectRef. Cross-object relationships are
// plain References into the store, never embedded copies, so several pages
// can share one Resources or Contents object.
type Document struct {
	Objects  map[ObjectRef]Object
	Trailer  *DictObj
	Version  string // e.g., "1.7"
	Metadata DocumentMetadata

	nextNum int
}

// NewDocument returns an empty store with a fresh trailer.
func NewDocument(version string) *Document {
	return &Document{
		Objects: make(map[ObjectRef]Object),
		Trailer: Dict(),
		Version: version,
	}
}

// DanglingReferenceError reports a Reference whose target does not exist in
// the store.
type DanglingReferenceError struct {
	Ref ObjectRef
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference: %s", e.Ref)
}

// Dereference returns the object addressed by ref. A ref whose exact
// generation is absent falls back to any stored generation of the same
// number; real-world files frequently disagree on generations after an
// incremental save.
func (d *Document) Dereference(ref ObjectRef) (Object, error) {
	if obj, ok := d.Objects[ref]; ok {
		return obj, nil
	}
	for stored, obj := range d.Objects {
		if stored.Num == ref.Num {
			return obj, nil
		}
	}
	return nil, &DanglingReferenceError{Ref: ref}
}

// Resolve follows obj through at most one level of indirection: a Reference
// is dereferenced, anything else is returned unchanged.
func (d *Document) Resolve(obj Object) (Object, error) {
	if ref, ok := obj.(RefObj); ok {
		return d.Dereference(ref.R)
	}
	return obj, nil
}

// Insert stores obj under a fresh ObjectRef (monotonically increasing
// number, generation 0) and returns it.
func (d *Document) Insert(obj Object) ObjectRef {
	ref := d.allocRef()
	d.Objects[ref] = obj
	return ref
}

// allocRef reserves the next free object number without storing anything.
func (d *Document) allocRef() ObjectRef {
	if d.nextNum == 0 {
		max := 0
		for ref := range d.Objects {
			if ref.Num > max {
				max = ref.Num
			}
		}
		d.nextNum = max + 1
	}
	ref := ObjectRef{Num: d.nextNum, Gen: 0}
	d.nextNum++
	return ref
}

// Catalog returns the root catalog named by the trailer.
func (d *Document) Catalog() (ObjectRef, *DictObj, error) {
	if d.Trailer == nil {
		return ObjectRef{}, nil, errors.New("document has no trailer")
	}
	rootObj, ok := d.Trailer.Get(NameLiteral("Root"))
	if !ok {
		return ObjectRef{}, nil, errors.New("trailer has no Root entry")
	}
	ref, ok := rootObj.(RefObj)
	if !ok {
		return ObjectRef{}, nil, errors.New("trailer Root is not a reference")
	}
	obj, err := d.Dereference(ref.R)
	if err != nil {
		return ObjectRef{}, nil, err
	}
	dict, ok := obj.(*DictObj)
	if !ok {
		return ObjectRef{}, nil, fmt.Errorf("catalog %s is not a dictionary", ref.R)
	}
	return ref.R, dict, nil
}

// Info returns the trailer's Info reference, if any.
func (d *Document) Info() (ObjectRef, bool) {
	if d.Trailer == nil {
		return ObjectRef{}, false
	}
	obj, ok := d.Trailer.Get(NameLiteral("Info"))
	if !ok {
		return ObjectRef{}, false
	}
	ref, ok := obj.(RefObj)
	if !ok {
		return ObjectRef{}, false
	}
	return ref.R, true
}
