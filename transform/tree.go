package transform

import "github.com/teracodedev/pdfengine/ir/raw"

// BuildPageTree assembles a single Pages node over the given leaves plus a
// catalog, wires every leaf's Parent pointer, and points the trailer Root
// at the catalog. The Pages node always declares Kids and an accurate
// Count, even for zero leaves.
func BuildPageTree(dst *raw.Document, leaves []raw.ObjectRef) raw.ObjectRef {
	kids := raw.NewArray()
	for _, leaf := range leaves {
		kids.Append(raw.Ref(leaf.Num, leaf.Gen))
	}
	pagesDict := raw.Dict()
	pagesDict.Set(raw.NameLiteral("Type"), raw.NameLiteral("Pages"))
	pagesDict.Set(raw.NameLiteral("Kids"), kids)
	pagesDict.Set(raw.NameLiteral("Count"), raw.NumberInt(int64(len(leaves))))
	pagesRef := dst.Insert(pagesDict)

	for _, leaf := range leaves {
		if dict, ok := dst.Objects[leaf].(*raw.DictObj); ok {
			dict.Set(raw.NameLiteral("Parent"), raw.Ref(pagesRef.Num, pagesRef.Gen))
		}
	}

	catalog := raw.Dict()
	catalog.Set(raw.NameLiteral("Type"), raw.NameLiteral("Catalog"))
	catalog.Set(raw.NameLiteral("Pages"), raw.Ref(pagesRef.Num, pagesRef.Gen))
	catalogRef := dst.Insert(catalog)

	dst.Trailer.Set(raw.NameLiteral("Root"), raw.Ref(catalogRef.Num, catalogRef.Gen))
	return catalogRef
}
