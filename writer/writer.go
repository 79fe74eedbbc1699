// Package writer serializes a document store to PDF bytes: header, body
// objects, cross-reference table and trailer.
package writer

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/teracodedev/pdfengine/ir/raw"
)

// Config controls serialization.
type Config struct {
	// Version overrides the document's header version. Empty falls back to
	// the document's own version, then "1.7".
	Version string
}

// SerializationError reports an internally inconsistent store that cannot
// be written as a valid file.
type SerializationError struct {
	Reason string
}

func (e *SerializationError) Error() string { return "serialize: " + e.Reason }

// Write emits the document as a complete PDF file. The output is assembled
// in memory and written in one call, so w never observes a truncated file.
// Before the xref table is emitted the store is checked for the classic
// "file won't open" defects: duplicate object numbers, a missing root
// catalog, and an entry count that disagrees with the trailer Size.
func Write(doc *raw.Document, w io.Writer, cfg Config) error {
	version := cfg.Version
	if version == "" {
		version = doc.Version
	}
	if version == "" {
		version = "1.7"
	}

	refs := make([]raw.ObjectRef, 0, len(doc.Objects))
	seen := make(map[int]bool, len(doc.Objects))
	maxNum := 0
	for ref := range doc.Objects {
		if seen[ref.Num] {
			return &SerializationError{Reason: fmt.Sprintf("object number %d appears more than once", ref.Num)}
		}
		seen[ref.Num] = true
		if ref.Num > maxNum {
			maxNum = ref.Num
		}
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Num < refs[j].Num })

	rootRef, err := checkedRoot(doc)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n", version)
	buf.WriteString("%\xE2\xE3\xCF\xD3\n")

	offsets := make(map[int]int64, len(refs))
	for _, ref := range refs {
		offsets[ref.Num] = int64(buf.Len())
		fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
		buf.Write(serializePrimitive(doc.Objects[ref]))
		buf.WriteString("\nendobj\n")
	}

	// xref: one section covering 0..maxNum, free entries fill the gaps.
	size := maxNum + 1
	xrefOffset := int64(buf.Len())
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	entries := 0
	buf.WriteString("0000000000 65535 f \n")
	entries++
	for num := 1; num <= maxNum; num++ {
		if off, ok := offsets[num]; ok {
			fmt.Fprintf(&buf, "%010d %05d n \n", off, genFor(refs, num))
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
		entries++
	}
	if entries != size {
		return &SerializationError{Reason: fmt.Sprintf("xref has %d entries but declares %d", entries, size)}
	}

	trailer := raw.Dict()
	trailer.Set(raw.NameLiteral("Size"), raw.NumberInt(int64(size)))
	trailer.Set(raw.NameLiteral("Root"), raw.Ref(rootRef.Num, rootRef.Gen))
	if infoRef, ok := doc.Info(); ok {
		if _, exists := doc.Objects[infoRef]; exists {
			trailer.Set(raw.NameLiteral("Info"), raw.Ref(infoRef.Num, infoRef.Gen))
		}
	}
	buf.WriteString("trailer\n")
	buf.Write(serializePrimitive(trailer))
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOffset)

	_, err = w.Write(buf.Bytes())
	return err
}

// WriteFile serializes the document to path atomically: the bytes go to a
// temporary file in the same directory, which is renamed over path only
// after a successful write and sync. A failed serialization leaves no file
// behind.
func WriteFile(doc *raw.Document, path string, cfg Config) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".pdfengine-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if err := Write(doc, tmp, cfg); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func checkedRoot(doc *raw.Document) (raw.ObjectRef, error) {
	if doc.Trailer == nil {
		return raw.ObjectRef{}, &SerializationError{Reason: "document has no trailer"}
	}
	rootObj, ok := doc.Trailer.Get(raw.NameLiteral("Root"))
	if !ok {
		return raw.ObjectRef{}, &SerializationError{Reason: "trailer has no Root entry"}
	}
	ref, ok := rootObj.(raw.RefObj)
	if !ok {
		return raw.ObjectRef{}, &SerializationError{Reason: "trailer Root is not a reference"}
	}
	if _, exists := doc.Objects[ref.R]; !exists {
		return raw.ObjectRef{}, &SerializationError{Reason: fmt.Sprintf("root catalog %s is not in the store", ref.R)}
	}
	return ref.R, nil
}

func genFor(refs []raw.ObjectRef, num int) int {
	i := sort.Search(len(refs), func(i int) bool { return refs[i].Num >= num })
	if i < len(refs) && refs[i].Num == num {
		return refs[i].Gen
	}
	return 0
}
