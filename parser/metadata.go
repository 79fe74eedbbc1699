package parser

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/unicode"

	"github.com/teracodedev/pdfengine/ir/raw"
)

// populateMetadata copies the Info dictionary's common fields onto the
// document. Failures here never abort a parse; metadata is advisory.
func (p *DocumentParser) populateMetadata(doc *raw.Document) {
	infoRef, ok := doc.Info()
	if !ok {
		return
	}
	obj, err := doc.Dereference(infoRef)
	if err != nil {
		return
	}
	dict, ok := obj.(*raw.DictObj)
	if !ok {
		return
	}
	md := raw.DocumentMetadata{}
	if v, ok := textValue(dict, "Title"); ok {
		md.Title = v
	}
	if v, ok := textValue(dict, "Author"); ok {
		md.Author = v
	}
	if v, ok := textValue(dict, "Creator"); ok {
		md.Creator = v
	}
	if v, ok := textValue(dict, "Producer"); ok {
		md.Producer = v
	}
	if v, ok := textValue(dict, "Subject"); ok {
		md.Subject = v
	}
	if v, ok := textValue(dict, "Keywords"); ok {
		for _, kw := range strings.Split(v, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				md.Keywords = append(md.Keywords, kw)
			}
		}
	}
	doc.Metadata = md
}

func textValue(dict *raw.DictObj, key string) (string, bool) {
	obj, ok := dict.Get(raw.NameLiteral(key))
	if !ok {
		return "", false
	}
	str, ok := obj.(raw.StringObj)
	if !ok {
		return "", false
	}
	return decodeTextString(str.Value()), true
}

// decodeTextString interprets a PDF text string: UTF-16BE when it carries a
// byte order mark, PDFDocEncoding otherwise (approximated as Latin-1, which
// agrees for all printable characters the Info fields normally hold).
func decodeTextString(b []byte) string {
	if bytes.HasPrefix(b, []byte{0xFE, 0xFF}) {
		// Decoders are stateful; build one per string.
		dec := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
		if decoded, err := dec.Bytes(b); err == nil {
			return string(decoded)
		}
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
