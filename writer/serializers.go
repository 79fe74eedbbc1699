package writer

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"

	"github.com/teracodedev/pdfengine/ir/raw"
)

// serializePrimitive renders one object value. Dictionary keys are written
// in sorted order so output is deterministic.
func serializePrimitive(o raw.Object) []byte {
	switch v := o.(type) {
	case raw.NameObj:
		return serializeName(v.Val)
	case raw.NumberObj:
		if v.IsInteger() {
			return []byte(strconv.FormatInt(v.Int(), 10))
		}
		return []byte(strconv.FormatFloat(v.Float(), 'f', -1, 64))
	case raw.BoolObj:
		if v.Value() {
			return []byte("true")
		}
		return []byte("false")
	case raw.NullObj:
		return []byte("null")
	case raw.StringObj:
		if v.IsHex() {
			return serializeHexString(v.Value())
		}
		return serializeLiteralString(v.Value())
	case *raw.ArrayObj:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.Write(serializePrimitive(it))
		}
		b.WriteByte(']')
		return b.Bytes()
	case *raw.DictObj:
		var b bytes.Buffer
		b.WriteString("<<")
		keys := make([]string, 0, len(v.KV))
		for k := range v.KV {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.Write(serializeName(k))
			b.WriteByte(' ')
			b.Write(serializePrimitive(v.KV[k]))
		}
		b.WriteString(">>")
		return b.Bytes()
	case *raw.StreamObj:
		var b bytes.Buffer
		dict := v.Dict.Clone()
		dict.Set(raw.NameLiteral("Length"), raw.NumberInt(int64(len(v.Data))))
		b.Write(serializePrimitive(dict))
		b.WriteString("\nstream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
		return b.Bytes()
	case raw.RefObj:
		return []byte(fmt.Sprintf("%d %d R", v.Ref().Num, v.Ref().Gen))
	default:
		return []byte("null")
	}
}

func serializeName(name string) []byte {
	var b bytes.Buffer
	b.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 0x20 || c >= 0x7F || isNameDelimiter(c) {
			fmt.Fprintf(&b, "#%02X", c)
			continue
		}
		b.WriteByte(c)
	}
	return b.Bytes()
}

func isNameDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%', '#':
		return true
	default:
		return false
	}
}

func serializeLiteralString(s []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('(')
	for _, c := range s {
		switch c {
		case '(', ')', '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte(')')
	return b.Bytes()
}

func serializeHexString(s []byte) []byte {
	var b bytes.Buffer
	b.WriteByte('<')
	for _, c := range s {
		fmt.Fprintf(&b, "%02X", c)
	}
	b.WriteByte('>')
	return b.Bytes()
}
