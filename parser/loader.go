package parser

import (
	"errors"
	"fmt"
	"io"

	"github.com/teracodedev/pdfengine/ir/raw"
	"github.com/teracodedev/pdfengine/recovery"
	"github.com/teracodedev/pdfengine/scanner"
	"github.com/teracodedev/pdfengine/xref"
)

// objectLoader reads indirect objects at their xref offsets. Stream payloads
// stay raw; the engine never decodes filters.
type objectLoader struct {
	reader   io.ReaderAt
	table    xref.Table
	recovery recovery.Strategy
	scanner  scanner.Scanner
}

func newObjectLoader(r io.ReaderAt, table xref.Table, rec recovery.Strategy) *objectLoader {
	return &objectLoader{reader: r, table: table, recovery: rec}
}

func (o *objectLoader) load(objNum int, offset int64, gen int) (raw.Object, error) {
	if o.scanner == nil {
		o.scanner = scanner.New(o.reader, scanner.Config{Recovery: o.recovery})
	}
	return o.scanObject(o.scanner, objNum, offset, gen)
}

func (o *objectLoader) scanObject(s scanner.Scanner, objNum int, offset int64, gen int) (raw.Object, error) {
	if err := s.SeekTo(offset); err != nil {
		return nil, err
	}
	tr := newTokenReader(s)

	// Expect "<objNum> <gen> obj"
	tokNum, err := tr.next()
	if err != nil {
		return nil, err
	}
	if tokNum.Type != scanner.TokenNumber || !tokNum.IsInt || int(tokNum.Int) != objNum {
		return nil, errors.New("object header number mismatch")
	}
	tokGen, err := tr.next()
	if err != nil {
		return nil, err
	}
	if tokGen.Type != scanner.TokenNumber || !tokGen.IsInt || int(tokGen.Int) != gen {
		return nil, errors.New("object header generation mismatch")
	}
	tokObj, err := tr.next()
	if err != nil {
		return nil, err
	}
	if tokObj.Type != scanner.TokenKeyword || tokObj.Str != "obj" {
		return nil, errors.New("expected obj keyword")
	}

	obj, err := parseObject(tr, o.recovery, objNum, gen)
	if err != nil {
		return nil, err
	}
	if dict, ok := obj.(*raw.DictObj); ok {
		hint, err := o.resolveStreamLength(dict)
		if err != nil {
			return nil, err
		}
		if hint > 0 {
			tr.setStreamLengthHint(hint)
		} else {
			tr.clearStreamLengthHint()
		}
		if streamTok, err := tr.next(); err == nil && streamTok.Type == scanner.TokenStream {
			obj = raw.NewStream(dict, streamTok.Bytes)
		} else if err == nil {
			tr.unread(streamTok)
		}
	}
	return obj, nil
}

// resolveStreamLength returns the declared /Length, chasing one level of
// indirection when the length itself is an indirect object.
func (o *objectLoader) resolveStreamLength(dict *raw.DictObj) (int64, error) {
	val, ok := dict.Get(raw.NameLiteral("Length"))
	if !ok {
		return 0, nil
	}
	switch v := val.(type) {
	case raw.NumberObj:
		return v.Int(), nil
	case raw.RefObj:
		offset, gen, found := o.table.Lookup(v.R.Num)
		if !found {
			return 0, fmt.Errorf("object %d missing for length reference", v.R.Num)
		}
		// A temporary scanner keeps the shared cursor intact.
		tmp := scanner.New(o.reader, scanner.Config{Recovery: o.recovery})
		obj, err := o.scanObject(tmp, v.R.Num, offset, gen)
		if err != nil {
			return 0, err
		}
		if num, ok := obj.(raw.NumberObj); ok {
			return num.Int(), nil
		}
		return 0, fmt.Errorf("length reference %s is not numeric", v.R)
	default:
		return 0, nil
	}
}

// tokenReader adds one-token pushback over a scanner.

type streamLengthSetter interface{ SetNextStreamLength(int64) }

type tokenReader struct {
	s            interface{ Next() (scanner.Token, error) }
	buf          []scanner.Token
	lengthSetter streamLengthSetter
}

func newTokenReader(src interface{ Next() (scanner.Token, error) }) *tokenReader {
	tr := &tokenReader{s: src}
	if setter, ok := src.(streamLengthSetter); ok {
		tr.lengthSetter = setter
	}
	return tr
}

func (r *tokenReader) next() (scanner.Token, error) {
	if l := len(r.buf); l > 0 {
		t := r.buf[l-1]
		r.buf = r.buf[:l-1]
		return t, nil
	}
	return r.s.Next()
}

func (r *tokenReader) unread(tok scanner.Token) { r.buf = append(r.buf, tok) }

func (r *tokenReader) setStreamLengthHint(n int64) {
	if r.lengthSetter != nil && n > 0 {
		r.lengthSetter.SetNextStreamLength(n)
	}
}

func (r *tokenReader) clearStreamLengthHint() {
	if r.lengthSetter != nil {
		r.lengthSetter.SetNextStreamLength(-1)
	}
}

func parseObject(tr *tokenReader, rec recovery.Strategy, objNum, gen int) (raw.Object, error) {
	tok, err := tr.next()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case scanner.TokenName:
		return raw.NameObj{Val: tok.Str}, nil
	case scanner.TokenNumber:
		if tok.IsInt {
			return raw.NumberObj{I: tok.Int, IsInt: true}, nil
		}
		return raw.NumberObj{F: tok.Float}, nil
	case scanner.TokenBoolean:
		return raw.BoolObj{V: tok.Bool}, nil
	case scanner.TokenNull:
		return raw.NullObj{}, nil
	case scanner.TokenString:
		return raw.StringObj{Bytes: tok.Bytes, Hex: tok.IsHex}, nil
	case scanner.TokenArray:
		return parseArray(tr, rec, objNum, gen)
	case scanner.TokenDict:
		return parseDict(tr, rec, objNum, gen)
	case scanner.TokenRef:
		return raw.Ref(int(tok.Int), tok.Gen), nil
	case scanner.TokenKeyword:
		if tok.Str == "endobj" {
			return nil, errors.New("unexpected endobj")
		}
	}
	return nil, fmt.Errorf("unexpected token %q in object %d", tok.Str, objNum)
}

func parseArray(tr *tokenReader, rec recovery.Strategy, objNum, gen int) (raw.Object, error) {
	arr := &raw.ArrayObj{}
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == "]" {
			break
		}
		tr.unread(tok)
		item, err := parseObject(tr, rec, objNum, gen)
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
	return arr, nil
}

func parseDict(tr *tokenReader, rec recovery.Strategy, objNum, gen int) (raw.Object, error) {
	d := raw.Dict()
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == ">>" {
			break
		}
		if tok.Type != scanner.TokenName {
			// A dict that runs into endobj lost its closing ">>".
			if tok.Type == scanner.TokenKeyword && tok.Str == "endobj" {
				err := errors.New("unexpected endobj in dict (missing >>?)")
				if rec != nil {
					action := rec.OnError(err, recovery.Location{ObjectNum: objNum, ObjectGen: gen, Component: "parser"})
					if action == recovery.ActionWarn || action == recovery.ActionFix {
						tr.unread(tok)
						break
					}
				}
				return nil, err
			}
			return nil, errors.New("expected name in dict")
		}
		key := tok.Str
		val, err := parseObject(tr, rec, objNum, gen)
		if err != nil {
			return nil, err
		}
		d.Set(raw.NameObj{Val: key}, val)
	}
	return d, nil
}
