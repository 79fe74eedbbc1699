package xref

import (
	"errors"

	"github.com/teracodedev/pdfengine/ir/raw"
	"github.com/teracodedev/pdfengine/scanner"
)

// parseTokenObject reads one object from the token stream. It covers the
// subset needed for trailer dictionaries; the full object loader lives in
// the parser package.
func parseTokenObject(s scanner.Scanner) (raw.Object, error) {
	tok, err := s.Next()
	if err != nil {
		return nil, err
	}
	return parseFromToken(s, tok)
}

func parseFromToken(s scanner.Scanner, tok scanner.Token) (raw.Object, error) {
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
	case scanner.TokenRef:
		return raw.Ref(int(tok.Int), tok.Gen), nil
	case scanner.TokenArray:
		arr := &raw.ArrayObj{}
		for {
			item, err := s.Next()
			if err != nil {
				return nil, err
			}
			if item.Type == scanner.TokenKeyword && item.Str == "]" {
				return arr, nil
			}
			obj, err := parseFromToken(s, item)
			if err != nil {
				return nil, err
			}
			arr.Append(obj)
		}
	case scanner.TokenDict:
		d := raw.Dict()
		for {
			keyTok, err := s.Next()
			if err != nil {
				return nil, err
			}
			if keyTok.Type == scanner.TokenKeyword && keyTok.Str == ">>" {
				return d, nil
			}
			if keyTok.Type != scanner.TokenName {
				return nil, errors.New("expected name in dict")
			}
			val, err := parseTokenObject(s)
			if err != nil {
				return nil, err
			}
			d.Set(raw.NameObj{Val: keyTok.Str}, val)
		}
	default:
		return nil, errors.New("unexpected token")
	}
}
