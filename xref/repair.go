package xref

import (
	"context"
	"errors"
	"io"

	"github.com/teracodedev/pdfengine/ir/raw"
	"github.com/teracodedev/pdfengine/scanner"
)

// repair scans the entire file to reconstruct the xref table. It looks for
// "<num> <gen> obj" patterns and keeps the last trailer dictionary it finds.
// Later definitions of the same object number win, matching how viewers
// treat files with appended updates.
func repair(ctx context.Context, r io.ReaderAt) (Table, *raw.DictObj, error) {
	s := scanner.New(r, scanner.Config{})
	entries := make(map[int]entry)
	var lastTrailer *raw.DictObj

	for {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		tok, err := s.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			// Skip over garbage during a repair scan.
			if seekErr := s.SeekTo(s.Position() + 1); seekErr != nil {
				break
			}
			continue
		}

		switch {
		case tok.Type == scanner.TokenNumber && tok.IsInt:
			objNum := int(tok.Int)

			tokGen, err := s.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				continue
			}
			if tokGen.Type != scanner.TokenNumber || !tokGen.IsInt {
				continue
			}
			gen := int(tokGen.Int)

			tokObj, err := s.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				continue
			}
			if tokObj.Type == scanner.TokenKeyword && tokObj.Str == "obj" {
				entries[objNum] = entry{offset: tok.Pos, gen: gen}
				continue
			}
			// tokGen itself could be the start of an object header
			// ("1 2 0 obj" seen as "1 2" then "0"); back up to it.
			if err := s.SeekTo(tokGen.Pos); err != nil {
				return nil, nil, err
			}

		case tok.Type == scanner.TokenKeyword && tok.Str == "trailer":
			obj, err := parseTokenObject(s)
			if err == nil {
				if dict, ok := obj.(*raw.DictObj); ok {
					lastTrailer = dict
				}
			}
		}
	}

	if len(entries) == 0 {
		return nil, nil, errors.New("repair failed: no objects found")
	}

	if lastTrailer == nil {
		lastTrailer = raw.Dict()
	}
	if _, ok := lastTrailer.Get(raw.NameLiteral("Size")); !ok {
		max := 0
		for num := range entries {
			if num > max {
				max = num
			}
		}
		lastTrailer.Set(raw.NameLiteral("Size"), raw.NumberInt(int64(max+1)))
	}

	return &table{entries: entries}, lastTrailer, nil
}
