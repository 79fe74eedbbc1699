package xref

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/teracodedev/pdfengine/ir/raw"
	"github.com/teracodedev/pdfengine/recovery"
	"github.com/teracodedev/pdfengine/scanner"
)

// Table holds object offsets for a classic xref table.
type Table interface {
	Lookup(objNum int) (offset int64, gen int, found bool)
	Objects() []int
	Type() string
}

// Resolver locates and parses xref information in a PDF. After a successful
// Resolve the trailer dictionary is available through Trailer.
type Resolver interface {
	Resolve(ctx context.Context, r io.ReaderAt) (Table, error)
	Trailer() *raw.DictObj
	Repaired() bool
}

type ResolverConfig struct {
	// MaxXRefDepth bounds how many /Prev sections are followed. Zero means
	// the default of 32.
	MaxXRefDepth int
	Recovery     recovery.Strategy
}

func NewResolver(cfg ResolverConfig) Resolver {
	if cfg.MaxXRefDepth <= 0 {
		cfg.MaxXRefDepth = 32
	}
	return &tableResolver{cfg: cfg}
}

// tableResolver parses classic (non-stream) xref tables, following /Prev
// chains. Real-world files frequently carry stale or truncated tables, so
// any structural failure falls back to a full-file repair scan instead of
// aborting the load.
type tableResolver struct {
	cfg      ResolverConfig
	trailer  *raw.DictObj
	repaired bool
}

func (t *tableResolver) Trailer() *raw.DictObj { return t.trailer }
func (t *tableResolver) Repaired() bool        { return t.repaired }

func (t *tableResolver) Resolve(ctx context.Context, r io.ReaderAt) (Table, error) {
	data := readAll(r)

	table, trailer, err := t.resolveFromStartxref(ctx, data)
	if err == nil && trailer != nil {
		if _, hasRoot := trailer.Get(raw.NameLiteral("Root")); hasRoot {
			t.trailer = trailer
			return table, nil
		}
		err = errors.New("trailer has no Root entry")
	}
	if err == nil {
		err = errors.New("xref resolved without trailer")
	}

	// Rebuild from scratch.
	repairedTable, repairedTrailer, repErr := repair(ctx, r)
	if repErr != nil {
		return nil, fmt.Errorf("xref parse failed (%v) and repair failed: %w", err, repErr)
	}
	t.trailer = repairedTrailer
	t.repaired = true
	return repairedTable, nil
}

func (t *tableResolver) resolveFromStartxref(ctx context.Context, data []byte) (Table, *raw.DictObj, error) {
	startxref := bytes.LastIndex(data, []byte("startxref"))
	if startxref < 0 {
		return nil, nil, errors.New("startxref not found")
	}
	rest := data[startxref+len("startxref"):]
	lines := bufio.NewScanner(bytes.NewReader(rest))
	var offset int64 = -1
	for lines.Scan() {
		text := strings.TrimSpace(lines.Text())
		if text == "" {
			continue
		}
		val, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("parse startxref: %w", err)
		}
		offset = val
		break
	}
	if offset < 0 || offset >= int64(len(data)) {
		return nil, nil, fmt.Errorf("xref offset out of range: %d", offset)
	}

	entries := make(map[int]entry)
	var trailer *raw.DictObj
	seen := make(map[int64]bool)
	for depth := 0; ; depth++ {
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}
		if depth >= t.cfg.MaxXRefDepth {
			return nil, nil, errors.New("xref /Prev chain too deep")
		}
		if seen[offset] {
			return nil, nil, errors.New("xref /Prev chain loops")
		}
		seen[offset] = true

		sectionTrailer, err := parseSection(data, offset, entries)
		if err != nil {
			return nil, nil, err
		}
		if trailer == nil {
			trailer = sectionTrailer
		} else if sectionTrailer != nil {
			// Older sections only contribute keys the newest trailer lacks.
			for _, key := range sectionTrailer.Keys() {
				if _, ok := trailer.Get(key); !ok {
					v, _ := sectionTrailer.Get(key)
					trailer.Set(key, v)
				}
			}
		}
		if sectionTrailer == nil {
			break
		}
		prevObj, ok := sectionTrailer.Get(raw.NameLiteral("Prev"))
		if !ok {
			break
		}
		prev, ok := prevObj.(raw.NumberObj)
		if !ok || !prev.IsInteger() {
			return nil, nil, errors.New("trailer Prev is not an integer")
		}
		offset = prev.Int()
		if offset < 0 || offset >= int64(len(data)) {
			return nil, nil, fmt.Errorf("Prev offset out of range: %d", offset)
		}
	}

	return &table{entries: entries}, trailer, nil
}

// parseSection parses one xref section at offset. Entries already present in
// dst come from newer sections and are never overwritten.
func parseSection(data []byte, offset int64, dst map[int]entry) (*raw.DictObj, error) {
	sc := bufio.NewScanner(bytes.NewReader(data[offset:]))
	if !sc.Scan() || strings.TrimSpace(sc.Text()) != "xref" {
		return nil, errors.New("xref keyword not found at offset")
	}

	var trailerLine string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "trailer") {
			trailerLine = line
			break
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid xref subsection header: %q", line)
		}
		startObj, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("parse xref start: %w", err)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("parse xref count: %w", err)
		}

		for i := 0; i < count; i++ {
			if !sc.Scan() {
				return nil, errors.New("unexpected end of xref section")
			}
			entryLine := strings.TrimSpace(sc.Text())
			fields := strings.Fields(entryLine)
			if len(fields) < 3 {
				return nil, fmt.Errorf("invalid xref entry: %q", entryLine)
			}
			off, err := strconv.ParseInt(fields[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse xref offset: %w", err)
			}
			gen, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("parse xref gen: %w", err)
			}
			if len(fields[2]) == 0 || fields[2][0] != 'n' {
				continue // free entry
			}
			if _, exists := dst[startObj+i]; exists {
				continue
			}
			dst[startObj+i] = entry{offset: off, gen: gen}
		}
	}

	if trailerLine == "" {
		return nil, nil
	}
	// The trailer dictionary starts right after the "trailer" keyword.
	trailerStart := bytes.Index(data[offset:], []byte("trailer"))
	if trailerStart < 0 {
		return nil, nil
	}
	return parseTrailerDict(data, offset+int64(trailerStart)+int64(len("trailer")))
}

func parseTrailerDict(data []byte, offset int64) (*raw.DictObj, error) {
	s := scanner.New(bytes.NewReader(data[offset:]), scanner.Config{})
	obj, err := parseTokenObject(s)
	if err != nil {
		return nil, fmt.Errorf("parse trailer dict: %w", err)
	}
	dict, ok := obj.(*raw.DictObj)
	if !ok {
		return nil, errors.New("trailer is not a dictionary")
	}
	return dict, nil
}

type entry struct {
	offset int64
	gen    int
}

type table struct {
	entries map[int]entry
}

func (t *table) Lookup(objNum int) (int64, int, bool) {
	e, ok := t.entries[objNum]
	if !ok {
		return 0, 0, false
	}
	return e.offset, e.gen, true
}

func (t *table) Objects() []int {
	out := make([]int, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func (t *table) Type() string { return "table" }

func readAll(r io.ReaderAt) []byte {
	var buf bytes.Buffer
	const chunk = int64(32 * 1024)
	for off := int64(0); ; off += chunk {
		tmp := make([]byte, chunk)
		n, err := r.ReadAt(tmp, off)
		if n > 0 {
			buf.Write(tmp[:n])
		}
		if err != nil {
			break
		}
		if int64(n) < chunk {
			break
		}
	}
	return buf.Bytes()
}
