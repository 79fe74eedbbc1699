package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/teracodedev/pdfengine/ir/raw"
	"github.com/teracodedev/pdfengine/observability"
	"github.com/teracodedev/pdfengine/recovery"
	"github.com/teracodedev/pdfengine/xref"
)

// ParseError reports malformed header, xref, or object syntax that survived
// the repair fallback.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Op, e.Err) }
func (e *ParseError) Unwrap() error { return e.Err }

// Config controls high-level PDF parsing (xref resolution + object loading).
type Config struct {
	Recovery recovery.Strategy
	XRef     xref.ResolverConfig
	Logger   observability.Logger
}

// DocumentParser builds a raw.Document from file bytes: xref resolution,
// object loading, trailer and metadata extraction.
type DocumentParser struct {
	cfg Config
}

func NewDocumentParser(cfg Config) *DocumentParser {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.XRef.Recovery == nil {
		cfg.XRef.Recovery = cfg.Recovery
	}
	return &DocumentParser{cfg: cfg}
}

func (p *DocumentParser) Parse(ctx context.Context, r io.ReaderAt) (*raw.Document, error) {
	resolver := xref.NewResolver(p.cfg.XRef)
	table, err := resolver.Resolve(ctx, r)
	if err != nil {
		return nil, &ParseError{Op: "xref", Err: err}
	}
	if resolver.Repaired() {
		p.cfg.Logger.Warn("xref table rebuilt from full-file scan")
	}

	loader := newObjectLoader(r, table, p.cfg.Recovery)

	doc := &raw.Document{
		Objects: make(map[raw.ObjectRef]raw.Object),
		Trailer: resolver.Trailer(),
		Version: detectHeaderVersion(r),
	}
	if doc.Trailer == nil {
		doc.Trailer = raw.Dict()
	}

	for _, objNum := range table.Objects() {
		if objNum == 0 {
			continue // free head entry
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		offset, gen, found := table.Lookup(objNum)
		if !found {
			continue
		}
		ref := raw.ObjectRef{Num: objNum, Gen: gen}
		obj, err := loader.load(objNum, offset, gen)
		if err != nil {
			if p.tolerate(err, ref) {
				p.cfg.Logger.Warn("skipping unreadable object",
					observability.Int("object", objNum), observability.Error("cause", err))
				continue
			}
			return nil, &ParseError{Op: fmt.Sprintf("object %d", objNum), Err: err}
		}
		doc.Objects[ref] = obj
	}

	if err := p.ensureRoot(doc); err != nil {
		return nil, &ParseError{Op: "catalog", Err: err}
	}
	p.populateMetadata(doc)

	p.cfg.Logger.Debug("document parsed",
		observability.Int(observability.MetricObjectCount, len(doc.Objects)),
		observability.String("version", doc.Version))
	return doc, nil
}

func (p *DocumentParser) tolerate(err error, ref raw.ObjectRef) bool {
	if p.cfg.Recovery == nil {
		return false
	}
	action := p.cfg.Recovery.OnError(err, recovery.Location{
		ObjectNum: ref.Num,
		ObjectGen: ref.Gen,
		Component: "parser",
	})
	return action == recovery.ActionSkip || action == recovery.ActionFix
}

// ensureRoot patches a trailer that lost its Root entry (a repaired file may
// never have had a readable trailer) by locating the catalog object.
func (p *DocumentParser) ensureRoot(doc *raw.Document) error {
	if _, ok := doc.Trailer.Get(raw.NameLiteral("Root")); ok {
		return nil
	}
	for ref, obj := range doc.Objects {
		dict, ok := obj.(*raw.DictObj)
		if !ok {
			continue
		}
		if tv, ok := dict.Get(raw.NameLiteral("Type")); ok {
			if name, ok := tv.(raw.NameObj); ok && name.Val == "Catalog" {
				doc.Trailer.Set(raw.NameLiteral("Root"), raw.Ref(ref.Num, ref.Gen))
				p.cfg.Logger.Warn("trailer Root recovered from catalog scan",
					observability.Int("object", ref.Num))
				return nil
			}
		}
	}
	return errors.New("no root catalog found")
}

func detectHeaderVersion(r io.ReaderAt) string {
	buf := make([]byte, 64)
	n, err := r.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	line := string(buf[:n])
	for _, sep := range []string{"\r\n", "\n", "\r"} {
		if idx := strings.Index(line, sep); idx >= 0 {
			line = line[:idx]
			break
		}
	}
	if strings.HasPrefix(line, "%PDF-") && len(line) >= 8 {
		return strings.TrimSpace(line[5:])
	}
	return ""
}
