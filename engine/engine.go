// Package engine exposes the document operations consumed by the editor
// shell: loading page summaries, applying edit instructions, and merging
// documents.
//
// Every operation parses its own store and owns it for the duration of the
// call, so concurrent calls are safe. The engine does not lock output
// paths; a shell running concurrent saves against the same path must
// serialize them itself.
package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/teracodedev/pdfengine/ir/raw"
	"github.com/teracodedev/pdfengine/merge"
	"github.com/teracodedev/pdfengine/observability"
	"github.com/teracodedev/pdfengine/pagetree"
	"github.com/teracodedev/pdfengine/parser"
	"github.com/teracodedev/pdfengine/thumbnail"
	"github.com/teracodedev/pdfengine/transform"
	"github.com/teracodedev/pdfengine/writer"
)

// Thumbnailer supplies the per-page preview image. The default is the
// placeholder generator; a shell with a real rasterizer plugs in its own.
type Thumbnailer interface {
	DataURI(pageNumber int) (string, error)
}

type Config struct {
	Logger      observability.Logger
	Parser      parser.Config
	Writer      writer.Config
	Thumbnailer Thumbnailer
}

// PageSummary is the shell-facing view of one page.
type PageSummary struct {
	PageNumber int     `json:"page_number"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Rotation   int     `json:"rotation"`
	Thumbnail  string  `json:"thumbnail,omitempty"`
}

// DocumentInfo describes a loaded document.
type DocumentInfo struct {
	Path      string        `json:"path"`
	PageCount int           `json:"page_count"`
	Pages     []PageSummary `json:"pages"`
}

type Engine struct {
	cfg Config
}

func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	if cfg.Parser.Logger == nil {
		cfg.Parser.Logger = cfg.Logger
	}
	if cfg.Thumbnailer == nil {
		cfg.Thumbnailer = thumbnail.Default
	}
	return &Engine{cfg: cfg}
}

// Load parses the file at path and returns its page summaries.
func (e *Engine) Load(ctx context.Context, path string) (*DocumentInfo, error) {
	start := time.Now()
	doc, err := e.loadDocument(ctx, path)
	if err != nil {
		return nil, err
	}
	info, err := e.summarize(doc, path)
	if err != nil {
		return nil, err
	}
	e.cfg.Logger.Info("document loaded",
		observability.String("path", path),
		observability.Int(observability.MetricPageCount, info.PageCount),
		observability.Int64(observability.MetricParseTime, time.Since(start).Milliseconds()))
	return info, nil
}

// ApplyEdits loads path, applies the instructions, and writes the result to
// outputPath atomically.
func (e *Engine) ApplyEdits(ctx context.Context, path, outputPath string, inst transform.Instructions) error {
	doc, err := e.loadDocument(ctx, path)
	if err != nil {
		return err
	}
	edited, err := transform.Plan(doc, inst)
	if err != nil {
		return err
	}
	start := time.Now()
	if err := writer.WriteFile(edited, outputPath, e.cfg.Writer); err != nil {
		return err
	}
	e.cfg.Logger.Info("edits applied",
		observability.String("path", path),
		observability.String("output", outputPath),
		observability.Int64(observability.MetricWriteTime, time.Since(start).Milliseconds()))
	return nil
}

// Merge concatenates the pages of the given documents, in order, into
// outputPath.
func (e *Engine) Merge(ctx context.Context, paths []string, outputPath string) error {
	if len(paths) == 0 {
		return merge.ErrEmptyInput
	}
	start := time.Now()
	sources := make([]*raw.Document, 0, len(paths))
	for _, p := range paths {
		doc, err := e.loadDocument(ctx, p)
		if err != nil {
			return err
		}
		sources = append(sources, doc)
	}
	merged, err := merge.Merge(sources)
	if err != nil {
		return err
	}
	if err := writer.WriteFile(merged, outputPath, e.cfg.Writer); err != nil {
		return err
	}
	e.cfg.Logger.Info("documents merged",
		observability.Int("sources", len(paths)),
		observability.String("output", outputPath),
		observability.Int64(observability.MetricMergeTime, time.Since(start).Milliseconds()))
	return nil
}

func (e *Engine) loadDocument(ctx context.Context, path string) (*raw.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p := parser.NewDocumentParser(e.cfg.Parser)
	doc, err := p.Parse(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return doc, nil
}

func (e *Engine) summarize(doc *raw.Document, path string) (*DocumentInfo, error) {
	pages, diagnostics, err := pagetree.Enumerate(doc)
	if err != nil {
		return nil, err
	}
	for _, d := range diagnostics {
		e.cfg.Logger.Warn("page tree node skipped",
			observability.String("node", d.Ref.String()),
			observability.String("reason", d.Message))
	}

	info := &DocumentInfo{Path: path, PageCount: len(pages)}
	for _, node := range pages {
		attrs, err := pagetree.ResolveAttributes(doc, node)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", node.Number, err)
		}
		thumb, err := e.cfg.Thumbnailer.DataURI(node.Number)
		if err != nil {
			e.cfg.Logger.Warn("thumbnail generation failed",
				observability.Int("page", node.Number), observability.Error("cause", err))
			thumb = ""
		}
		info.Pages = append(info.Pages, PageSummary{
			PageNumber: node.Number,
			Width:      attrs.Width,
			Height:     attrs.Height,
			Rotation:   attrs.Rotate,
			Thumbnail:  thumb,
		})
	}
	return info, nil
}
