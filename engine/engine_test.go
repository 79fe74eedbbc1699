package engine

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/teracodedev/pdfengine/ir/raw"
	"github.com/teracodedev/pdfengine/transform"
	"github.com/teracodedev/pdfengine/writer"
)

// writeFixture creates a PDF file with pageCount pages, each with its own
// MediaBox of width 100*i, and returns its path.
func writeFixture(t *testing.T, dir, name string, pageCount int) string {
	t.Helper()
	doc := raw.NewDocument("1.7")
	var leaves []raw.ObjectRef
	for i := 1; i <= pageCount; i++ {
		page := raw.Dict()
		page.Set(raw.NameLiteral("Type"), raw.NameLiteral("Page"))
		page.Set(raw.NameLiteral("MediaBox"), raw.NewArray(
			raw.NumberInt(0), raw.NumberInt(0),
			raw.NumberInt(int64(100*i)), raw.NumberInt(800),
		))
		leaves = append(leaves, doc.Insert(page))
	}
	transform.BuildPageTree(doc, leaves)

	path := filepath.Join(dir, name)
	if err := writer.WriteFile(doc, path, writer.Config{}); err != nil {
		t.Fatalf("fixture %s: %v", name, err)
	}
	return path
}

func TestEngineLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "three.pdf", 3)

	eng := New(Config{})
	info, err := eng.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if info.PageCount != 3 || len(info.Pages) != 3 {
		t.Fatalf("expected 3 pages, got %d (%d summaries)", info.PageCount, len(info.Pages))
	}
	for i, p := range info.Pages {
		if p.PageNumber != i+1 {
			t.Fatalf("summary %d has page number %d", i, p.PageNumber)
		}
		if p.Width != float64(100*(i+1)) || p.Height != 800 {
			t.Fatalf("page %d size %gx%g", p.PageNumber, p.Width, p.Height)
		}
		if !strings.HasPrefix(p.Thumbnail, "data:image/png;base64,") {
			t.Fatalf("page %d thumbnail is not a PNG data URI", p.PageNumber)
		}
	}
}

func TestEngineLoadMissingFile(t *testing.T) {
	eng := New(Config{})
	if _, err := eng.Load(context.Background(), filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestEngineApplyEdits(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, "in.pdf", 3)
	out := filepath.Join(dir, "out.pdf")

	eng := New(Config{})
	inst := transform.Instructions{
		PageOrder: []int{3, 1},
		Rotations: map[int]int{1: 450},
	}
	if err := eng.ApplyEdits(context.Background(), in, out, inst); err != nil {
		t.Fatalf("apply edits failed: %v", err)
	}

	info, err := eng.Load(context.Background(), out)
	if err != nil {
		t.Fatalf("load of edited file failed: %v", err)
	}
	if info.PageCount != 2 {
		t.Fatalf("expected 2 pages, got %d", info.PageCount)
	}
	if info.Pages[0].Width != 300 {
		t.Fatalf("first page should be old page 3, width %g", info.Pages[0].Width)
	}
	if info.Pages[1].Width != 100 || info.Pages[1].Rotation != 90 {
		t.Fatalf("second page should be old page 1 rotated 90, got width %g rotation %d",
			info.Pages[1].Width, info.Pages[1].Rotation)
	}

	// The input file is untouched.
	original, err := eng.Load(context.Background(), in)
	if err != nil {
		t.Fatalf("reload of input failed: %v", err)
	}
	if original.PageCount != 3 {
		t.Fatalf("input mutated: %d pages", original.PageCount)
	}
}

func TestEngineApplyEditsInvalidRotation(t *testing.T) {
	dir := t.TempDir()
	in := writeFixture(t, dir, "in.pdf", 1)
	out := filepath.Join(dir, "out.pdf")

	eng := New(Config{})
	inst := transform.Instructions{PageOrder: []int{1}, Rotations: map[int]int{1: 30}}
	if err := eng.ApplyEdits(context.Background(), in, out, inst); err == nil {
		t.Fatalf("expected rotation error")
	}
}

func TestEngineMerge(t *testing.T) {
	dir := t.TempDir()
	a := writeFixture(t, dir, "a.pdf", 3)
	b := writeFixture(t, dir, "b.pdf", 4)
	out := filepath.Join(dir, "merged.pdf")

	eng := New(Config{})
	if err := eng.Merge(context.Background(), []string{a, b}, out); err != nil {
		t.Fatalf("merge failed: %v", err)
	}

	info, err := eng.Load(context.Background(), out)
	if err != nil {
		t.Fatalf("load of merged file failed: %v", err)
	}
	if info.PageCount != 7 {
		t.Fatalf("expected 7 pages, got %d", info.PageCount)
	}
}

func TestEngineMergeNoInputs(t *testing.T) {
	eng := New(Config{})
	if err := eng.Merge(context.Background(), nil, "out.pdf"); err == nil {
		t.Fatalf("expected error for empty input list")
	}
}

type failingThumbnailer struct{}

func (failingThumbnailer) DataURI(int) (string, error) {
	return "", context.DeadlineExceeded
}

func TestEngineLoadToleratesThumbnailFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "one.pdf", 1)

	eng := New(Config{Thumbnailer: failingThumbnailer{}})
	info, err := eng.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if info.Pages[0].Thumbnail != "" {
		t.Fatalf("expected empty thumbnail, got %q", info.Pages[0].Thumbnail)
	}
}
