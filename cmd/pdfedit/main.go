// Command pdfedit drives the document engine from the shell: page listings,
// edit passes described by a YAML instruction file, and merges.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teracodedev/pdfengine/engine"
	"github.com/teracodedev/pdfengine/observability"
	"github.com/teracodedev/pdfengine/transform"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage:
  pdfedit info <in.pdf>
  pdfedit edit -instructions <edits.yaml> <in.pdf> <out.pdf>
  pdfedit merge <out.pdf> <in1.pdf> <in2.pdf> [...]
`)
	os.Exit(2)
}

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
	}

	eng := engine.New(engine.Config{Logger: stderrLogger{}})
	ctx := context.Background()

	switch os.Args[1] {
	case "info":
		if len(os.Args) != 3 {
			usage()
		}
		info, err := eng.Load(ctx, os.Args[2])
		if err != nil {
			log.Fatalf("pdfedit: %v", err)
		}
		fmt.Printf("%s: %d pages\n", info.Path, info.PageCount)
		for _, p := range info.Pages {
			fmt.Printf("  page %d: %.0fx%.0f rotate %d\n", p.PageNumber, p.Width, p.Height, p.Rotation)
		}

	case "edit":
		fs := flag.NewFlagSet("edit", flag.ExitOnError)
		instPath := fs.String("instructions", "", "YAML file with page_order, rotations and deleted_pages")
		fs.Parse(os.Args[2:])
		if *instPath == "" || fs.NArg() != 2 {
			usage()
		}
		inst, err := readInstructions(*instPath)
		if err != nil {
			log.Fatalf("pdfedit: %v", err)
		}
		if err := eng.ApplyEdits(ctx, fs.Arg(0), fs.Arg(1), inst); err != nil {
			log.Fatalf("pdfedit: %v", err)
		}

	case "merge":
		if len(os.Args) < 4 {
			usage()
		}
		if err := eng.Merge(ctx, os.Args[3:], os.Args[2]); err != nil {
			log.Fatalf("pdfedit: %v", err)
		}

	default:
		usage()
	}
}

func readInstructions(path string) (transform.Instructions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return transform.Instructions{}, err
	}
	var inst transform.Instructions
	if err := yaml.Unmarshal(data, &inst); err != nil {
		return transform.Instructions{}, fmt.Errorf("parse instructions %s: %w", path, err)
	}
	return inst, nil
}

// stderrLogger prints warnings and errors; debug output stays quiet.
type stderrLogger struct{}

func (stderrLogger) Debug(string, ...observability.Field) {}
func (stderrLogger) Info(string, ...observability.Field)  {}

func (stderrLogger) Warn(msg string, fields ...observability.Field) {
	logWithFields("warn", msg, fields)
}

func (stderrLogger) Error(msg string, fields ...observability.Field) {
	logWithFields("error", msg, fields)
}

func (l stderrLogger) With(...observability.Field) observability.Logger { return l }

func logWithFields(level, msg string, fields []observability.Field) {
	line := level + ": " + msg
	for _, f := range fields {
		line += fmt.Sprintf(" %s=%v", f.Key(), f.Value())
	}
	fmt.Fprintln(os.Stderr, line)
}
