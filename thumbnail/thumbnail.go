// Package thumbnail produces placeholder page thumbnails. Rendering real
// page content is the job of an external rasterizer; the engine only emits
// a labeled stand-in so the shell always has something to display.
package thumbnail

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strconv"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Generator draws page-number placeholders of a fixed pixel size.
type Generator struct {
	Width  int
	Height int
}

// Default matches the shell's thumbnail cell (portrait, letter-ish ratio).
var Default = Generator{Width: 100, Height: 141}

var (
	background = color.RGBA{R: 0xF0, G: 0xF0, B: 0xF0, A: 0xFF}
	borderGray = color.RGBA{R: 0xCC, G: 0xCC, B: 0xCC, A: 0xFF}
	labelGray  = color.RGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xFF}
)

// DataURI returns a PNG data URI showing the page number centered on a
// bordered gray card.
func (g Generator) DataURI(pageNumber int) (string, error) {
	w, h := g.Width, g.Height
	if w <= 0 || h <= 0 {
		w, h = Default.Width, Default.Height
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x == 0 || y == 0 || x == w-1 || y == h-1 {
				img.Set(x, y, borderGray)
			} else {
				img.Set(x, y, background)
			}
		}
	}

	label := strconv.Itoa(pageNumber)
	face := basicfont.Face7x13
	labelWidth := font.MeasureString(face, label).Ceil()
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelGray),
		Face: face,
		Dot: fixed.P(
			(w-labelWidth)/2,
			(h+face.Ascent-face.Descent)/2,
		),
	}
	d.DrawString(label)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
