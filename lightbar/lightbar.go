// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lightbar implements a 1D display.Drawer that shows an illuminance
// level as a coloured bar on the terminal using ANSI color codes.
//
// Useful to watch a light sensor respond while moving it around.
package lightbar

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3/display"
)

// Opts represents the options available for this display.
type Opts struct {
	// Width is the number of cells of the bar.
	Width int
	// MaxLux is the illuminance of a full bar. Defaults to 40000, about
	// direct sunlight.
	MaxLux  float64
	Palette *ansi256.Palette
	// Writer defaults to a colorable stdout.
	Writer io.Writer

	_ struct{}
}

// DefaultMaxLux is the full scale used when Opts.MaxLux is 0.
const DefaultMaxLux = 40000

// Dev is a console bar graph.
type Dev struct {
	w       io.Writer
	maxLux  float64
	palette ansi256.Palette

	cells []color.NRGBA
	buf   bytes.Buffer
}

// New returns a Dev that displays at the console.
func New(opts *Opts) *Dev {
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.Writer
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	m := opts.MaxLux
	if m <= 0 {
		m = DefaultMaxLux
	}
	return &Dev{
		w:       w,
		maxLux:  m,
		palette: *p,
		cells:   make([]color.NRGBA, opts.Width),
	}
}

func (d *Dev) String() string {
	return "LightBar"
}

// Halt implements conn.Resource.
//
// It resets the terminal colors and moves to the next line.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

// Show draws lux as a bar. The scale is logarithmic since perceived
// brightness is.
func (d *Dev) Show(lux float64) error {
	width := len(d.cells)
	lit := Cells(lux, d.maxLux, width)
	for i := range d.cells {
		if i < lit {
			d.cells[i] = ramp(float64(i+1) / float64(width))
		} else {
			d.cells[i] = color.NRGBA{A: 255}
		}
	}
	return d.flush()
}

// Cells returns how many of width cells are lit for lux on a log10 scale
// of full scale maxLux.
func Cells(lux, maxLux float64, width int) int {
	if width <= 0 || math.IsNaN(lux) || lux <= 0 {
		return 0
	}
	if math.IsInf(lux, 1) {
		return width
	}
	f := math.Log10(lux+1) / math.Log10(maxLux+1)
	if f >= 1 {
		return width
	}
	n := int(math.Round(f * float64(width)))
	if n < 1 {
		n = 1
	}
	return n
}

// ramp goes from dim blue in the dark to warm white at full scale.
func ramp(f float64) color.NRGBA {
	return color.NRGBA{
		R: byte(40 + 215*f),
		G: byte(40 + 200*f),
		B: byte(160 + 40*f),
		A: 255,
	}
}

// ColorModel implements display.Drawer.
func (d *Dev) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds implements display.Drawer.
func (d *Dev) Bounds() image.Rectangle {
	return image.Rect(0, 0, len(d.cells), 1)
}

// Draw implements display.Drawer. Only the first row of src at sp is used.
func (d *Dev) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	r = r.Intersect(d.Bounds())
	for x := r.Min.X; x < r.Max.X; x++ {
		p := image.Pt(sp.X+x-r.Min.X, sp.Y)
		if !p.In(src.Bounds()) {
			break
		}
		d.cells[x] = color.NRGBAModel.Convert(src.At(p.X, p.Y)).(color.NRGBA)
	}
	return d.flush()
}

// flush rewrites the current terminal line with the cells.
func (d *Dev) flush() error {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for _, c := range d.cells {
		_, _ = d.buf.WriteString(d.palette.Block(c))
	}
	_, _ = d.buf.WriteString("\033[0m ")
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.Drawer = &Dev{}
var _ fmt.Stringer = &Dev{}
