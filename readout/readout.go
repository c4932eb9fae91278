// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package readout renders a light sensor reading into an image that can be
// sent to any display.Drawer, like a SSD1306 OLED or an e-ink panel.
package readout

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/GermanBionicSystems/lightsensors/lightbar"
	"github.com/GermanBionicSystems/lightsensors/tsl2561"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Renderer draws readings. It is not safe for concurrent use.
type Renderer struct {
	large font.Face
	small font.Face
	// MaxLux is the full scale of the bar along the bottom edge.
	MaxLux float64
}

// New returns a Renderer whose lux value is drawn at size points; the
// channel counts use half that size.
func New(size float64) (*Renderer, error) {
	if size <= 0 {
		return nil, errors.New("readout: invalid font size")
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("readout: %w", err)
	}
	return &Renderer{
		large:  truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull}),
		small:  truetype.NewFace(f, &truetype.Options{Size: size / 2, Hinting: font.HintingFull}),
		MaxLux: lightbar.DefaultMaxLux,
	}, nil
}

// Render draws r in white on black, sized to bounds.
func (rn *Renderer) Render(r tsl2561.Reading, bounds image.Rectangle) image.Image {
	w, h := bounds.Dx(), bounds.Dy()
	dc := gg.NewContext(w, h)
	dc.SetColor(color.Black)
	dc.Clear()
	dc.SetColor(color.White)

	lux := "-- lx"
	if r.Valid {
		lux = fmt.Sprintf("%.1f lx", r.Lux)
	}
	dc.SetFontFace(rn.large)
	dc.DrawStringAnchored(lux, float64(w)/2, float64(h)*0.35, 0.5, 0.5)

	dc.SetFontFace(rn.small)
	counts := fmt.Sprintf("%d/%d %s %s", r.Broadband, r.Infrared, r.Gain, r.Integration)
	dc.DrawStringAnchored(counts, float64(w)/2, float64(h)*0.72, 0.5, 0.5)

	if r.Valid {
		barH := float64(h) / 10
		cells := lightbar.Cells(r.Lux, rn.MaxLux, w)
		dc.DrawRectangle(0, float64(h)-barH, float64(cells), barH)
		dc.Fill()
	}

	if bounds.Min == (image.Point{}) {
		return dc.Image()
	}
	return offset{dc.Image(), bounds.Min}
}

// offset translates an image whose origin is 0,0 to min.
type offset struct {
	image.Image
	min image.Point
}

func (o offset) Bounds() image.Rectangle {
	return o.Image.Bounds().Add(o.min)
}

func (o offset) At(x, y int) color.Color {
	return o.Image.At(x-o.min.X, y-o.min.Y)
}
