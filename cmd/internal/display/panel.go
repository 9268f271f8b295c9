// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package display

import (
	"image"
	"image/color"
	"image/draw"

	"tinygo.org/x/tinyfont"
)

var ink = color.RGBA{A: 0xff}

// panel is a rectangular region of a card addressed from its own
// origin. Writes outside the region are discarded. It implements
// draw.Image and the tinyfont displayer.
type panel struct {
	card *image.Gray
	rect image.Rectangle
}

func newPanel(card *image.Gray, rect image.Rectangle) panel {
	return panel{card: card, rect: rect.Intersect(card.Bounds())}
}

func (p panel) ColorModel() color.Model { return p.card.ColorModel() }
func (p panel) Bounds() image.Rectangle { return image.Rectangle{Max: p.rect.Size()} }

func (p panel) At(x, y int) color.Color {
	return p.card.At(x+p.rect.Min.X, y+p.rect.Min.Y)
}

func (p panel) Set(x, y int, c color.Color) {
	pt := image.Pt(x, y).Add(p.rect.Min)
	if pt.In(p.rect) {
		p.card.Set(pt.X, pt.Y, c)
	}
}

func (p panel) SetPixel(x, y int16, c color.RGBA) { p.Set(int(x), int(y), c) }

func (p panel) Size() (x, y int16) {
	s := p.rect.Size()
	return int16(s.X), int16(s.Y)
}

func (p panel) Display() error { return nil }

func (p panel) clear() {
	draw.Draw(p.card, p.rect, image.White, image.Point{}, draw.Src)
}

// text writes s with its baseline at y.
func (p panel) text(font *tinyfont.Font, x, y int, s string) {
	tinyfont.WriteLine(p, font, int16(x), int16(y), s, ink)
}

// centred writes s horizontally centred with its baseline at y.
func (p panel) centred(font *tinyfont.Font, y int, s string) {
	_, w := tinyfont.LineWidth(font, s)
	p.text(font, (p.rect.Dx()-int(w))/2, y, s)
}

// stroke draws a straight line from a to b inclusive.
func (p panel) stroke(a, b image.Point) {
	d := b.Sub(a)
	steps := max(abs(d.X), abs(d.Y))
	if steps == 0 {
		p.Set(a.X, a.Y, ink)
		return
	}
	for i := 0; i <= steps; i++ {
		p.Set(a.X+divRound(d.X*i, steps), a.Y+divRound(d.Y*i, steps), ink)
	}
}

// divRound returns n/d rounded half away from zero. d must be positive.
func divRound(n, d int) int {
	if n < 0 {
		return -((-n + d/2) / d)
	}
	return (n + d/2) / d
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
