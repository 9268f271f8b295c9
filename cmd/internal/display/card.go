// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package display renders heart rate sensor data onto a monochrome
// card image.
package display

import (
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"time"

	"github.com/kortschak/hrp/cmd/internal/ring"
	"github.com/kortschak/hrp/heart"
)

// Card dimensions in pixels.
const (
	Width  = 296
	Height = 128
)

// Card is a heart rate display. It shows the current rate, a history
// of period mean rates and a status panel. Card is not safe for
// concurrent use.
type Card struct {
	img *image.Gray

	rate    *heartRate
	history *rateHistory
	status  *status

	// pending holds rates measured with skin
	// contact during the current history period.
	pending *ring.Buffer[uint16]
}

// NewCard returns a blank Card with history points averaged over period.
func NewCard(period time.Duration) *Card {
	img := image.NewGray(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return &Card{
		img:     img,
		rate:    &heartRate{p: newPanel(img, image.Rect(0, 0, 64, 64))},
		history: newRateHistory(period, newPanel(img, image.Rect(64, 0, Width, 64))),
		status:  &status{p: newPanel(img, image.Rect(0, 64, Width, Height))},
		pending: ring.NewBuffer[uint16](256),
	}
}

// AddMeasurement renders m received at ts. Rates measured without skin
// contact are excluded from the history, and discard the rates pending
// for the current period.
func (c *Card) AddMeasurement(m heart.Measurement, ts time.Time) {
	c.rate.draw(m)
	if m.Contact == heart.ContactNotDetected {
		c.pending.Reset()
	} else {
		c.pending.Write([]uint16{m.HR})
	}
	c.history.add(ts, c.pending)
	c.status.setMeasurement(m, c.history)
}

// SetLocation renders the sensor body location.
func (c *Card) SetLocation(l heart.SensorLocation) { c.status.setLocation(l) }

// SetBattery renders the sensor battery level.
func (c *Card) SetBattery(level int) { c.status.setBattery(level) }

// Snapshot returns a copy of the current card image.
func (c *Card) Snapshot() *image.Gray {
	dst := image.NewGray(c.img.Rect)
	copy(dst.Pix, c.img.Pix)
	return dst
}

// WritePNG encodes img to w as a PNG and closes w.
func WritePNG(w io.WriteCloser, img image.Image) error {
	err := png.Encode(w, img)
	if err != nil {
		w.Close()
		return fmt.Errorf("failed to encode card: %w", err)
	}
	err = w.Close()
	if err != nil {
		return fmt.Errorf("failed to close card file: %w", err)
	}
	return nil
}
