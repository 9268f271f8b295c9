// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package display

import (
	"fmt"
	"image"
	"strconv"
	"time"

	"tinygo.org/x/tinyfont/freesans"
	"tinygo.org/x/tinyfont/proggy"

	"github.com/kortschak/hrp/cmd/internal/ring"
	"github.com/kortschak/hrp/heart"
)

// heartRate shows the current rate over the mean of its RR intervals.
type heartRate struct {
	p  panel
	rr time.Duration
}

func (r *heartRate) draw(m heart.Measurement) {
	r.p.clear()

	// Measurements without intervals keep the last mean.
	if len(m.RR) != 0 {
		var sum time.Duration
		for _, v := range m.RR {
			sum += v
		}
		r.rr = sum / time.Duration(len(m.RR))
	}

	big := &freesans.Bold18pt7b
	small := &freesans.Regular9pt7b
	const raise = 10
	r.p.centred(big, int(big.YAdvance)-raise, strconv.Itoa(int(m.HR)))
	rr := "-"
	if r.rr != 0 {
		rr = r.rr.Round(time.Millisecond).String()
	}
	r.p.centred(small, int(big.YAdvance)+int(small.YAdvance)-raise, rr)
}

// sample is a period mean rate. Periods with no rates measured with
// skin contact are invalid and plotted as gaps.
type sample struct {
	rate  uint16
	valid bool
}

// rateHistory plots the mean rate of successive periods, one column
// per period.
type rateHistory struct {
	p       panel
	period  time.Duration
	last    time.Time
	samples *ring.Buffer[sample]

	rates  []uint16
	points []sample
}

func newRateHistory(period time.Duration, p panel) *rateHistory {
	return &rateHistory{
		p:       p,
		period:  period,
		samples: ring.NewBuffer[sample](p.rect.Dx()),
	}
}

// add closes the current period if it has elapsed at ts, consuming
// the rates collected during it.
func (h *rateHistory) add(ts time.Time, rates *ring.Buffer[uint16]) {
	if h.last.IsZero() {
		h.last = ts
		return
	}
	if ts.Sub(h.last) <= h.period {
		return
	}
	h.last = ts

	if len(h.rates) < rates.Size() {
		h.rates = make([]uint16, rates.Size())
	}
	var s sample
	if n := rates.Read(h.rates); n != 0 {
		var sum int
		for _, v := range h.rates[:n] {
			sum += int(v)
		}
		s = sample{rate: uint16(divRound(sum, n)), valid: true}
	}
	h.samples.Write([]sample{s})
	h.plot()
}

// mean returns the mean rate of the last closed period.
func (h *rateHistory) mean() (uint16, bool) {
	s, ok := h.samples.Last()
	return s.rate, ok && s.valid
}

func (h *rateHistory) plot() {
	h.p.clear()

	if len(h.points) < h.samples.Size() {
		h.points = make([]sample, h.samples.Size())
	}
	pts := h.points[:h.samples.CopyTo(h.points)]
	axis, ok := rateAxisFor(pts, h.p.rect.Dy())
	if !ok {
		return
	}
	for i, s := range pts {
		if !s.valid {
			continue
		}
		here := image.Pt(i, axis.row(s.rate))
		if i == 0 || !pts[i-1].valid {
			h.p.stroke(here, here)
			continue
		}
		h.p.stroke(image.Pt(i-1, axis.row(pts[i-1].rate)), here)
	}
}

// minSpan is the smallest range of rates shown by a rateAxis.
const minSpan = 20

// rateAxis maps rates to panel rows, higher rates nearer the top.
type rateAxis struct {
	lo, hi int
	rows   int
}

func rateAxisFor(samples []sample, rows int) (rateAxis, bool) {
	a := rateAxis{rows: rows}
	found := false
	for _, s := range samples {
		if !s.valid {
			continue
		}
		v := int(s.rate)
		if !found {
			a.lo, a.hi = v, v
			found = true
			continue
		}
		a.lo = min(a.lo, v)
		a.hi = max(a.hi, v)
	}
	if !found || rows < 1 {
		return a, false
	}
	if span := a.hi - a.lo; span < minSpan {
		a.lo -= (minSpan - span) / 2
		a.hi = a.lo + minSpan
	}
	return a, true
}

func (a rateAxis) row(rate uint16) int {
	bottom := a.rows - 1
	return bottom - divRound((int(rate)-a.lo)*bottom, a.hi-a.lo)
}

// status lists the sensor state as text.
type status struct {
	p panel

	location    heart.SensorLocation
	hasLocation bool

	m    heart.Measurement
	hasM bool

	mean    uint16
	hasMean bool

	battery    int
	hasBattery bool
}

func (s *status) setLocation(l heart.SensorLocation) {
	s.location, s.hasLocation = l, true
	s.draw()
}

func (s *status) setBattery(level int) {
	s.battery, s.hasBattery = level, true
	s.draw()
}

func (s *status) setMeasurement(m heart.Measurement, h *rateHistory) {
	s.m, s.hasM = m, true
	s.mean, s.hasMean = h.mean()
	s.draw()
}

func (s *status) lines() []string {
	location, contact, energy, mean, level := "-", "-", "-", "-", "-"
	if s.hasLocation {
		location = s.location.String()
	}
	if s.hasM {
		contact = s.m.Contact.String()
		if s.m.EnergyPresent {
			energy = fmt.Sprintf("%d kJ", s.m.Energy)
		}
	}
	if s.hasMean {
		mean = strconv.Itoa(int(s.mean)) + " bpm"
	}
	if s.hasBattery {
		level = strconv.Itoa(s.battery) + "%"
	}
	return []string{
		"location: " + location,
		"contact:  " + contact,
		"energy:   " + energy,
		"mean:     " + mean,
		"battery:  " + level,
	}
}

func (s *status) draw() {
	s.p.clear()
	font := &proggy.TinySZ8pt7b
	const margin = 4
	for i, l := range s.lines() {
		s.p.text(font, margin, margin+(i+1)*int(font.YAdvance), l)
	}
}
