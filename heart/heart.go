// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package heart implements decoding of the standard 180d Bluetooth
// heart rate service characteristic values.
package heart

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// ErrTruncated is returned when a characteristic value is shorter
// than its flags require.
var ErrTruncated = errors.New("truncated value")

// Flags field bits.
//
// https://www.bluetooth.com/specifications/specs/heart-rate-service-1-0/
//
// 3.1.1.1. Flags Field
//
//	| 0x10 | 0x8 | 0x4  0x2 | 0x1 |
//	|  rr  | nrg | scs  cnt | fmt |
const (
	flagFormat16     = 0x01
	flagContactMask  = 0x06
	flagContactShift = 1
	flagEnergy       = 0x08
	flagRR           = 0x10
)

// Contact is the sensor contact status reported in a measurement.
type Contact uint8

//go:generate go tool golang.org/x/tools/cmd/stringer -type Contact -trimprefix Contact
const (
	ContactUnsupported Contact = iota // Status bits 0b00 and 0b01.
	ContactNotDetected                // Status bits 0b10.
	ContactDetected                   // Status bits 0b11.
)

func contactStatus(flags byte) Contact {
	switch (flags & flagContactMask) >> flagContactShift {
	case 2:
		return ContactNotDetected
	case 3:
		return ContactDetected
	default:
		return ContactUnsupported
	}
}

// Measurement is a heart rate measurement.
type Measurement struct {
	HR uint16 // bpm

	// Energy is the expended energy in kJ. It is only
	// valid when EnergyPresent is true.
	Energy        uint16
	EnergyPresent bool

	Contact Contact

	RRPresent bool
	RR        []time.Duration
}

// ParseMeasurement returns the measurement encoded in data.
func ParseMeasurement(data []byte) (Measurement, error) {
	var m Measurement
	err := m.UnmarshalBinary(data)
	return m, err
}

// UnmarshalBinary decodes a heart rate measurement characteristic value.
// The energy expended field is read as a single byte following the heart
// rate value. On error the receiver is left unchanged.
func (m *Measurement) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("%w: measurement length %d < 2", ErrTruncated, len(data))
	}
	flags := data[0]
	offset := 1

	var hr uint16
	if flags&flagFormat16 != 0 {
		if len(data) < offset+2 {
			return fmt.Errorf("%w: 16-bit heart rate needs %d bytes, have %d", ErrTruncated, offset+2, len(data))
		}
		hr = binary.LittleEndian.Uint16(data[offset:])
		offset += 2
	} else {
		hr = uint16(data[offset])
		offset++
	}

	var energy uint16
	energyPresent := flags&flagEnergy != 0
	if energyPresent {
		if len(data) < offset+1 {
			return fmt.Errorf("%w: energy expended needs %d bytes, have %d", ErrTruncated, offset+1, len(data))
		}
		energy = uint16(data[offset])
		offset++
	}

	var rr []time.Duration
	rrPresent := flags&flagRR != 0
	if rrPresent {
		rrData := data[offset:]
		rr = make([]time.Duration, 0, len(rrData)/2)
		for i := 0; i+1 < len(rrData); i += 2 {
			rr = append(rr, time.Duration(binary.LittleEndian.Uint16(rrData[i:]))*time.Second/1024)
		}
	}

	*m = Measurement{
		HR:            hr,
		Energy:        energy,
		EnergyPresent: energyPresent,
		Contact:       contactStatus(flags),
		RRPresent:     rrPresent,
		RR:            rr,
	}
	return nil
}

// MarshalBinary encodes m in the layout accepted by UnmarshalBinary.
// The 16-bit heart rate format is used only when HR does not fit in
// a byte. RR intervals are rounded to the nearest 1/1024 s.
func (m Measurement) MarshalBinary() ([]byte, error) {
	if m.EnergyPresent && m.Energy > 0xff {
		return nil, fmt.Errorf("energy expended out of range: %d", m.Energy)
	}
	var flags byte
	switch m.Contact {
	case ContactUnsupported:
	case ContactNotDetected:
		flags |= 2 << flagContactShift
	case ContactDetected:
		flags |= 3 << flagContactShift
	default:
		return nil, fmt.Errorf("invalid contact status: %d", m.Contact)
	}
	buf := []byte{flags}
	if m.HR > 0xff {
		buf[0] |= flagFormat16
		buf = binary.LittleEndian.AppendUint16(buf, m.HR)
	} else {
		buf = append(buf, byte(m.HR))
	}
	if m.EnergyPresent {
		buf[0] |= flagEnergy
		buf = append(buf, byte(m.Energy))
	}
	if m.RRPresent {
		buf[0] |= flagRR
		for _, d := range m.RR {
			v := (d*1024 + time.Second/2) / time.Second
			if v < 0 || v > 0xffff {
				return nil, fmt.Errorf("rr interval out of range: %v", d)
			}
			buf = binary.LittleEndian.AppendUint16(buf, uint16(v))
		}
	}
	return buf, nil
}
