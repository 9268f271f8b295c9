// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heart

import "tinygo.org/x/bluetooth"

// Service and characteristic identifiers.
const (
	RateServiceID      = "180d"
	RateMeasurementID  = "2a37"
	SensorLocationID   = "2a38"
	RateControlPointID = "2a39"
)

var (
	ServiceUUID          = must(bluetooth.ParseUUID(RateServiceID))
	MeasurementUUID      = must(bluetooth.ParseUUID(RateMeasurementID))
	SensorLocationUUID   = must(bluetooth.ParseUUID(SensorLocationID))
	RateControlPointUUID = must(bluetooth.ParseUUID(RateControlPointID))
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Kind is the role of a characteristic within the heart rate service.
type Kind uint8

//go:generate go tool golang.org/x/tools/cmd/stringer -type Kind -trimprefix Kind
const (
	KindUnhandled Kind = iota
	KindMeasurement
	KindSensorLocation
	KindControlPoint
)

// KindOf returns the heart rate service role of the characteristic
// with the given UUID.
func KindOf(uuid bluetooth.UUID) Kind {
	switch uuid {
	case MeasurementUUID:
		return KindMeasurement
	case SensorLocationUUID:
		return KindSensorLocation
	case RateControlPointUUID:
		return KindControlPoint
	default:
		return KindUnhandled
	}
}
