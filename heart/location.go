// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package heart

import "fmt"

// SensorLocation is the body sensor location characteristic value.
type SensorLocation uint8

//go:generate go tool golang.org/x/tools/cmd/stringer -type SensorLocation -trimprefix Location
const (
	LocationOther SensorLocation = iota
	LocationChest
	LocationWrist
	LocationFinger
	LocationHand
	LocationEarLobe
	LocationFoot
	LocationUnknown
)

// ParseSensorLocation returns the sensor location for the
// characteristic value b. Reserved values are LocationUnknown.
func ParseSensorLocation(b byte) SensorLocation {
	if b >= byte(LocationUnknown) {
		return LocationUnknown
	}
	return SensorLocation(b)
}

// UnmarshalBinary decodes the first byte of a body sensor location
// characteristic value.
func (l *SensorLocation) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty sensor location", ErrTruncated)
	}
	*l = ParseSensorLocation(data[0])
	return nil
}
