// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package battery implements reading of the standard 180f Bluetooth
// battery service characteristic.
package battery

import (
	"errors"
	"fmt"

	"tinygo.org/x/bluetooth"

	"github.com/kortschak/hrp/gatt"
)

const (
	ServiceID             = "180f"
	LevelCharacteristicID = "2a19"
)

var (
	ServiceUUID = must(bluetooth.ParseUUID(ServiceID))
	LevelUUID   = must(bluetooth.ParseUUID(LevelCharacteristicID))
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

var (
	// ErrNotFound is returned when a device has no battery level
	// characteristic.
	ErrNotFound = errors.New("battery level characteristic not found")

	// ErrInvalidLevel is returned for a battery level that is empty
	// or greater than 100.
	ErrInvalidLevel = errors.New("invalid battery level")
)

// LevelHandle returns the value handle of the first battery level
// characteristic in db.
func LevelHandle(db gatt.Database) (gatt.Handle, error) {
	// https://www.bluetooth.com/specifications/specs/battery-service/

	var h gatt.Handle
	db.ForEachService(ServiceUUID, func(s gatt.Service) {
		s.ForEachCharacteristic(func(c gatt.Characteristic) {
			d, ok := c.Data()
			if !ok || h != 0 || d.UUID != LevelUUID {
				return
			}
			h = d.ValueHandle
		})
	})
	if h == 0 {
		return 0, ErrNotFound
	}
	return h, nil
}

// ParseLevel returns the battery level percentage held in b.
func ParseLevel(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("%w: empty value", ErrInvalidLevel)
	}
	if b[0] > 100 {
		return 0, fmt.Errorf("%w: %d%%", ErrInvalidLevel, b[0])
	}
	return int(b[0]), nil
}

// ReadLevel requests the battery level with value handle h from client.
// fn is called with the result when the read completes. ReadLevel
// returns false if the request could not be sent.
func ReadLevel(client gatt.Client, h gatt.Handle, fn func(level int, err error)) bool {
	return client.ReadValue(h, func(success bool, code gatt.ATTError, value []byte) {
		if !success {
			fn(0, fmt.Errorf("failed to read battery level: %w", code))
			return
		}
		fn(ParseLevel(value))
	})
}
