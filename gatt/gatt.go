// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gatt defines the GATT attribute database and client used by
// profiles to discover characteristics, read values and receive
// notifications.
//
// Implementations deliver all callbacks on a single event goroutine,
// the same one that drives profile lifecycle calls.
package gatt

import "tinygo.org/x/bluetooth"

// Handle is an attribute handle assigned by the remote GATT server.
// The zero Handle is not a valid attribute handle.
type Handle uint16

// Counted is a reference counted resource.
type Counted interface {
	Ref()
	Unref()
}

// Database is a snapshot of a remote device's GATT attribute database.
type Database interface {
	Counted

	// ForEachService calls fn for each primary service with the
	// given UUID in attribute order.
	ForEachService(uuid bluetooth.UUID, fn func(Service))
}

// Service is a primary service attribute in a Database.
type Service interface {
	UUID() bluetooth.UUID

	// ForEachCharacteristic calls fn for each characteristic
	// declaration in the service in attribute order.
	ForEachCharacteristic(fn func(Characteristic))
}

// Characteristic is a characteristic declaration attribute.
type Characteristic interface {
	// Data returns the characteristic declaration. It returns
	// false if the declaration could not be obtained.
	Data() (CharacteristicData, bool)
}

// CharacteristicData is the content of a characteristic declaration.
type CharacteristicData struct {
	Handle      Handle
	ValueHandle Handle
	Properties  uint8
	UUID        bluetooth.UUID
}

// Characteristic properties.
const (
	PropBroadcast   = 0x01
	PropRead        = 0x02
	PropWriteNoResp = 0x04
	PropWrite       = 0x08
	PropNotify      = 0x10
	PropIndicate    = 0x20
)

// ReadFunc is called on completion of a read request. If success is
// false, code holds the ATT error returned by the server.
type ReadFunc func(success bool, code ATTError, value []byte)

// RegisteredFunc is called once when a notification registration has
// been acknowledged. A non-zero code indicates notifications were not
// enabled.
type RegisteredFunc func(code ATTError)

// NotifyFunc is called for each notification received for a
// registration.
type NotifyFunc func(h Handle, value []byte)

// Client is a GATT client bound to a connected remote device.
type Client interface {
	Counted

	// ReadValue requests the value of the attribute with the given
	// handle. It returns false if the request could not be queued,
	// in which case fn is never called.
	ReadValue(h Handle, fn ReadFunc) bool

	// RegisterNotify registers for notifications of the attribute
	// value with the given handle. It returns the registration id,
	// or zero if the registration could not be queued, in which case
	// neither callback is called.
	RegisterNotify(h Handle, registered RegisteredFunc, notify NotifyFunc) uint

	// UnregisterNotify removes a notification registration. No
	// callback for the registration is called after it returns.
	UnregisterNotify(id uint) bool
}
