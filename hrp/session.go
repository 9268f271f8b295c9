// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hrp

import (
	"github.com/sirupsen/logrus"

	"github.com/kortschak/hrp/gatt"
	"github.com/kortschak/hrp/heart"
)

// State is the lifecycle state of a Session.
type State uint8

//go:generate go tool golang.org/x/tools/cmd/stringer -type State
const (
	Unbound State = iota
	Probed
	Accepted
	Disconnected
	Removed
)

// Session is the heart rate profile state for a single remote device.
type Session struct {
	profile *Profile
	log     logrus.FieldLogger
	addr    string
	state   State

	device gatt.Ref[Device]
	db     gatt.Ref[gatt.Database]
	client gatt.Ref[gatt.Client]

	// service is owned by db.
	service gatt.Service

	measurement gatt.Handle
	location    gatt.Handle
	subs        []uint

	// segment identifies the current accept–reset period. Callbacks
	// capture it and are ignored once it has changed.
	segment uint64

	last           heart.Measurement
	hasLast        bool
	sensorLocation heart.SensorLocation
	hasLocation    bool
}

// Address returns the address of the Session's device.
func (s *Session) Address() string { return s.addr }

// State returns the lifecycle state of the Session.
func (s *Session) State() State { return s.state }

// Measurement returns the most recently decoded heart rate measurement.
// It returns false if no measurement has been received.
func (s *Session) Measurement() (heart.Measurement, bool) {
	return s.last, s.hasLast
}

// SensorLocation returns the most recently decoded body sensor location.
// It returns false if the location has not been read.
func (s *Session) SensorLocation() (heart.SensorLocation, bool) {
	return s.sensorLocation, s.hasLocation
}

// MeasurementHandle returns the value handle of the heart rate measurement
// characteristic, or zero if it has not been discovered.
func (s *Session) MeasurementHandle() gatt.Handle { return s.measurement }

// SensorLocationHandle returns the value handle of the body sensor
// location characteristic, or zero if it has not been discovered.
func (s *Session) SensorLocationHandle() gatt.Handle { return s.location }

// HasService returns whether the Session is attached to a heart rate
// service.
func (s *Session) HasService() bool { return s.service != nil }

func (s *Session) attachService(svc gatt.Service) {
	if s.service != nil {
		s.log.Error("more than one HRP service exists for this device")
		return
	}
	s.service = svc
	svc.ForEachCharacteristic(s.handleCharacteristic)
}

// live returns whether a callback issued during segment seg may still
// act on the Session.
func (s *Session) live(seg uint64) bool {
	return s.state == Accepted && s.segment == seg && s.client.Held()
}

// reset removes notification registrations, releases the GATT database
// and client and forgets discovered attributes.
func (s *Session) reset() {
	if s.client.Held() {
		c := s.client.Get()
		for _, id := range s.subs {
			c.UnregisterNotify(id)
		}
	}
	s.subs = nil
	s.service = nil
	s.measurement = 0
	s.location = 0
	s.db.Release()
	s.client.Release()
	s.segment++
}

func (s *Session) setMeasurement(m heart.Measurement) {
	s.last, s.hasLast = m, true
	if s.profile.OnMeasurement != nil {
		s.profile.OnMeasurement(s, m)
	}
}

func (s *Session) setSensorLocation(l heart.SensorLocation) {
	s.sensorLocation, s.hasLocation = l, true
	if s.profile.OnSensorLocation != nil {
		s.profile.OnSensorLocation(s, l)
	}
}
