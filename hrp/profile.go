// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hrp implements the collector side of the Bluetooth heart rate
// profile.
//
// A Profile is driven by an external lifecycle manager that calls Probe
// when a device exposing the heart rate service becomes known, Accept
// when the GATT connection is ready, Disconnect when it goes away and
// Remove when the device is forgotten. All calls, and all GATT callbacks
// resulting from them, must be made from a single event goroutine. The
// package performs no locking and never blocks.
package hrp

import (
	"errors"
	"io"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/kortschak/hrp/gatt"
	"github.com/kortschak/hrp/heart"
)

// Device is a remote device known to the lifecycle manager.
type Device interface {
	gatt.Counted

	// Address returns the device's Bluetooth address.
	Address() string

	// Database returns the device's current GATT database snapshot,
	// or nil if there is none.
	Database() gatt.Database

	// Client returns the device's GATT client, or nil if the device
	// is not connected.
	Client() gatt.Client
}

// Service is the lifecycle manager's record of the heart rate service of
// a single device.
type Service interface {
	Device() Device

	// UserData and SetUserData hold the profile's per-device state.
	UserData() any
	SetUserData(any)

	// ConnectingComplete and DisconnectingComplete report completion
	// of connection setup and teardown to the lifecycle manager.
	ConnectingComplete(err error)
	DisconnectingComplete(err error)
}

var (
	ErrAlreadyProbed   = errors.New("profile probed twice for the same device")
	ErrNotProbed       = errors.New("service not handled by profile")
	ErrNotConnected    = errors.New("device has no gatt database or client")
	ErrServiceNotFound = errors.New("heart rate service not found")
)

// Profile is the heart rate profile.
type Profile struct {
	// Name is the profile name.
	Name string
	// RemoteUUID is the service UUID the profile handles.
	RemoteUUID bluetooth.UUID

	// OnMeasurement and OnSensorLocation, if not nil, are called
	// on the event goroutine with each newly decoded value.
	OnMeasurement    func(*Session, heart.Measurement)
	OnSensorLocation func(*Session, heart.SensorLocation)

	log logrus.FieldLogger
}

// New returns a new heart rate Profile logging to log. If log is nil,
// logging is discarded.
func New(log logrus.FieldLogger) *Profile {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Profile{
		Name:       "heartrate-profile",
		RemoteUUID: heart.ServiceUUID,
		log:        log,
	}
}

// SessionOf returns the Session bound to svc, or nil if svc has not been
// probed.
func SessionOf(svc Service) *Session {
	s, _ := svc.UserData().(*Session)
	return s
}

// Probe binds a new Session to svc.
func (p *Profile) Probe(svc Service) error {
	dev := svc.Device()
	log := p.log.WithField("addr", dev.Address())
	log.Debug("HRP profile probe")

	if svc.UserData() != nil {
		log.Error("profile probed twice for the same device")
		return ErrAlreadyProbed
	}
	svc.SetUserData(&Session{
		profile: p,
		log:     log,
		addr:    dev.Address(),
		device:  gatt.Acquire(dev),
		state:   Probed,
	})
	return nil
}

// Remove releases all resources held by the Session bound to svc and
// unbinds it.
func (p *Profile) Remove(svc Service) {
	log := p.log.WithField("addr", svc.Device().Address())
	log.Debug("HRP profile remove")

	s := SessionOf(svc)
	if s == nil {
		log.Error("HRP service not handled by profile")
		return
	}
	s.reset()
	s.device.Release()
	s.state = Removed
	svc.SetUserData(nil)
}

// Accept attaches the probed Session to the device's heart rate service
// and starts characteristic setup. If no heart rate service is found,
// ErrServiceNotFound is returned and no GATT references are retained.
func (p *Profile) Accept(svc Service) (err error) {
	dev := svc.Device()
	log := p.log.WithField("addr", dev.Address())
	log.Debug("HRP profile accept")

	s := SessionOf(svc)
	if s == nil {
		log.Error("HRP service not handled by profile")
		return ErrNotProbed
	}
	prev := s.state
	if prev == Accepted {
		log.Warn("HRP profile accepted while connected")
		s.reset()
		prev = Disconnected
	}

	s.db = gatt.Acquire(dev.Database())
	s.client = gatt.Acquire(dev.Client())
	s.state = Accepted
	defer func() {
		if err != nil {
			s.reset()
			s.state = prev
		}
	}()
	if !s.db.Held() || !s.client.Held() {
		log.Error("no gatt database or client for device")
		return ErrNotConnected
	}

	s.db.Get().ForEachService(heart.ServiceUUID, s.attachService)
	if s.service == nil {
		log.Error("HRP attribute not found")
		return ErrServiceNotFound
	}

	svc.ConnectingComplete(nil)
	return nil
}

// Disconnect releases the GATT resources held by the Session bound to
// svc. The last decoded values are retained.
func (p *Profile) Disconnect(svc Service) error {
	log := p.log.WithField("addr", svc.Device().Address())
	log.Debug("HRP profile disconnect")

	s := SessionOf(svc)
	if s == nil {
		log.Error("HRP service not handled by profile")
		return ErrNotProbed
	}
	s.reset()
	if s.state == Accepted {
		s.state = Disconnected
	}
	svc.DisconnectingComplete(nil)
	return nil
}
