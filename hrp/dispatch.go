// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hrp

import (
	"github.com/kortschak/hrp/gatt"
	"github.com/kortschak/hrp/heart"
)

func (s *Session) handleCharacteristic(c gatt.Characteristic) {
	data, ok := c.Data()
	if !ok {
		s.log.Error("failed to obtain characteristic data")
		return
	}
	switch heart.KindOf(data.UUID) {
	case heart.KindMeasurement:
		s.handleMeasurement(data.ValueHandle)
	case heart.KindSensorLocation:
		s.handleSensorLocation(data.ValueHandle)
	case heart.KindControlPoint:
		// Energy expended reset is not supported.
		s.log.WithField("uuid", data.UUID.String()).Debug("ignoring heart rate control point")
	default:
		s.log.WithField("uuid", data.UUID.String()).Debug("unsupported characteristic")
	}
}

// handleMeasurement subscribes to heart rate measurement notifications.
// The characteristic is notify-only so no initial read is made.
func (s *Session) handleMeasurement(h gatt.Handle) {
	if s.measurement != 0 {
		s.log.WithField("handle", h).Warn("ignoring duplicate heart rate measurement characteristic")
		return
	}
	s.measurement = h
	s.registerNotify(h, "heart rate measurement")
}

// handleSensorLocation reads the body sensor location and on success
// subscribes to changes.
func (s *Session) handleSensorLocation(h gatt.Handle) {
	if s.location != 0 {
		s.log.WithField("handle", h).Warn("ignoring duplicate body sensor location characteristic")
		return
	}
	s.location = h
	seg := s.segment
	ok := s.client.Get().ReadValue(h, func(success bool, code gatt.ATTError, value []byte) {
		if !s.live(seg) {
			return
		}
		s.sensorLocationRead(success, code, value)
	})
	if !ok {
		s.log.Debug("failed to send request to read body sensor location")
	}
}

func (s *Session) sensorLocationRead(success bool, code gatt.ATTError, value []byte) {
	if !success {
		s.log.WithField("att_error", code.String()).Debug("reading body sensor location failed")
		return
	}
	var l heart.SensorLocation
	err := l.UnmarshalBinary(value)
	if err != nil {
		s.log.WithError(err).Debug("failed to decode body sensor location")
		return
	}
	s.setSensorLocation(l)
	s.registerNotify(s.location, "body sensor location")
}

func (s *Session) registerNotify(h gatt.Handle, name string) {
	seg := s.segment
	log := s.log.WithField("characteristic", name)
	id := s.client.Get().RegisterNotify(h,
		func(code gatt.ATTError) {
			if !s.live(seg) {
				return
			}
			if code != 0 {
				log.WithField("att_error", code.String()).Error("notifications not enabled")
				return
			}
			log.Debug("notifications enabled")
		},
		func(vh gatt.Handle, value []byte) {
			if !s.live(seg) {
				return
			}
			s.notify(vh, value)
		},
	)
	if id == 0 {
		log.Error("failed to register for notifications")
		return
	}
	s.subs = append(s.subs, id)
}

func (s *Session) notify(h gatt.Handle, value []byte) {
	switch {
	case h != 0 && h == s.measurement:
		m, err := heart.ParseMeasurement(value)
		if err != nil {
			s.log.WithError(err).Warn("dropping heart rate measurement")
			return
		}
		s.setMeasurement(m)
	case h != 0 && h == s.location:
		var l heart.SensorLocation
		err := l.UnmarshalBinary(value)
		if err != nil {
			s.log.WithError(err).Warn("dropping body sensor location")
			return
		}
		s.setSensorLocation(l)
	default:
		s.log.WithField("handle", h).Error("notification for unknown handle")
	}
}
