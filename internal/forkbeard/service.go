// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package forkbeard

import (
	"github.com/sirupsen/logrus"

	"github.com/kortschak/hrp/hrp"
)

// Profile is a set of device lifecycle callbacks.
type Profile interface {
	Probe(hrp.Service) error
	Accept(hrp.Service) error
	Disconnect(hrp.Service) error
	Remove(hrp.Service)
}

var _ Profile = (*hrp.Profile)(nil)

// Service is the lifecycle record of a profile on a single device.
// It implements hrp.Service.
type Service struct {
	dev  hrp.Device
	data any
	log  logrus.FieldLogger

	connected bool
}

// NewService returns a new Service for dev.
func NewService(dev hrp.Device, log logrus.FieldLogger) *Service {
	return &Service{dev: dev, log: log.WithField("addr", dev.Address())}
}

func (s *Service) Device() hrp.Device { return s.dev }
func (s *Service) UserData() any      { return s.data }
func (s *Service) SetUserData(v any)  { s.data = v }

func (s *Service) ConnectingComplete(err error) {
	if err != nil {
		s.log.WithError(err).Error("service connection failed")
		return
	}
	s.connected = true
	s.log.Info("service connected")
}

func (s *Service) DisconnectingComplete(err error) {
	if err != nil {
		s.log.WithError(err).Error("service disconnection failed")
	}
	s.connected = false
	s.log.Info("service disconnected")
}

// Connected returns whether the service has completed connection setup
// and has not since been disconnected.
func (s *Service) Connected() bool { return s.connected }

// Attach probes and accepts svc with p on loop. If accept fails the
// service is removed from p.
func Attach(loop *Loop, p Profile, svc *Service) error {
	var err error
	doErr := loop.Do(func() {
		err = p.Probe(svc)
		if err != nil {
			return
		}
		err = p.Accept(svc)
		if err != nil {
			p.Remove(svc)
		}
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// Detach disconnects and removes svc from p on loop.
func Detach(loop *Loop, p Profile, svc *Service) error {
	var err error
	doErr := loop.Do(func() {
		err = p.Disconnect(svc)
		p.Remove(svc)
	})
	if doErr != nil {
		return doErr
	}
	return err
}
