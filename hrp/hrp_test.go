// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hrp_test

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/suite"
	"tinygo.org/x/bluetooth"

	"github.com/kortschak/hrp/gatt"
	"github.com/kortschak/hrp/heart"
	"github.com/kortschak/hrp/hrp"
)

const (
	measurementHandle  gatt.Handle = 0x0003
	locationHandle     gatt.Handle = 0x0006
	controlPointHandle gatt.Handle = 0x0008
	otherHandle        gatt.Handle = 0x000a
)

var batteryLevelUUID = must(bluetooth.ParseUUID("2a19"))

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func heartRateService() *fakeService {
	return &fakeService{
		uuid: heart.ServiceUUID,
		chars: []fakeCharacteristic{
			{data: gatt.CharacteristicData{Handle: 0x0002, ValueHandle: measurementHandle, Properties: gatt.PropNotify, UUID: heart.MeasurementUUID}},
			{data: gatt.CharacteristicData{Handle: 0x0005, ValueHandle: locationHandle, Properties: gatt.PropRead, UUID: heart.SensorLocationUUID}},
			{data: gatt.CharacteristicData{Handle: 0x0007, ValueHandle: controlPointHandle, Properties: gatt.PropWrite, UUID: heart.RateControlPointUUID}},
			{data: gatt.CharacteristicData{Handle: 0x0009, ValueHandle: otherHandle, Properties: gatt.PropRead, UUID: batteryLevelUUID}},
		},
	}
}

type ProfileTestSuite struct {
	suite.Suite

	log  *logrus.Logger
	hook *logtest.Hook

	profile      *hrp.Profile
	measurements []heart.Measurement
	locations    []heart.SensorLocation

	dev    *fakeDevice
	db     *fakeDatabase
	client *fakeClient
	svc    *fakeLifecycle
}

func TestProfile(t *testing.T) {
	suite.Run(t, new(ProfileTestSuite))
}

func (suite *ProfileTestSuite) SetupTest() {
	suite.log, suite.hook = logtest.NewNullLogger()
	suite.log.SetLevel(logrus.DebugLevel)

	suite.measurements = nil
	suite.locations = nil
	suite.profile = hrp.New(suite.log)
	suite.profile.OnMeasurement = func(_ *hrp.Session, m heart.Measurement) {
		suite.measurements = append(suite.measurements, m)
	}
	suite.profile.OnSensorLocation = func(_ *hrp.Session, l heart.SensorLocation) {
		suite.locations = append(suite.locations, l)
	}

	suite.db = &fakeDatabase{services: []*fakeService{heartRateService()}}
	suite.client = &fakeClient{}
	suite.dev = &fakeDevice{addr: "A0:9E:1A:00:00:01", db: suite.db, client: suite.client}
	suite.svc = &fakeLifecycle{dev: suite.dev}
}

func (suite *ProfileTestSuite) TearDownTest() {
	suite.svc.AssertExpectations(suite.T())
}

// accept probes and accepts the test service.
func (suite *ProfileTestSuite) accept() *hrp.Session {
	suite.Require().NoError(suite.profile.Probe(suite.svc))
	suite.svc.On("ConnectingComplete", nil).Once()
	suite.Require().NoError(suite.profile.Accept(suite.svc))
	return hrp.SessionOf(suite.svc)
}

func (suite *ProfileTestSuite) hasLog(level logrus.Level, msg string) bool {
	for _, e := range suite.hook.AllEntries() {
		if e.Level == level && e.Message == msg {
			return true
		}
	}
	return false
}

func (suite *ProfileTestSuite) TestProbe() {
	suite.Run("first probe binds a session", func() {
		err := suite.profile.Probe(suite.svc)

		suite.Require().NoError(err)
		s := hrp.SessionOf(suite.svc)
		suite.Require().NotNil(s)
		suite.Equal(hrp.Probed, s.State())
		suite.Equal("A0:9E:1A:00:00:01", s.Address())
		suite.Equal(1, suite.dev.refs.n, "session MUST hold one device reference")
		suite.Equal(0, suite.db.refs.n, "probe MUST NOT take database references")
		suite.Equal(0, suite.client.refs.n, "probe MUST NOT take client references")
	})

	suite.Run("second probe is rejected", func() {
		first := hrp.SessionOf(suite.svc)

		err := suite.profile.Probe(suite.svc)

		suite.ErrorIs(err, hrp.ErrAlreadyProbed)
		suite.Same(first, hrp.SessionOf(suite.svc), "existing session MUST be kept")
		suite.Equal(1, suite.dev.refs.n, "rejected probe MUST NOT take a device reference")
		suite.True(suite.hasLog(logrus.ErrorLevel, "profile probed twice for the same device"))
	})
}

func (suite *ProfileTestSuite) TestAcceptWithoutProbe() {
	err := suite.profile.Accept(suite.svc)

	suite.ErrorIs(err, hrp.ErrNotProbed)
	suite.Equal(0, suite.db.refs.n)
	suite.Equal(0, suite.client.refs.n)
}

func (suite *ProfileTestSuite) TestAcceptServiceNotFound() {
	suite.db.services = []*fakeService{{uuid: must(bluetooth.ParseUUID("180f"))}}
	suite.Require().NoError(suite.profile.Probe(suite.svc))

	err := suite.profile.Accept(suite.svc)

	suite.ErrorIs(err, hrp.ErrServiceNotFound)
	s := hrp.SessionOf(suite.svc)
	suite.Equal(hrp.Probed, s.State(), "failed accept MUST leave the session probed")
	suite.False(s.HasService())
	suite.Equal(0, suite.db.refs.n, "failed accept MUST release the database")
	suite.Equal(0, suite.client.refs.n, "failed accept MUST release the client")
	suite.Equal(1, suite.dev.refs.n)
	suite.True(suite.hasLog(logrus.ErrorLevel, "HRP attribute not found"))
}

func (suite *ProfileTestSuite) TestAcceptNotConnected() {
	suite.dev.client = nil
	suite.Require().NoError(suite.profile.Probe(suite.svc))

	err := suite.profile.Accept(suite.svc)

	suite.ErrorIs(err, hrp.ErrNotConnected)
	suite.Equal(0, suite.db.refs.n, "failed accept MUST release the database")
}

func (suite *ProfileTestSuite) TestAcceptDiscovers() {
	s := suite.accept()

	suite.Equal(hrp.Accepted, s.State())
	suite.True(s.HasService())
	suite.Equal(measurementHandle, s.MeasurementHandle())
	suite.Equal(locationHandle, s.SensorLocationHandle())
	suite.Equal(1, suite.db.refs.n)
	suite.Equal(1, suite.client.refs.n)

	suite.Len(suite.client.active(measurementHandle), 1, "measurement MUST be subscribed without an initial read")
	suite.Require().Len(suite.client.reads, 1, "only the sensor location MUST be read")
	suite.Equal(locationHandle, suite.client.reads[0].handle)
	suite.Empty(suite.client.active(locationHandle), "sensor location MUST NOT be subscribed before it is read")
	suite.Empty(suite.client.active(controlPointHandle))
	suite.Empty(suite.client.active(otherHandle))
	suite.True(suite.hasLog(logrus.DebugLevel, "ignoring heart rate control point"))
	suite.True(suite.hasLog(logrus.DebugLevel, "unsupported characteristic"))
}

func (suite *ProfileTestSuite) TestMeasurementNotification() {
	s := suite.accept()
	_, ok := s.Measurement()
	suite.False(ok, "no measurement before the first notification")

	suite.Run("valid payload is stored", func() {
		suite.client.send(measurementHandle, []byte{0x08, 0x46, 0x05})

		m, ok := s.Measurement()
		suite.Require().True(ok)
		suite.Equal(uint16(70), m.HR)
		suite.True(m.EnergyPresent)
		suite.Equal(uint16(5), m.Energy)
		suite.Len(suite.measurements, 1)
	})

	suite.Run("truncated payload is dropped", func() {
		suite.client.send(measurementHandle, []byte{0x01})

		m, ok := s.Measurement()
		suite.Require().True(ok)
		suite.Equal(uint16(70), m.HR, "last measurement MUST be unchanged")
		suite.Len(suite.measurements, 1)
		suite.True(suite.hasLog(logrus.WarnLevel, "dropping heart rate measurement"))
	})

	suite.Run("16-bit payload replaces the last value", func() {
		suite.client.send(measurementHandle, []byte{0x01, 0x64, 0x00})

		m, _ := s.Measurement()
		suite.Equal(uint16(100), m.HR)
		suite.False(m.EnergyPresent)
		suite.Len(suite.measurements, 2)
	})
}

func (suite *ProfileTestSuite) TestSubscriptionAcknowledgement() {
	suite.accept()

	suite.client.acknowledge(0)
	suite.True(suite.hasLog(logrus.DebugLevel, "notifications enabled"))

	suite.client.acknowledge(gatt.ErrCCCDImproperlyConfigured)
	suite.True(suite.hasLog(logrus.ErrorLevel, "notifications not enabled"))
	suite.Len(suite.client.regs, 1, "failed acknowledgement MUST NOT be retried")
}

func (suite *ProfileTestSuite) TestSensorLocationRead() {
	s := suite.accept()

	suite.client.completeRead(true, 0, []byte{2})

	l, ok := s.SensorLocation()
	suite.Require().True(ok)
	suite.Equal(heart.LocationWrist, l)
	suite.Equal([]heart.SensorLocation{heart.LocationWrist}, suite.locations)
	suite.Len(suite.client.active(locationHandle), 1, "sensor location MUST be subscribed after a successful read")

	suite.client.send(locationHandle, []byte{9})

	l, _ = s.SensorLocation()
	suite.Equal(heart.LocationUnknown, l)
}

func (suite *ProfileTestSuite) TestSensorLocationReadFailure() {
	s := suite.accept()

	suite.client.completeRead(false, gatt.ErrReadNotPermitted, nil)

	_, ok := s.SensorLocation()
	suite.False(ok)
	suite.Empty(suite.client.active(locationHandle), "failed read MUST NOT subscribe")
	suite.Empty(suite.client.reads, "failed read MUST NOT be retried")
	suite.True(suite.hasLog(logrus.DebugLevel, "reading body sensor location failed"))
}

func (suite *ProfileTestSuite) TestSensorLocationReadEmpty() {
	s := suite.accept()

	suite.client.completeRead(true, 0, nil)

	_, ok := s.SensorLocation()
	suite.False(ok)
	suite.Empty(suite.client.active(locationHandle))
}

func (suite *ProfileTestSuite) TestClientRefusesRequests() {
	suite.client.refuseRead = true
	suite.client.refuseRegister = true

	s := suite.accept()

	suite.Equal(measurementHandle, s.MeasurementHandle())
	suite.Equal(locationHandle, s.SensorLocationHandle())
	suite.Empty(suite.client.regs)
	suite.True(suite.hasLog(logrus.DebugLevel, "failed to send request to read body sensor location"))
	suite.True(suite.hasLog(logrus.ErrorLevel, "failed to register for notifications"))
}

func (suite *ProfileTestSuite) TestUnknownNotificationHandle() {
	s := suite.accept()
	reg := suite.client.active(measurementHandle)[0]

	suite.NotPanics(func() { reg.notify(0x0042, []byte{0x00, 0x50}) })

	_, ok := s.Measurement()
	suite.False(ok)
	suite.True(suite.hasLog(logrus.ErrorLevel, "notification for unknown handle"))
}

func (suite *ProfileTestSuite) TestCharacteristicDataUnavailable() {
	svc := heartRateService()
	svc.chars[0].bad = true
	suite.db.services = []*fakeService{svc}

	s := suite.accept()

	suite.Zero(s.MeasurementHandle(), "characteristic without data MUST be skipped")
	suite.Equal(locationHandle, s.SensorLocationHandle(), "siblings MUST still be handled")
	suite.True(suite.hasLog(logrus.ErrorLevel, "failed to obtain characteristic data"))
}

func (suite *ProfileTestSuite) TestDuplicateService() {
	second := &fakeService{
		uuid: heart.ServiceUUID,
		chars: []fakeCharacteristic{
			{data: gatt.CharacteristicData{Handle: 0x0021, ValueHandle: 0x0022, Properties: gatt.PropNotify, UUID: heart.MeasurementUUID}},
		},
	}
	suite.db.services = append(suite.db.services, second)

	s := suite.accept()

	suite.Equal(measurementHandle, s.MeasurementHandle(), "first service MUST win")
	suite.Empty(suite.client.active(0x0022), "second service MUST be ignored")
	suite.True(suite.hasLog(logrus.ErrorLevel, "more than one HRP service exists for this device"))
}

func (suite *ProfileTestSuite) TestDisconnect() {
	s := suite.accept()
	suite.client.send(measurementHandle, []byte{0x00, 0x48})
	suite.client.completeRead(true, 0, []byte{1})
	measurementReg := suite.client.active(measurementHandle)[0]
	locationReg := suite.client.active(locationHandle)[0]

	suite.svc.On("DisconnectingComplete", nil).Once()
	err := suite.profile.Disconnect(suite.svc)

	suite.Require().NoError(err)
	suite.Equal(hrp.Disconnected, s.State())
	suite.False(s.HasService())
	suite.Zero(s.MeasurementHandle())
	suite.Zero(s.SensorLocationHandle())
	suite.Equal(0, suite.db.refs.n, "disconnect MUST release the database")
	suite.Equal(0, suite.client.refs.n, "disconnect MUST release the client")
	suite.Equal(1, suite.dev.refs.n, "disconnect MUST keep the device")
	suite.False(measurementReg.active, "disconnect MUST unregister notifications")
	suite.False(locationReg.active, "disconnect MUST unregister notifications")

	m, ok := s.Measurement()
	suite.True(ok, "last measurement MUST survive disconnect")
	suite.Equal(uint16(72), m.HR)
	l, ok := s.SensorLocation()
	suite.True(ok, "last location MUST survive disconnect")
	suite.Equal(heart.LocationChest, l)

	suite.Run("late callbacks are ignored", func() {
		suite.NotPanics(func() {
			measurementReg.notify(measurementHandle, []byte{0x00, 0x99})
			measurementReg.registered(gatt.ErrUnlikely)
		})
		m, _ := s.Measurement()
		suite.Equal(uint16(72), m.HR)
		suite.Len(suite.measurements, 1)
	})
}

func (suite *ProfileTestSuite) TestLateReadAfterDisconnect() {
	s := suite.accept()
	suite.svc.On("DisconnectingComplete", nil).Once()
	suite.Require().NoError(suite.profile.Disconnect(suite.svc))

	suite.client.completeRead(true, 0, []byte{3})

	_, ok := s.SensorLocation()
	suite.False(ok, "read completing after disconnect MUST be ignored")
	suite.Empty(suite.client.regs[1:], "read completing after disconnect MUST NOT subscribe")
}

func (suite *ProfileTestSuite) TestReaccept() {
	s := suite.accept()
	suite.client.send(measurementHandle, []byte{0x00, 0x48})
	suite.svc.On("DisconnectingComplete", nil).Once()
	suite.Require().NoError(suite.profile.Disconnect(suite.svc))
	suite.client.reads = nil

	suite.svc.On("ConnectingComplete", nil).Once()
	err := suite.profile.Accept(suite.svc)

	suite.Require().NoError(err)
	suite.Equal(hrp.Accepted, s.State())
	suite.Equal(measurementHandle, s.MeasurementHandle(), "handles MUST be rediscovered")
	suite.Equal(locationHandle, s.SensorLocationHandle(), "handles MUST be rediscovered")
	suite.Equal(1, suite.db.refs.n)
	suite.Equal(1, suite.client.refs.n)
	suite.Len(suite.client.active(measurementHandle), 1)
	suite.Len(suite.client.reads, 1)

	suite.client.send(measurementHandle, []byte{0x00, 0x50})
	m, _ := s.Measurement()
	suite.Equal(uint16(80), m.HR)
}

func (suite *ProfileTestSuite) TestAcceptTwice() {
	s := suite.accept()

	suite.svc.On("ConnectingComplete", nil).Once()
	err := suite.profile.Accept(suite.svc)

	suite.Require().NoError(err)
	suite.Equal(hrp.Accepted, s.State())
	suite.Equal(1, suite.db.refs.n, "re-accept MUST NOT leak database references")
	suite.Equal(1, suite.client.refs.n, "re-accept MUST NOT leak client references")
	suite.Len(suite.client.active(measurementHandle), 1, "re-accept MUST NOT duplicate subscriptions")
}

func (suite *ProfileTestSuite) TestDisconnectWithoutProbe() {
	err := suite.profile.Disconnect(suite.svc)

	suite.ErrorIs(err, hrp.ErrNotProbed)
}

func (suite *ProfileTestSuite) TestDisconnectProbed() {
	suite.Require().NoError(suite.profile.Probe(suite.svc))
	suite.svc.On("DisconnectingComplete", nil).Once()

	err := suite.profile.Disconnect(suite.svc)

	suite.Require().NoError(err)
	suite.Equal(hrp.Probed, hrp.SessionOf(suite.svc).State())
}

func (suite *ProfileTestSuite) TestRemove() {
	suite.Run("remove accepted session", func() {
		s := suite.accept()

		suite.profile.Remove(suite.svc)

		suite.Equal(hrp.Removed, s.State())
		suite.Nil(hrp.SessionOf(suite.svc))
		suite.Nil(suite.svc.UserData())
		suite.Equal(0, suite.dev.refs.n, "remove MUST release the device")
		suite.Equal(0, suite.db.refs.n, "remove MUST release the database")
		suite.Equal(0, suite.client.refs.n, "remove MUST release the client")
	})

	suite.Run("remove without session is logged", func() {
		suite.NotPanics(func() { suite.profile.Remove(suite.svc) })

		suite.Equal(0, suite.dev.refs.n)
		suite.True(suite.hasLog(logrus.ErrorLevel, "HRP service not handled by profile"))
	})

	suite.Run("probe after remove", func() {
		err := suite.profile.Probe(suite.svc)

		suite.NoError(err)
		suite.Equal(1, suite.dev.refs.n)
	})
}

func TestNewNilLogger(t *testing.T) {
	p := hrp.New(nil)
	dev := &fakeDevice{addr: "00:00:00:00:00:01"}
	svc := &fakeLifecycle{dev: dev}
	if err := p.Probe(svc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name != "heartrate-profile" || p.RemoteUUID != heart.ServiceUUID {
		t.Errorf("unexpected profile identity: %q %v", p.Name, p.RemoteUUID)
	}
}
