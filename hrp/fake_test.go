// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hrp_test

import (
	"slices"

	"github.com/stretchr/testify/mock"
	"tinygo.org/x/bluetooth"

	"github.com/kortschak/hrp/gatt"
	"github.com/kortschak/hrp/hrp"
)

type refs struct{ n int }

func (r *refs) Ref()   { r.n++ }
func (r *refs) Unref() { r.n-- }

type fakeDevice struct {
	refs
	addr   string
	db     *fakeDatabase
	client *fakeClient
}

func (d *fakeDevice) Address() string { return d.addr }

func (d *fakeDevice) Database() gatt.Database {
	if d.db == nil {
		return nil
	}
	return d.db
}

func (d *fakeDevice) Client() gatt.Client {
	if d.client == nil {
		return nil
	}
	return d.client
}

type fakeDatabase struct {
	refs
	services []*fakeService
}

func (db *fakeDatabase) ForEachService(uuid bluetooth.UUID, fn func(gatt.Service)) {
	for _, s := range db.services {
		if s.uuid == uuid {
			fn(s)
		}
	}
}

type fakeService struct {
	uuid  bluetooth.UUID
	chars []fakeCharacteristic
}

func (s *fakeService) UUID() bluetooth.UUID { return s.uuid }

func (s *fakeService) ForEachCharacteristic(fn func(gatt.Characteristic)) {
	for _, c := range s.chars {
		fn(c)
	}
}

type fakeCharacteristic struct {
	data gatt.CharacteristicData
	bad  bool
}

func (c fakeCharacteristic) Data() (gatt.CharacteristicData, bool) {
	return c.data, !c.bad
}

type pendingRead struct {
	handle gatt.Handle
	fn     gatt.ReadFunc
}

type registration struct {
	id         uint
	handle     gatt.Handle
	registered gatt.RegisteredFunc
	notify     gatt.NotifyFunc
	active     bool
}

// fakeClient queues requests for the test to complete explicitly.
type fakeClient struct {
	refs

	refuseRead     bool
	refuseRegister bool

	reads []pendingRead
	regs  []*registration
}

func (c *fakeClient) ReadValue(h gatt.Handle, fn gatt.ReadFunc) bool {
	if c.refuseRead {
		return false
	}
	c.reads = append(c.reads, pendingRead{handle: h, fn: fn})
	return true
}

func (c *fakeClient) RegisterNotify(h gatt.Handle, registered gatt.RegisteredFunc, notify gatt.NotifyFunc) uint {
	if c.refuseRegister {
		return 0
	}
	r := &registration{
		id:         uint(len(c.regs) + 1),
		handle:     h,
		registered: registered,
		notify:     notify,
		active:     true,
	}
	c.regs = append(c.regs, r)
	return r.id
}

func (c *fakeClient) UnregisterNotify(id uint) bool {
	for _, r := range c.regs {
		if r.id == id && r.active {
			r.active = false
			return true
		}
	}
	return false
}

// active returns the active registrations for h.
func (c *fakeClient) active(h gatt.Handle) []*registration {
	var regs []*registration
	for _, r := range c.regs {
		if r.active && r.handle == h {
			regs = append(regs, r)
		}
	}
	return regs
}

// acknowledge completes all registrations with code.
func (c *fakeClient) acknowledge(code gatt.ATTError) {
	for _, r := range c.regs {
		if r.active {
			r.registered(code)
		}
	}
}

// send delivers a notification to active registrations for h.
func (c *fakeClient) send(h gatt.Handle, value []byte) {
	for _, r := range slices.Clone(c.regs) {
		if r.active && r.handle == h {
			r.notify(h, value)
		}
	}
}

// completeRead completes the oldest pending read.
func (c *fakeClient) completeRead(success bool, code gatt.ATTError, value []byte) pendingRead {
	r := c.reads[0]
	c.reads = c.reads[1:]
	r.fn(success, code, value)
	return r
}

type fakeLifecycle struct {
	mock.Mock
	dev  *fakeDevice
	data any
}

func (l *fakeLifecycle) Device() hrp.Device { return l.dev }
func (l *fakeLifecycle) UserData() any      { return l.data }
func (l *fakeLifecycle) SetUserData(v any)  { l.data = v }

func (l *fakeLifecycle) ConnectingComplete(err error)    { l.Called(err) }
func (l *fakeLifecycle) DisconnectingComplete(err error) { l.Called(err) }
