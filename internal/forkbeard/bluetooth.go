// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package forkbeard provides a GATT database and client for connected
// Bluetooth devices, with callbacks delivered on an event Loop.
package forkbeard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"tinygo.org/x/bluetooth"

	"github.com/kortschak/hrp/gatt"
	"github.com/kortschak/hrp/hrp"
)

// characteristicIO is the subset of bluetooth.DeviceCharacteristic
// used for value access.
type characteristicIO interface {
	GetMTU() (uint16, error)
	Read(data []byte) (int, error)
	EnableNotifications(callback func(buf []byte)) error
}

// discovered is the result of service discovery for a single service.
type discovered struct {
	uuid  bluetooth.UUID
	chars []discoveredCharacteristic
}

type discoveredCharacteristic struct {
	uuid bluetooth.UUID
	io   characteristicIO
}

// discover discovers all the services and characteristics of dev.
func discover(dev *bluetooth.Device) ([]discovered, error) {
	srvs, err := dev.DiscoverServices(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to discover services: %w", err)
	}
	found := make([]discovered, 0, len(srvs))
	for i := range srvs {
		srv := &srvs[i]
		chars, err := srv.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to discover characteristics of service %s: %w", srv.UUID(), err)
		}
		d := discovered{uuid: srv.UUID()}
		for j := range chars {
			d.chars = append(d.chars, discoveredCharacteristic{uuid: chars[j].UUID(), io: &chars[j]})
		}
		found = append(found, d)
	}
	return found, nil
}

// ReadCharacteristic reads data from a Bluetooth characteristic.
func ReadCharacteristic(char characteristicIO) ([]byte, error) {
	mtu, err := char.GetMTU()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain mtu of characteristic: %w", err)
	}
	buf := make([]byte, mtu)
	n, err := char.Read(buf)
	if err != nil && err != io.EOF {
		return buf[:n], fmt.Errorf("failed to read response from characteristic: %w", err)
	}
	return buf[:n], nil
}

// Device is a connected Bluetooth device. It implements hrp.Device.
//
// Reference counting and all gatt.Database and gatt.Client methods
// must be called on the Device's event loop.
type Device struct {
	addr string
	refs int

	db     *Database
	client *Client

	work   *Loop
	cancel context.CancelFunc

	disconnect func() error
}

// NewDevice discovers the attributes of the connected dev and returns
// a Device delivering GATT callbacks on loop. The caller should call
// Close when the device is no longer needed.
func NewDevice(dev *bluetooth.Device, addr string, loop *Loop) (*Device, error) {
	found, err := discover(dev)
	if err != nil {
		return nil, err
	}
	d := newDevice(addr, found, loop)
	d.disconnect = dev.Disconnect
	return d, nil
}

func newDevice(addr string, found []discovered, loop *Loop) *Device {
	ctx, cancel := context.WithCancel(context.Background())
	work := NewLoop(64)
	go work.Run(ctx)
	db := newDatabase(found)
	return &Device{
		addr:   addr,
		db:     db,
		client: newClient(db, loop, work),
		work:   work,
		cancel: cancel,
	}
}

func (d *Device) Ref()   { d.refs++ }
func (d *Device) Unref() { d.refs-- }

// Address returns the device's Bluetooth address.
func (d *Device) Address() string { return d.addr }

// Database returns the device's GATT database.
func (d *Device) Database() gatt.Database {
	if d.db == nil {
		return nil
	}
	return d.db
}

// Client returns the device's GATT client, or nil after Close.
func (d *Device) Client() gatt.Client {
	if d.client == nil {
		return nil
	}
	return d.client
}

// Close stops the device's request worker and disconnects the device.
// It must be called on the event loop or after the loop has stopped.
func (d *Device) Close() error {
	if d.client == nil {
		return nil
	}
	d.client.stop()
	d.client = nil
	d.cancel()
	if d.disconnect != nil {
		return d.disconnect()
	}
	return nil
}

var _ hrp.Device = (*Device)(nil)

// Database is a GATT database snapshot built from service discovery.
// Attribute handles are assigned sequentially in discovery order.
type Database struct {
	refs     int
	services []*service
	values   map[gatt.Handle]*characteristic
}

func newDatabase(found []discovered) *Database {
	db := &Database{values: make(map[gatt.Handle]*characteristic)}
	h := gatt.Handle(1)
	for _, d := range found {
		s := &service{uuid: d.uuid, handle: h}
		h++
		for _, c := range d.chars {
			char := &characteristic{
				data: gatt.CharacteristicData{
					Handle:      h,
					ValueHandle: h + 1,
					UUID:        c.uuid,
				},
				io: c.io,
			}
			h += 2
			s.chars = append(s.chars, char)
			db.values[char.data.ValueHandle] = char
		}
		db.services = append(db.services, s)
	}
	return db
}

func (db *Database) Ref()   { db.refs++ }
func (db *Database) Unref() { db.refs-- }

// ForEachService calls fn for each service with the given UUID.
func (db *Database) ForEachService(uuid bluetooth.UUID, fn func(gatt.Service)) {
	for _, s := range db.services {
		if s.uuid == uuid {
			fn(s)
		}
	}
}

type service struct {
	uuid   bluetooth.UUID
	handle gatt.Handle
	chars  []*characteristic
}

func (s *service) UUID() bluetooth.UUID { return s.uuid }

func (s *service) ForEachCharacteristic(fn func(gatt.Characteristic)) {
	for _, c := range s.chars {
		fn(c)
	}
}

type characteristic struct {
	data gatt.CharacteristicData
	io   characteristicIO
}

func (c *characteristic) Data() (gatt.CharacteristicData, bool) {
	return c.data, c.io != nil
}

// Client is a GATT client for a Device. Blocking Bluetooth operations
// are performed on a worker loop and their results posted to the event
// loop.
type Client struct {
	db   *Database
	loop *Loop
	work *Loop

	refs int

	// gen is incremented when the client is released or stopped
	// so that in-flight completions are dropped.
	gen uint64

	stopped bool
	lastID  uint
	regs    map[uint]*registration
	enabled map[gatt.Handle]bool
}

type registration struct {
	handle gatt.Handle
	notify gatt.NotifyFunc
}

func newClient(db *Database, loop, work *Loop) *Client {
	return &Client{
		db:      db,
		loop:    loop,
		work:    work,
		regs:    make(map[uint]*registration),
		enabled: make(map[gatt.Handle]bool),
	}
}

func (c *Client) Ref() { c.refs++ }

// Unref drops a reference. When the last reference is dropped all
// notification registrations are removed and pending completions are
// discarded.
func (c *Client) Unref() {
	c.refs--
	if c.refs > 0 {
		return
	}
	c.clear()
}

func (c *Client) clear() {
	for id := range c.regs {
		c.UnregisterNotify(id)
	}
	c.gen++
}

func (c *Client) stop() {
	c.clear()
	c.stopped = true
}

// ReadValue reads the value with handle h.
func (c *Client) ReadValue(h gatt.Handle, fn gatt.ReadFunc) bool {
	char, ok := c.db.values[h]
	if !ok || c.stopped {
		return false
	}
	gen := c.gen
	return c.work.TryPost(func() {
		value, err := ReadCharacteristic(char.io)
		c.loop.Post(func() {
			if c.gen != gen {
				return
			}
			if err != nil {
				fn(false, attError(err), nil)
				return
			}
			fn(true, 0, value)
		})
	})
}

// RegisterNotify registers for notifications of the value with handle h.
func (c *Client) RegisterNotify(h gatt.Handle, registered gatt.RegisteredFunc, notify gatt.NotifyFunc) uint {
	char, ok := c.db.values[h]
	if !ok || c.stopped {
		return 0
	}
	c.lastID++
	id := c.lastID

	if c.enabled[h] {
		ok = c.loop.TryPost(func() {
			if _, ok := c.regs[id]; ok {
				registered(0)
			}
		})
		if !ok {
			// The acknowledgement could not be queued, so the
			// registration is not made.
			return 0
		}
		c.regs[id] = &registration{handle: h, notify: notify}
		return id
	}

	gen := c.gen
	ok = c.work.TryPost(func() {
		err := char.io.EnableNotifications(func(buf []byte) {
			value := bytes.Clone(buf)
			c.loop.Post(func() { c.deliver(h, value) })
		})
		c.loop.Post(func() {
			if err != nil {
				c.enabled[h] = false
			}
			if c.gen != gen {
				return
			}
			if _, ok := c.regs[id]; !ok {
				return
			}
			registered(attError(err))
		})
	})
	if !ok {
		return 0
	}
	c.enabled[h] = true
	c.regs[id] = &registration{handle: h, notify: notify}
	return id
}

// UnregisterNotify removes the registration with the given id. When the
// last registration for a handle is removed, notifications are disabled.
func (c *Client) UnregisterNotify(id uint) bool {
	reg, ok := c.regs[id]
	if !ok {
		return false
	}
	delete(c.regs, id)
	for _, r := range c.regs {
		if r.handle == reg.handle {
			return true
		}
	}
	if c.enabled[reg.handle] {
		c.enabled[reg.handle] = false
		char := c.db.values[reg.handle]
		c.work.TryPost(func() { char.io.EnableNotifications(nil) })
	}
	return true
}

func (c *Client) deliver(h gatt.Handle, value []byte) {
	for _, r := range c.regs {
		if r.handle == h {
			r.notify(h, value)
		}
	}
}

// attError returns the ATT error code for err. Errors that do not
// carry an ATT code are reported as gatt.ErrUnlikely.
func attError(err error) gatt.ATTError {
	if err == nil {
		return 0
	}
	var code gatt.ATTError
	if errors.As(err, &code) && code != 0 {
		return code
	}
	return gatt.ErrUnlikely
}
