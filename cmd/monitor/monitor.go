// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"github.com/kortschak/hrp/battery"
	"github.com/kortschak/hrp/cmd/internal/display"
	"github.com/kortschak/hrp/heart"
	"github.com/kortschak/hrp/hrp"
	"github.com/kortschak/hrp/internal/config"
	"github.com/kortschak/hrp/internal/forkbeard"
)

type monitor struct {
	loop    *forkbeard.Loop
	dev     *forkbeard.Device
	profile *hrp.Profile
	svc     *forkbeard.Service
	cancel  context.CancelFunc

	once sync.Once
	err  error
}

func newMonitor(ctx context.Context, dev bluetooth.Device, cfg config.Config, log logrus.FieldLogger, update chan<- *image.Gray) (*monitor, error) {
	ctx, cancel := context.WithCancel(ctx)
	loop := forkbeard.NewLoop(cfg.QueueLength)
	go loop.Run(ctx)

	d, err := forkbeard.NewDevice(&dev, cfg.Address, loop)
	if err != nil {
		cancel()
		return nil, errors.Join(fmt.Errorf("failed to discover device: %w", err), dev.Disconnect())
	}

	rates := make(chan heart.Measurement, 1)
	locations := make(chan heart.SensorLocation, 1)
	p := hrp.New(log)
	p.OnMeasurement = func(_ *hrp.Session, m heart.Measurement) {
		select {
		case rates <- m:
		default:
			log.Debug("display busy: dropping measurement")
		}
	}
	p.OnSensorLocation = func(_ *hrp.Session, l heart.SensorLocation) {
		select {
		case locations <- l:
		default:
		}
	}

	svc := forkbeard.NewService(d, log)
	err = forkbeard.Attach(loop, p, svc)
	if err != nil {
		cancel()
		<-loop.Done()
		return nil, errors.Join(fmt.Errorf("failed to start heart rate profile: %w", err), d.Close())
	}

	levels := make(chan int, 1)
	err = loop.Do(func() {
		h, err := battery.LevelHandle(d.Database())
		if err != nil {
			log.WithError(err).Debug("no battery level")
			return
		}
		battery.ReadLevel(d.Client(), h, func(level int, err error) {
			if err != nil {
				log.WithError(err).Warn("failed to get battery level")
				return
			}
			levels <- level
		})
	})
	if err != nil {
		cancel()
		return nil, errors.Join(err, d.Close())
	}

	card := display.NewCard(cfg.History)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case m := <-rates:
				card.AddMeasurement(m, time.Now())
			case l := <-locations:
				card.SetLocation(l)
			case l := <-levels:
				card.SetBattery(l)
			}
			select {
			case <-ctx.Done():
				return
			case update <- card.Snapshot():
			}
		}
	}()

	return &monitor{
		loop:    loop,
		dev:     d,
		profile: p,
		svc:     svc,
		cancel:  cancel,
	}, nil
}

// Close detaches the heart rate profile from the device and disconnects
// it. It is safe to call Close more than once.
func (m *monitor) Close() error {
	m.once.Do(func() {
		err := forkbeard.Detach(m.loop, m.profile, m.svc)
		m.cancel()
		<-m.loop.Done()
		m.err = errors.Join(err, m.dev.Close())
	})
	return m.err
}
