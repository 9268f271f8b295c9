// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The monitor command is a demonstration of the heart rate profile
// collector. It connects to a heart rate sensor and displays its
// measurements.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"gioui.org/app"
	"gioui.org/font/gofont"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/paint"
	"gioui.org/text"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"gioui.org/x/explorer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"tinygo.org/x/bluetooth"

	"github.com/kortschak/hrp/cmd/internal/display"
	"github.com/kortschak/hrp/heart"
	"github.com/kortschak/hrp/internal/config"
)

func main() {
	err := rootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Display heart rate measurements from a Bluetooth heart rate sensor",
		Args:  cobra.NoArgs,
		RunE:  run,

		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.Flags().String("addr", "", "sensor bluetooth address")
	cmd.Flags().String("config", "", "path to YAML configuration file")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().Duration("scan-timeout", 0, "maximum time to scan for the sensor")
	return cmd
}

// loadConfig returns the configuration from the file named by the config
// flag, with explicitly set flags taking precedence.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	flags := cmd.Flags()
	path, err := flags.GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if flags.Changed("addr") {
		cfg.Address, _ = flags.GetString("addr")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("scan-timeout") {
		cfg.ScanTimeout, _ = flags.GetDuration("scan-timeout")
	}
	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := cfg.NewLogger()
	if err != nil {
		return err
	}

	adapter := bluetooth.DefaultAdapter
	err = adapter.Enable()
	if err != nil {
		return fmt.Errorf("failed to enable bluetooth: %w", err)
	}
	var macAddr bluetooth.Address
	err = macAddr.UnmarshalText([]byte(cfg.Address))
	if err != nil {
		return fmt.Errorf("invalid sensor address: %w", err)
	}

	dev, err := scan(adapter, macAddr, cfg.ScanTimeout, log)
	if err != nil {
		return err
	}

	update := make(chan *image.Gray)
	m, err := newMonitor(context.Background(), dev, cfg, log, update)
	if err != nil {
		return err
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		closeAndExit(m, log)
	}()

	go func() {
		w := new(app.Window)
		w.Option(
			app.Title(cfg.Window.Title),
			app.Size(unit.Dp(cfg.Window.Width), unit.Dp(cfg.Window.Height)),
		)
		if err := newViewer(w, log).run(update); err != nil {
			log.WithError(err).Error("window failed")
		}
		closeAndExit(m, log)
	}()
	app.Main()
	return nil
}

func closeAndExit(m *monitor, log logrus.FieldLogger) {
	err := m.Close()
	if err != nil {
		log.WithError(err).Error("failed to close monitor")
		os.Exit(1)
	}
	os.Exit(0)
}

var errScanTimeout = errors.New("sensor not found")

// scan scans for the device with the given address and connects to it.
func scan(adapter *bluetooth.Adapter, addr bluetooth.Address, timeout time.Duration, log logrus.FieldLogger) (bluetooth.Device, error) {
	log.WithField("addr", addr.String()).Info("scanning")
	var timedOut atomic.Bool
	timer := time.AfterFunc(timeout, func() {
		timedOut.Store(true)
		adapter.StopScan()
	})
	defer timer.Stop()

	var (
		dev        bluetooth.Device
		connectErr error
	)
	err := adapter.Scan(func(adapter *bluetooth.Adapter, found bluetooth.ScanResult) {
		if found.Address != addr {
			return
		}
		log.WithFields(logrus.Fields{
			"addr":              found.Address.String(),
			"rssi":              found.RSSI,
			"name":              found.LocalName(),
			"manufacturer_data": manData(found.ManufacturerData()),
			"heart_rate":        found.HasServiceUUID(heart.ServiceUUID),
		}).Info("found device")
		dev, connectErr = adapter.Connect(found.Address, bluetooth.ConnectionParams{})
		adapter.StopScan()
	})
	if err != nil {
		return dev, fmt.Errorf("failed to scan: %w", err)
	}
	if connectErr != nil {
		return dev, fmt.Errorf("failed to connect: %w", connectErr)
	}
	if timedOut.Load() {
		return dev, fmt.Errorf("%w after %v", errScanTimeout, timeout)
	}
	return dev, nil
}

func manData(m []bluetooth.ManufacturerDataElement) []string {
	s := make([]string, len(m))
	for i, d := range m {
		s[i] = fmt.Sprintf("%#x", d.Data)
	}
	return s
}

// viewer shows the latest card in a window and saves it as a PNG
// on request.
type viewer struct {
	w    *app.Window
	expl *explorer.Explorer
	th   *material.Theme
	log  logrus.FieldLogger

	card atomic.Pointer[image.Gray]
	save widget.Clickable
}

func newViewer(w *app.Window, log logrus.FieldLogger) *viewer {
	th := material.NewTheme()
	th.Shaper = text.NewShaper(text.WithCollection(gofont.Collection()))
	return &viewer{
		w:    w,
		expl: explorer.NewExplorer(w),
		th:   th,
		log:  log,
	}
}

// run handles window events until the window is destroyed, showing
// each card received from update.
func (v *viewer) run(update <-chan *image.Gray) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			case img := <-update:
				v.card.Store(img)
				v.w.Invalidate()
			}
		}
	}()

	var ops op.Ops
	for {
		e := v.w.Event()
		v.expl.ListenEvents(e)
		switch e := e.(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			v.layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

func (v *viewer) layout(gtx layout.Context) layout.Dimensions {
	img := v.card.Load()
	if v.save.Clicked(gtx) && img != nil {
		go v.export(img)
	}
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
			if img == nil {
				return layout.Dimensions{}
			}
			return widget.Image{
				Src: paint.NewImageOp(img),
				Fit: widget.Contain,
			}.Layout(gtx)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.UniformInset(unit.Dp(8)).Layout(gtx,
				material.Button(v.th, &v.save, "Save image").Layout,
			)
		}),
	)
}

// export writes img to a file chosen by the user.
func (v *viewer) export(img *image.Gray) {
	f, err := v.expl.CreateFile("heart-rate.png")
	if err != nil {
		if !errors.Is(err, explorer.ErrUserDecline) {
			v.log.WithError(err).Error("failed to create card file")
		}
		return
	}
	err = display.WritePNG(f, img)
	if err != nil {
		v.log.WithError(err).Error("failed to save card")
		return
	}
	v.log.Info("saved card")
}
