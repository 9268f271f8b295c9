// Copyright ©2025 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config provides the heart rate monitor configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
	"tinygo.org/x/bluetooth"
)

// Config is the monitor configuration.
type Config struct {
	// Address is the Bluetooth address of the sensor.
	Address string `yaml:"address"`

	LogLevel string `yaml:"log_level" default:"info"`

	// ScanTimeout is the maximum time to scan for the sensor.
	ScanTimeout time.Duration `yaml:"scan_timeout" default:"30s"`

	// History is the averaging period of each point in the rate
	// history plot.
	History time.Duration `yaml:"history" default:"1m"`

	// QueueLength is the length of the event loop queue.
	QueueLength int `yaml:"queue_length" default:"64"`

	Window Window `yaml:"window"`
}

// Window is the monitor window configuration.
type Window struct {
	Title  string `yaml:"title" default:"Heart Rate"`
	Width  int    `yaml:"width" default:"296"`
	Height int    `yaml:"height" default:"128"`
}

// Default returns a Config with default values.
func Default() Config {
	var cfg Config
	defaults.SetDefaults(&cfg)
	return cfg
}

// Load returns the configuration in the YAML file at path. Values not
// present in the file are set to their defaults. If path is empty the
// default configuration is returned.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	err = dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	var errs []error
	if c.Address == "" {
		errs = append(errs, errors.New("missing sensor address"))
	} else {
		var addr bluetooth.Address
		if err := addr.UnmarshalText([]byte(c.Address)); err != nil {
			errs = append(errs, fmt.Errorf("invalid sensor address %q: %w", c.Address, err))
		}
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.ScanTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid scan timeout: %v", c.ScanTimeout))
	}
	if c.History <= 0 {
		errs = append(errs, fmt.Errorf("invalid history period: %v", c.History))
	}
	if c.QueueLength < 1 {
		errs = append(errs, fmt.Errorf("invalid queue length: %d", c.QueueLength))
	}
	if c.Window.Width < 1 || c.Window.Height < 1 {
		errs = append(errs, fmt.Errorf("invalid window size: %dx%d", c.Window.Width, c.Window.Height))
	}
	return errors.Join(errs...)
}

// NewLogger returns a logger writing to stderr at the configured level.
func (c Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(level)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	return log, nil
}
