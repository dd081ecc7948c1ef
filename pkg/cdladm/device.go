// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cdladm manages the command duration limits configuration of a
// SCSI or ATA device.
package cdladm

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/open-source-firmware/go-cdl/pkg/cdl"
	"github.com/open-source-firmware/go-cdl/pkg/drive"
	"github.com/open-source-firmware/go-cdl/pkg/sysfs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Features describes the CDL capabilities and state of a device.
type Features struct {
	Supported          bool `json:"supported" yaml:"supported"`
	GuidelineSupported bool `json:"guideline_supported" yaml:"guideline_supported"`
	HighPriSupported   bool `json:"high_priority_supported" yaml:"high_priority_supported"`
	Enabled            bool `json:"enabled" yaml:"enabled"`
	HighPriEnabled     bool `json:"high_priority_enabled" yaml:"high_priority_enabled"`
	// SystemSupported is set when the kernel exposes duration limits for
	// the device.
	SystemSupported bool `json:"system_supported" yaml:"system_supported"`
}

// backend is the command set specific half of a Device.
type backend interface {
	init() error
	readPage(kind cdl.PageKind) (*cdl.Page, error)
	writePage(p *cdl.Page) error
	revalidate()
}

type Device struct {
	Name      string          `json:"name" yaml:"name"`
	Path      string          `json:"path" yaml:"path"`
	Identity  *drive.Identity `json:"identity" yaml:"identity"`
	Capacity  uint64          `json:"capacity" yaml:"capacity"`
	Interface drive.Interface `json:"interface" yaml:"interface"`
	Features  Features        `json:"features" yaml:"features"`
	Limits    cdl.Limits      `json:"limits" yaml:"limits"`

	commandPages [4]cdl.PageKind

	cfg   Config
	drv   drive.DriveIntf
	fs    afero.Fs
	sys   *sysfs.Attrs
	log   logrus.FieldLogger
	be    backend
	pages map[cdl.PageKind]*cdl.Page
}

type Option func(*Device)

// WithFs sets the filesystem used for sysfs attributes and page files.
func WithFs(fs afero.Fs) Option {
	return func(d *Device) {
		d.fs = fs
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(d *Device) {
		d.log = log
	}
}

// WithDrive uses an already open drive instead of opening the device path.
func WithDrive(drv drive.DriveIntf) Option {
	return func(d *Device) {
		d.drv = drv
	}
}

// Open opens the device at path, identifies it and discovers its CDL
// support. The command set used to access CDL pages is chosen once here.
func Open(path string, cfg Config, opts ...Option) (*Device, error) {
	d := &Device{
		Name:  filepath.Base(path),
		Path:  path,
		cfg:   cfg,
		pages: map[cdl.PageKind]*cdl.Page{},
	}
	for i := range d.commandPages {
		d.commandPages[i] = cdl.PageNone
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.fs == nil {
		d.fs = afero.NewOsFs()
	}
	if d.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		d.log = l
	}
	d.log = d.log.WithField("device", d.Name)
	d.sys = sysfs.New(d.fs)

	if d.drv == nil {
		dopts := []drive.Option{drive.WithExclusive(!cfg.Shared)}
		if cfg.Verbose {
			dopts = append(dopts, drive.WithLogger(d.log))
		}
		drv, err := drive.Open(path, dopts...)
		if err != nil {
			return nil, err
		}
		d.drv = drv
	}

	if err := d.init(); err != nil {
		d.drv.Close()
		return nil, err
	}
	return d, nil
}

func (d *Device) init() error {
	id, err := d.drv.Identify()
	if err != nil {
		return fmt.Errorf("identify: %w", err)
	}
	d.Identity = id

	d.Capacity, err = drive.Capacity(d.drv)
	if err != nil && !errors.Is(err, drive.ErrNotSupported) {
		return fmt.Errorf("read capacity: %w", err)
	}

	if t, err := d.sys.CommandTimeout(d.Name); err == nil {
		d.Limits.CommandTimeout = t
	} else {
		d.log.Debugf("command timeout: %v", err)
	}
	d.Features.SystemSupported = d.sys.CDLSupported(d.Name)

	d.Interface = id.Interface(d.cfg.ForceATA)
	switch d.Interface {
	case drive.InterfaceATA:
		d.be = &ataBackend{d: d}
	default:
		d.be = &scsiBackend{d: d}
	}
	d.log.Debugf("using %s commands", d.Interface)

	return d.be.init()
}

func (d *Device) Close() error {
	return d.drv.Close()
}

// Config returns the settings the device was opened with.
func (d *Device) Config() Config {
	return d.cfg
}
