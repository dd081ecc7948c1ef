// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drive

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type options struct {
	log       logrus.FieldLogger
	exclusive bool
}

type Option func(*options)

// WithLogger traces every issued command on log at debug level.
func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithExclusive selects whether the device is opened with O_EXCL, which is
// the default. Exclusive opens of a mounted disk fail with EBUSY.
func WithExclusive(excl bool) Option {
	return func(o *options) {
		o.exclusive = excl
	}
}

func (o *options) openFlags() int {
	if o.exclusive {
		return os.O_RDWR | os.O_EXCL
	}
	return os.O_RDWR
}

func newOptions(opts ...Option) options {
	o := options{exclusive: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.log = l
	}
	return o
}

func Open(device string, opts ...Option) (DriveIntf, error) {
	o := newOptions(opts...)

	fi, err := os.Stat(device)
	if err != nil {
		return nil, err
	}
	if fi.Mode()&os.ModeDevice == 0 {
		return nil, fmt.Errorf("%s: %w: not a device file", device, ErrDeviceNotSupported)
	}

	d, err := os.OpenFile(device, o.openFlags(), 0)
	if err != nil {
		return nil, err
	}

	drv := SCSIDrive(d, o.log.WithField("device", device))
	if isSCSI(drv) {
		return drv, nil
	}

	d.Close()
	return nil, ErrDeviceNotSupported
}
