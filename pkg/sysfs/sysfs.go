// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sysfs reads and writes the block device attributes the kernel
// exposes for command duration limits.
package sysfs

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// ErrNoScsiDevice is returned when a block device has no SCSI device entry
// to derive its host from.
var ErrNoScsiDevice = errors.New("no scsi_device entry")

// Attrs accesses sysfs attributes through an afero.Fs so that a memory
// backed tree can stand in for /sys.
type Attrs struct {
	fs afero.Fs
}

func New(fs afero.Fs) *Attrs {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Attrs{fs: fs}
}

// Exists reports whether the attribute named by format and args exists.
func (a *Attrs) Exists(format string, args ...interface{}) bool {
	ok, err := afero.Exists(a.fs, fmt.Sprintf(format, args...))
	return err == nil && ok
}

// ULong reads an unsigned decimal attribute.
func (a *Attrs) ULong(format string, args ...interface{}) (uint64, error) {
	p := fmt.Sprintf(format, args...)
	b, err := afero.ReadFile(a.fs, p)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", p, err)
	}
	return v, nil
}

// Set writes val to an existing attribute.
func (a *Attrs) Set(val string, format string, args ...interface{}) error {
	p := fmt.Sprintf(format, args...)
	f, err := a.fs.OpenFile(p, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(val); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %v", p, err)
	}
	return f.Close()
}

// CommandTimeout returns the block layer command timeout of dev in
// nanoseconds.
func (a *Attrs) CommandTimeout(dev string) (uint64, error) {
	s, err := a.ULong("/sys/block/%s/device/timeout", dev)
	if err != nil {
		return 0, err
	}
	return s * 1000000000, nil
}

// CDLSupported reports whether the kernel supports duration limits for dev.
func (a *Attrs) CDLSupported(dev string) bool {
	return a.Exists("/sys/block/%s/device/duration_limits", dev)
}

// CDLEnabled reports whether duration limits are enabled for dev.
func (a *Attrs) CDLEnabled(dev string) (bool, error) {
	v, err := a.ULong("/sys/block/%s/device/duration_limits/enable", dev)
	return v != 0, err
}

// Rescan asks the kernel to revalidate dev.
func (a *Attrs) Rescan(dev string) error {
	return a.Set("1", "/sys/block/%s/device/rescan", dev)
}

// Host returns the SCSI host number of dev, taken from the first entry of
// its scsi_device directory ("H:C:T:L").
func (a *Attrs) Host(dev string) (string, error) {
	dir := path.Join("/sys/block", dev, "device/scsi_device")
	names, err := afero.ReadDir(a.fs, dir)
	if err != nil {
		return "", err
	}
	for _, fi := range names {
		if strings.HasPrefix(fi.Name(), ".") {
			continue
		}
		host, _, ok := strings.Cut(fi.Name(), ":")
		if !ok {
			return "", fmt.Errorf("%s: unexpected entry %q", dir, fi.Name())
		}
		return host, nil
	}
	return "", fmt.Errorf("%s: %w", dir, ErrNoScsiDevice)
}

// ScanHost rescans every target of the SCSI host of dev.
func (a *Attrs) ScanHost(dev string) error {
	host, err := a.Host(dev)
	if err != nil {
		return err
	}
	return a.Set("- - -", "/sys/class/scsi_host/host%s/scan", host)
}
