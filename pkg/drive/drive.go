// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drive

import (
	"errors"
	"fmt"

	"github.com/open-source-firmware/go-cdl/pkg/drive/sgio"
)

var (
	ErrNotSupported       = errors.New("operation is not supported")
	ErrDeviceNotSupported = errors.New("device is not supported")
)

// Interface is the command set used to reach the CDL configuration of a
// device.
type Interface int

const (
	// InterfaceSCSI uses MODE SENSE / MODE SELECT on the control mode page.
	InterfaceSCSI Interface = iota
	// InterfaceATA uses ATA PASS-THROUGH to the CDL log.
	InterfaceATA
)

func (i Interface) String() string {
	switch i {
	case InterfaceSCSI:
		return "SCSI"
	case InterfaceATA:
		return "ATA"
	}
	return fmt.Sprintf("Interface(%d)", int(i))
}

func (i Interface) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

type Identity struct {
	Protocol     string
	Vendor       string
	Model        string
	Firmware     string
	SerialNumber string
	// SAT is set when the device sits behind a SCSI to ATA translation layer.
	SAT *sgio.SATInformation `json:",omitempty" yaml:",omitempty"`
}

func (i *Identity) String() string {
	return fmt.Sprintf("Protocol=%s, Vendor=%s, Model=%s, Serial=%s, Firmware=%s",
		i.Protocol, i.Vendor, i.Model, i.SerialNumber, i.Firmware)
}

// Interface returns the command set to use for CDL. Drives behind the
// libata translation layer, or any SAT when forceATA is set, are driven
// through ATA passthrough.
func (i *Identity) Interface(forceATA bool) Interface {
	if i.SAT == nil {
		return InterfaceSCSI
	}
	if forceATA || i.SAT.IsLibata() {
		return InterfaceATA
	}
	return InterfaceSCSI
}

type DriveIntf interface {
	Executor
	Identify
	Closer
}

// Executor issues raw CDBs. It is satisfied by every drive and by test
// fakes, and is what the sgio command builders take.
type Executor interface {
	sgio.Sender
}

type Identify interface {
	Identify() (*Identity, error)
}

type Closer interface {
	Close() error
}

// Capacity returns the capacity of the drive in bytes.
func Capacity(e Executor) (uint64, error) {
	c, err := sgio.SCSIReadCapacity16(e)
	if errors.Is(err, sgio.ErrIllegalRequest) {
		return 0, ErrNotSupported
	}
	return c, err
}
