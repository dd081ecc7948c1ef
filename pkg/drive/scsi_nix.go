// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package drive

import (
	"encoding/hex"
	"errors"
	"runtime"
	"strings"

	"github.com/open-source-firmware/go-cdl/pkg/drive/sgio"
	"github.com/sirupsen/logrus"
)

type FdIntf interface {
	Fd() uintptr
	Close() error
}

type scsiDrive struct {
	fd  FdIntf
	log logrus.FieldLogger
}

func (d *scsiDrive) SendCDB(cdb []byte, dir sgio.CDBDirection, buf *[]byte) error {
	d.log.Debugf("CDB (%s):\n%s", dir, hex.Dump(cdb))
	if dir == sgio.CDBToDevice && buf != nil {
		d.log.Debugf("data out (%d B):\n%s", len(*buf), hex.Dump(*buf))
	}

	err := sgio.SendCDB(d.fd.Fd(), cdb, dir, buf)
	runtime.KeepAlive(d.fd)
	if err != nil {
		d.log.Debugf("CDB 0x%02x failed: %v", cdb[0], err)
		return err
	}

	if dir == sgio.CDBFromDevice && buf != nil {
		d.log.Debugf("data in (%d B):\n%s", len(*buf), hex.Dump(*buf))
	}
	return nil
}

func (d *scsiDrive) Identify() (*Identity, error) {
	inq, err := sgio.SCSIInquiry(d)
	if err != nil {
		return nil, err
	}

	id := &Identity{
		Protocol: "SCSI",
		Vendor:   strings.TrimSpace(string(inq.VendorIdent[:])),
		Model:    strings.TrimSpace(string(inq.ProductIdent[:])),
		Firmware: strings.TrimSpace(string(inq.ProductRev[:])),
	}

	// Not all devices implement the unit serial number page.
	if sn, err := sgio.SCSIUnitSerialNumber(d); err == nil {
		id.SerialNumber = sn
	} else if !errors.Is(err, sgio.ErrIllegalRequest) {
		d.log.Debugf("unit serial number: %v", err)
	}

	sat, err := sgio.SCSIATAInformation(d)
	if err != nil {
		d.log.Debugf("ATA information: %v", err)
	}
	if sat == nil {
		return id, nil
	}

	// SCSI ATA Translation (SAT)
	id.SAT = sat
	id.Protocol = "SATA"
	ata, err := sgio.ATAIdentify(d)
	if err != nil {
		d.log.Debugf("ATA identify: %v", err)
		return id, nil
	}
	if m := strings.TrimSpace(sgio.ATAString(ata.Model[:])); m != "" {
		id.Model = m
	}
	id.Firmware = strings.TrimSpace(sgio.ATAString(ata.Firmware[:]))
	id.SerialNumber = strings.TrimSpace(sgio.ATAString(ata.Serial[:]))
	return id, nil
}

func (d *scsiDrive) Close() error {
	return d.fd.Close()
}

func SCSIDrive(fd FdIntf, log logrus.FieldLogger) *scsiDrive {
	// Save the full object reference to avoid the underlying File-like object
	// to be GC'd
	return &scsiDrive{fd: fd, log: log}
}

func isSCSI(d *scsiDrive) bool {
	_, err := sgio.SCSIInquiry(d)
	return err == nil
}
