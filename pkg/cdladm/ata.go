// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdladm

import (
	"encoding/binary"
	"fmt"

	"github.com/open-source-firmware/go-cdl/pkg/cdl"
	"github.com/open-source-firmware/go-cdl/pkg/drive/sgio"
)

const (
	ataLogIdentifyData   = 0x30
	ataPageSupportedCaps = 0x03
	ataPageCurrentSet    = 0x04

	qwordValid = 1 << 63
)

// ataBackend accesses both T2 pages through the CDL log, bypassing the
// SCSI to ATA translation.
type ataBackend struct {
	d *Device
	// log is the last CDL log read from or written to the device. T2A and
	// T2B share it, so encoding one page keeps the other intact.
	log []byte
}

func qword(buf []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(buf[off : off+8])
}

func (b *ataBackend) init() error {
	d := b.d
	buf, err := sgio.ATAReadLog(d.drv, ataLogIdentifyData, ataPageSupportedCaps, sgio.ATA_LOG_SECTOR_SIZE)
	if err != nil {
		return fmt.Errorf("read supported capabilities log page: %w", err)
	}

	if q := qword(buf, 168); q&qwordValid != 0 {
		d.Features.Supported = q&(1<<0) != 0
		d.Features.GuidelineSupported = q&(1<<1) != 0
		d.Features.HighPriSupported = q&(1<<2) != 0
	}
	if !d.Features.Supported {
		return nil
	}

	if q := qword(buf, 176); q&qwordValid != 0 {
		d.Limits.MinLimit = (q & 0xffffffff) * 1000
	}
	if q := qword(buf, 184); q&qwordValid != 0 {
		d.Limits.MaxLimit = (q & 0xffffffff) * 1000
	}

	d.commandPages[cdl.CmdRead16] = cdl.PageT2A
	d.commandPages[cdl.CmdWrite16] = cdl.PageT2B
	d.commandPages[cdl.CmdRead32] = cdl.PageNone
	d.commandPages[cdl.CmdWrite32] = cdl.PageNone

	buf, err = sgio.ATAReadLog(d.drv, ataLogIdentifyData, ataPageCurrentSet, sgio.ATA_LOG_SECTOR_SIZE)
	if err != nil {
		return fmt.Errorf("read current settings log page: %w", err)
	}
	q := qword(buf, 8)
	d.Features.Enabled = q&(1<<21) != 0
	d.Features.HighPriEnabled = q&(1<<22) != 0
	return nil
}

func (b *ataBackend) readLog() error {
	buf, err := sgio.ATAReadLog(b.d.drv, cdl.ATALogCDL, 0, cdl.ATALogSize)
	if err != nil {
		return fmt.Errorf("read command duration limits log page: %w", err)
	}
	b.log = buf
	return nil
}

func (b *ataBackend) readPage(kind cdl.PageKind) (*cdl.Page, error) {
	if err := b.readLog(); err != nil {
		return nil, err
	}
	return cdl.DecodeATAPage(kind, b.log)
}

func (b *ataBackend) writePage(p *cdl.Page) error {
	if b.log == nil {
		if err := b.readLog(); err != nil {
			return err
		}
	}
	buf, err := cdl.EncodeATAPage(p, b.log)
	if err != nil {
		return err
	}
	if err := sgio.ATAWriteLog(b.d.drv, cdl.ATALogCDL, 0, buf); err != nil {
		return fmt.Errorf("write command duration limits log page: %w", err)
	}
	b.log = buf
	return nil
}

// revalidate rescans the SCSI host as well, since a device rescan does not
// make libata revalidate the drive.
func (b *ataBackend) revalidate() {
	if err := b.d.sys.ScanHost(b.d.Name); err != nil {
		b.d.log.Errorf("Revalidate host failed: %v", err)
	}
	if err := b.d.sys.Rescan(b.d.Name); err != nil {
		b.d.log.Errorf("Revalidate device failed: %v", err)
	}
}
