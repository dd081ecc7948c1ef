// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdladm

import (
	"fmt"

	"github.com/open-source-firmware/go-cdl/pkg/cdl"
	"github.com/open-source-firmware/go-cdl/pkg/drive/sgio"
)

const (
	controlModePage = 0x0a
	modeSenseAlloc  = 512

	scsiMinLimit = 500
	scsiMaxLimit = 65535 * 500000000
)

// scsiBackend accesses CDL pages as sub-pages of the control mode page.
type scsiBackend struct {
	d *Device
}

// commandPage asks the device which page holds the limits of c, using the
// one command format of REPORT SUPPORTED OPERATION CODES.
func (b *scsiBackend) commandPage(c cdl.Command) cdl.PageKind {
	buf, err := sgio.SCSIReportSupportedOpcode(b.d.drv, c.Opcode(), c.ServiceAction())
	if err != nil {
		b.d.log.Debugf("REPORT SUPPORTED OPERATION CODES %s: %v", c, err)
		return cdl.PageNone
	}
	if buf[1]&0x03 != 0x03 {
		return cdl.PageNone
	}

	cdlp := (buf[1] & 0x18) >> 3
	t2 := buf[0]&0x01 != 0 // RWCDLP
	switch {
	case cdlp == 0x01 && t2:
		return cdl.PageT2A
	case cdlp == 0x02 && t2:
		return cdl.PageT2B
	case cdlp == 0x01:
		return cdl.PageA
	case cdlp == 0x02:
		return cdl.PageB
	}
	return cdl.PageNone
}

func (b *scsiBackend) init() error {
	d := b.d
	for _, c := range cdl.Commands() {
		k := b.commandPage(c)
		d.commandPages[c] = k
		if k == cdl.PageNone {
			continue
		}
		d.Features.Supported = true
		if k.IsT2() {
			d.Features.GuidelineSupported = true
		}
	}
	if !d.Features.Supported {
		return nil
	}

	d.Limits.MinLimit = scsiMinLimit
	d.Limits.MaxLimit = scsiMaxLimit

	// There is no device level enable control, the system setting applies.
	enabled, err := d.sys.CDLEnabled(d.Name)
	if err != nil {
		d.log.Debugf("duration limits enable: %v", err)
	}
	d.Features.Enabled = enabled
	return nil
}

func (b *scsiBackend) readPage(kind cdl.PageKind) (*cdl.Page, error) {
	buf, err := sgio.SCSIModeSense10(b.d.drv, controlModePage, kind.Subpage(), modeSenseAlloc)
	if err != nil {
		return nil, fmt.Errorf("MODE SENSE(10) page %s: %w", kind, err)
	}
	return cdl.DecodeSCSIPage(kind, buf)
}

func (b *scsiBackend) writePage(p *cdl.Page) error {
	save := b.d.cfg.SaveParameters
	buf, err := cdl.EncodeSCSIPage(p, cdl.EncodeOptions{Save: save})
	if err != nil {
		return err
	}
	if err := sgio.SCSIModeSelect10(b.d.drv, buf, save); err != nil {
		return fmt.Errorf("MODE SELECT(10) page %s: %w", p.Kind, err)
	}
	return nil
}

func (b *scsiBackend) revalidate() {
	if err := b.d.sys.Rescan(b.d.Name); err != nil {
		b.d.log.Errorf("Revalidate device failed: %v", err)
	}
}
