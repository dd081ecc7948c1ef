// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdladm

import (
	"encoding/binary"
	"fmt"

	"github.com/open-source-firmware/go-cdl/pkg/cdl"
	"github.com/open-source-firmware/go-cdl/pkg/drive"
	"github.com/open-source-firmware/go-cdl/pkg/drive/sgio"
)

type sentCDB struct {
	cdb  []byte
	data []byte
}

// fakeDrive emulates the commands the dispatch layer issues. Mode pages
// and ATA logs written to it are returned by later reads.
type fakeDrive struct {
	id       drive.Identity
	capacity uint64
	// opcodes maps opcode<<16|service action to the first two bytes of
	// the one command REPORT SUPPORTED OPERATION CODES response.
	opcodes   map[uint32][2]byte
	modePages map[uint8][]byte
	logs      map[uint16][]byte
	sent      []sentCDB
	closed    bool
}

func newFakeDrive() *fakeDrive {
	return &fakeDrive{
		id:        drive.Identity{Protocol: "SCSI", Vendor: "WDC", Model: "WUH722222AL5204", Firmware: "C240", SerialNumber: "2TGW9K6D"},
		capacity:  22000969973760,
		opcodes:   map[uint32][2]byte{},
		modePages: map[uint8][]byte{},
		logs:      map[uint16][]byte{},
	}
}

func logKey(log uint8, page uint16) uint16 {
	return uint16(log)<<8 | page
}

func (f *fakeDrive) reply(buf *[]byte, data []byte) {
	*buf = (*buf)[:copy(*buf, data)]
}

func (f *fakeDrive) SendCDB(cdb []byte, dir sgio.CDBDirection, buf *[]byte) error {
	sc := sentCDB{cdb: append([]byte{}, cdb...)}
	if dir == sgio.CDBToDevice {
		sc.data = append([]byte{}, *buf...)
	}
	f.sent = append(f.sent, sc)

	illegal := sgio.SenseError{Key: sgio.SENSE_ILLEGAL_REQUEST, ASC: 0x24}
	switch cdb[0] {
	case sgio.SCSI_MAINTENANCE_IN:
		key := uint32(cdb[3])<<16 | uint32(binary.BigEndian.Uint16(cdb[4:6]))
		r := make([]byte, 12)
		if h, ok := f.opcodes[key]; ok {
			r[0], r[1] = h[0], h[1]
		} else {
			r[1] = 0x01 // not supported
		}
		f.reply(buf, r)
	case sgio.SCSI_SERVICE_ACTION_IN_16:
		r := make([]byte, 32)
		binary.BigEndian.PutUint64(r[0:], f.capacity/512-1)
		binary.BigEndian.PutUint32(r[8:], 512)
		f.reply(buf, r)
	case sgio.SCSI_MODE_SENSE_10:
		p, ok := f.modePages[cdb[3]]
		if cdb[2] != 0x0a || !ok {
			return illegal
		}
		f.reply(buf, p)
	case sgio.SCSI_MODE_SELECT_10:
		p := append([]byte{}, *buf...)
		binary.BigEndian.PutUint16(p[0:2], uint16(len(p)-2))
		f.modePages[p[cdl.ModeHeaderLen+1]] = p
	case sgio.SCSI_ATA_PASSTHRU_16:
		key := logKey(cdb[8], binary.BigEndian.Uint16(cdb[9:11]))
		switch cdb[14] {
		case sgio.ATA_READ_LOG_DMA_EXT:
			l, ok := f.logs[key]
			if !ok {
				return illegal
			}
			f.reply(buf, l)
		case sgio.ATA_WRITE_LOG_DMA_EXT:
			f.logs[key] = append([]byte{}, *buf...)
		default:
			return fmt.Errorf("unexpected ATA command 0x%02x", cdb[14])
		}
	default:
		return illegal
	}
	return nil
}

func (f *fakeDrive) Identify() (*drive.Identity, error) {
	id := f.id
	return &id, nil
}

func (f *fakeDrive) Close() error {
	f.closed = true
	return nil
}

// sentWith returns the commands issued with the given opcode.
func (f *fakeDrive) sentWith(opcode uint8) []sentCDB {
	var out []sentCDB
	for _, s := range f.sent {
		if s.cdb[0] == opcode {
			out = append(out, s)
		}
	}
	return out
}

// modeSenseT2 returns a MODE SENSE(10) response for an empty T2 page.
func modeSenseT2(kind cdl.PageKind) []byte {
	b := make([]byte, cdl.ModeSenseLen(kind))
	binary.BigEndian.PutUint16(b[0:2], uint16(len(b)-2))
	pg := b[cdl.ModeHeaderLen:]
	pg[0] = 0x40 | cdl.ModePageControl // SPF
	pg[1] = kind.Subpage()
	binary.BigEndian.PutUint16(pg[2:4], 0xe4)
	return b
}

func scsiT2Drive() *fakeDrive {
	f := newFakeDrive()
	f.opcodes[0x88<<16] = [2]byte{0x01, 0x0b}      // READ_16: RWCDLP, CDLP 01b
	f.opcodes[0x8a<<16] = [2]byte{0x01, 0x13}      // WRITE_16: RWCDLP, CDLP 10b
	f.opcodes[0x7f<<16|0x09] = [2]byte{0x00, 0x03} // READ_32: no CDL
	f.modePages[cdl.PageT2A.Subpage()] = modeSenseT2(cdl.PageT2A)
	f.modePages[cdl.PageT2B.Subpage()] = modeSenseT2(cdl.PageT2B)
	return f
}

func libataDrive() *fakeDrive {
	f := newFakeDrive()
	f.id.Protocol = "SATA"
	f.id.SAT = &sgio.SATInformation{Vendor: "linux", Product: "libata", Revision: "3.00"}

	caps := make([]byte, 512)
	binary.LittleEndian.PutUint64(caps[168:], 1<<63|0x3)
	binary.LittleEndian.PutUint64(caps[176:], 1<<63|10)      // 10 us
	binary.LittleEndian.PutUint64(caps[184:], 1<<63|1000000) // 1 s
	f.logs[logKey(0x30, 3)] = caps

	cur := make([]byte, 512)
	binary.LittleEndian.PutUint64(cur[8:], 1<<63|1<<21)
	f.logs[logKey(0x30, 4)] = cur

	l := make([]byte, cdl.ATALogSize)
	l[0] = 0x02
	// T2A descriptor 1: max active time 30 ms, abort
	binary.LittleEndian.PutUint32(l[64:], 0xf<<4)
	binary.LittleEndian.PutUint32(l[64+4:], 30000)
	// T2B descriptor 1: duration guideline 50 ms, continue-next-limit
	binary.LittleEndian.PutUint32(l[288:], 0x1)
	binary.LittleEndian.PutUint32(l[288+16:], 50000)
	f.logs[logKey(cdl.ATALogCDL, 0)] = l
	return f
}
