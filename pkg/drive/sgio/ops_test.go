// Copyright 2017-18 Daniel Swarbrick. All rights reserved.
// Copyright 2021 Christian Svensson. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sgio

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

type recordedCmd struct {
	cdb []byte
	dir CDBDirection
	buf []byte
}

// fakeSender records every CDB and answers with canned responses.
type fakeSender struct {
	cmds []recordedCmd
	resp [][]byte
	err  error
}

func (f *fakeSender) SendCDB(cdb []byte, dir CDBDirection, buf *[]byte) error {
	f.cmds = append(f.cmds, recordedCmd{
		cdb: append([]byte{}, cdb...),
		dir: dir,
		buf: append([]byte{}, *buf...),
	})
	if f.err != nil {
		return f.err
	}
	if len(f.resp) > 0 {
		r := f.resp[0]
		f.resp = f.resp[1:]
		n := copy(*buf, r)
		*buf = (*buf)[:n]
	}
	return nil
}

func mustHex(s string) []byte {
	b, err := hex.DecodeString(strings.ReplaceAll(s, " ", ""))
	if err != nil {
		panic(err)
	}
	return b
}

func TestCDBs(t *testing.T) {
	testCases := []struct {
		name string
		run  func(s Sender) error
		cdb  string
		dir  CDBDirection
	}{
		{"Mode sense T2A", func(s Sender) error {
			_, err := SCSIModeSense10(s, 0x0a, 0x07, 512)
			return err
		}, "5a 08 0a 07 00 00 00 02 00 00", CDBFromDevice},
		{"Mode select", func(s Sender) error {
			return SCSIModeSelect10(s, make([]byte, 44), false)
		}, "55 10 00 00 00 00 00 00 2c 00", CDBToDevice},
		{"Mode select save", func(s Sender) error {
			return SCSIModeSelect10(s, make([]byte, 240), true)
		}, "55 11 00 00 00 00 00 00 f0 00", CDBToDevice},
		{"Report opcode READ_32", func(s Sender) error {
			_, err := SCSIReportSupportedOpcode(s, 0x7f, 0x0009)
			return err
		}, "a3 0c 03 7f 00 09 00 00 02 00 00 00", CDBFromDevice},
		{"Read CDL log", func(s Sender) error {
			_, err := ATAReadLog(s, 0x18, 0, 512)
			return err
		}, "85 0d 0e 00 00 00 01 00 18 00 00 00 00 00 47 00", CDBFromDevice},
		{"Read capabilities log", func(s Sender) error {
			_, err := ATAReadLog(s, 0x30, 3, 512)
			return err
		}, "85 0d 0e 00 00 00 01 00 30 00 03 00 00 00 47 00", CDBFromDevice},
		{"Write CDL log", func(s Sender) error {
			return ATAWriteLog(s, 0x18, 0, make([]byte, 512))
		}, "85 0d 06 00 00 00 01 00 18 00 00 00 00 00 57 00", CDBToDevice},
		{"Read capacity", func(s Sender) error {
			_, err := SCSIReadCapacity16(s)
			return err
		}, "9e 10 00 00 00 00 00 00 00 00 00 00 00 20 00 00", CDBFromDevice},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := &fakeSender{resp: [][]byte{make([]byte, 512)}}
			if err := tc.run(s); err != nil {
				t.Fatalf("command failed: %v", err)
			}
			if len(s.cmds) != 1 {
				t.Fatalf("sent %d commands; want 1", len(s.cmds))
			}
			if want := mustHex(tc.cdb); !bytes.Equal(s.cmds[0].cdb, want) {
				t.Errorf("CDB = % x; want % x", s.cmds[0].cdb, want)
			}
			if s.cmds[0].dir != tc.dir {
				t.Errorf("direction = %v; want %v", s.cmds[0].dir, tc.dir)
			}
		})
	}
}

func TestATALogAlignment(t *testing.T) {
	s := &fakeSender{}
	if _, err := ATAReadLog(s, 0x18, 0, 100); err == nil {
		t.Error("ATAReadLog() with unaligned size succeeded")
	}
	if err := ATAWriteLog(s, 0x18, 0, nil); err == nil {
		t.Error("ATAWriteLog() without data succeeded")
	}
	if len(s.cmds) != 0 {
		t.Errorf("sent %d commands; want 0", len(s.cmds))
	}
}

func TestATAReadLogShort(t *testing.T) {
	s := &fakeSender{resp: [][]byte{make([]byte, 256)}}
	if _, err := ATAReadLog(s, 0x18, 0, 512); err == nil {
		t.Error("ATAReadLog() with short transfer succeeded")
	}
}

func TestSCSIATAInformation(t *testing.T) {
	vpd00 := mustHex("00 00 00 04 00 80 83 89")
	vpd89 := make([]byte, 0x238)
	vpd89[1] = 0x89
	copy(vpd89[8:], "linux   ")
	copy(vpd89[16:], "libata          ")
	copy(vpd89[32:], "3.00")

	s := &fakeSender{resp: [][]byte{vpd00, vpd89}}
	sat, err := SCSIATAInformation(s)
	if err != nil {
		t.Fatalf("SCSIATAInformation() failed: %v", err)
	}
	if sat == nil || !sat.IsLibata() || sat.Revision != "3.00" {
		t.Errorf("SCSIATAInformation() = %+v", sat)
	}
	if cdb := s.cmds[1].cdb; !bytes.Equal(cdb, mustHex("12 01 89 02 38 00")) {
		t.Errorf("VPD 0x89 CDB = % x", cdb)
	}

	s = &fakeSender{resp: [][]byte{mustHex("00 00 00 02 00 80")}}
	sat, err = SCSIATAInformation(s)
	if err != nil || sat != nil {
		t.Errorf("SCSIATAInformation() without VPD 0x89 = %+v, %v; want nil, nil", sat, err)
	}
	if len(s.cmds) != 1 {
		t.Errorf("sent %d commands; want 1", len(s.cmds))
	}
}

func TestSCSIInquiry(t *testing.T) {
	resp := make([]byte, 36)
	copy(resp[8:], "WDC     ")
	copy(resp[16:], "WUH722222AL5204 ")
	copy(resp[32:], "C240")
	s := &fakeSender{resp: [][]byte{resp}}

	inq, err := SCSIInquiry(s)
	if err != nil {
		t.Fatalf("SCSIInquiry() failed: %v", err)
	}
	if want := "Type=0x0, Vendor=WDC, Product=WUH722222AL5204, Revision=C240"; inq.String() != want {
		t.Errorf("SCSIInquiry() = %q; want %q", inq.String(), want)
	}

	s = &fakeSender{resp: [][]byte{make([]byte, 8)}}
	if _, err := SCSIInquiry(s); err == nil {
		t.Error("SCSIInquiry() with short response succeeded")
	}
}

func TestSendError(t *testing.T) {
	s := &fakeSender{err: SenseError{Key: SENSE_ILLEGAL_REQUEST, ASC: 0x24}}
	_, err := SCSIModeSense10(s, 0x0a, 0x03, 512)
	if !errors.Is(err, ErrIllegalRequest) {
		t.Errorf("SCSIModeSense10() error = %v; want %v", err, ErrIllegalRequest)
	}
}
