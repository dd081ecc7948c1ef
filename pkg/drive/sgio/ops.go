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
	"encoding/binary"
	"fmt"
	"strings"
)

const (
	ATA_PASSTHROUGH       = 0xa1
	ATA_IDENTIFY_DEVICE   = 0xec
	ATA_READ_LOG_DMA_EXT  = 0x47
	ATA_WRITE_LOG_DMA_EXT = 0x57

	SCSI_INQUIRY              = 0x12
	SCSI_MODE_SELECT_10       = 0x55
	SCSI_MODE_SENSE_10        = 0x5a
	SCSI_ATA_PASSTHRU_16      = 0x85
	SCSI_SERVICE_ACTION_IN_16 = 0x9e
	SCSI_MAINTENANCE_IN       = 0xa3

	SAI_READ_CAPACITY_16                = 0x10
	MI_REPORT_SUPPORTED_OPERATION_CODES = 0x0c

	PIO_DATA_IN  = 4
	PIO_DATA_OUT = 5
	DMA          = 6

	ATA_LOG_SECTOR_SIZE = 512

	VPD_SUPPORTED_PAGES = 0x00
	VPD_UNIT_SERIAL     = 0x80
	VPD_ATA_INFORMATION = 0x89
)

// Sender issues a single CDB, the way SendCDB does on an SG file
// descriptor.
type Sender interface {
	SendCDB(cdb []byte, dir CDBDirection, buf *[]byte) error
}

// SCSI INQUIRY response
type InquiryResponse struct {
	Peripheral   byte // peripheral qualifier, device type
	_            byte
	Version      byte
	_            [5]byte
	VendorIdent  [8]byte
	ProductIdent [16]byte
	ProductRev   [4]byte
}

func (inq InquiryResponse) String() string {
	return fmt.Sprintf("Type=0x%x, Vendor=%s, Product=%s, Revision=%s",
		inq.Peripheral,
		strings.TrimSpace(string(inq.VendorIdent[:])),
		strings.TrimSpace(string(inq.ProductIdent[:])),
		strings.TrimSpace(string(inq.ProductRev[:])))
}

// ATA IDENTFY DEVICE response
type IdentifyDeviceResponse struct {
	_        [20]byte
	Serial   [20]byte
	_        [6]byte
	Firmware [8]byte
	Model    [40]byte
	_        [418]byte
}

func ATAString(b []byte) string {
	out := make([]byte, len(b))
	for i := 0; i < len(b)/2; i++ {
		out[i*2] = b[i*2+1]
		out[i*2+1] = b[i*2]
	}
	return string(out)
}

func (id IdentifyDeviceResponse) String() string {
	return fmt.Sprintf("Serial=%s, Firmware=%s, Model=%s",
		strings.TrimSpace(ATAString(id.Serial[:])),
		strings.TrimSpace(ATAString(id.Firmware[:])),
		strings.TrimSpace(ATAString(id.Model[:])))
}

// SATInformation is the SCSI to ATA Translation layer identification of
// the ATA Information VPD page.
type SATInformation struct {
	Vendor   string
	Product  string
	Revision string
}

// IsLibata reports whether the translation is done by the Linux kernel.
func (s *SATInformation) IsLibata() bool {
	return s.Vendor == "linux" && s.Product == "libata"
}

// INQUIRY - Returns parsed inquiry data.
func SCSIInquiry(s Sender) (InquiryResponse, error) {
	var resp InquiryResponse

	respBuf := make([]byte, 64)

	cdb := CDB6{SCSI_INQUIRY}
	binary.BigEndian.PutUint16(cdb[3:], uint16(len(respBuf)))

	if err := s.SendCDB(cdb[:], CDBFromDevice, &respBuf); err != nil {
		return resp, err
	}
	if len(respBuf) < 36 {
		return resp, fmt.Errorf("short INQUIRY response (%d B)", len(respBuf))
	}

	binary.Read(bytes.NewBuffer(respBuf), nativeEndian, &resp)

	return resp, nil
}

// INQUIRY with EVPD - Returns the raw VPD page.
func SCSIVPDInquiry(s Sender, page uint8, length uint16) ([]byte, error) {
	respBuf := make([]byte, length)

	cdb := CDB6{SCSI_INQUIRY}
	cdb[1] = 0x01 // EVPD
	cdb[2] = page
	binary.BigEndian.PutUint16(cdb[3:], length)

	if err := s.SendCDB(cdb[:], CDBFromDevice, &respBuf); err != nil {
		return nil, err
	}
	if len(respBuf) < 4 || respBuf[1] != page {
		return nil, fmt.Errorf("invalid page code for VPD page 0x%02x", page)
	}
	return respBuf, nil
}

// SCSIVPDPageSupported checks the supported VPD pages list for page.
func SCSIVPDPageSupported(s Sender, page uint8) (bool, error) {
	buf, err := SCSIVPDInquiry(s, VPD_SUPPORTED_PAGES, 255)
	if err != nil {
		return false, err
	}
	n := int(binary.BigEndian.Uint16(buf[2:])) + 4
	if n > len(buf) {
		n = len(buf)
	}
	return bytes.IndexByte(buf[4:n], page) >= 0, nil
}

// SCSIUnitSerialNumber returns the unit serial number VPD page contents.
func SCSIUnitSerialNumber(s Sender) (string, error) {
	buf, err := SCSIVPDInquiry(s, VPD_UNIT_SERIAL, 255)
	if err != nil {
		return "", err
	}
	n := int(binary.BigEndian.Uint16(buf[2:])) + 4
	if n > len(buf) {
		n = len(buf)
	}
	return strings.TrimSpace(string(buf[4:n])), nil
}

// SCSIATAInformation returns the SAT identification, or nil if the device
// has no ATA Information VPD page.
func SCSIATAInformation(s Sender) (*SATInformation, error) {
	ok, err := SCSIVPDPageSupported(s, VPD_ATA_INFORMATION)
	if err != nil || !ok {
		return nil, err
	}
	buf, err := SCSIVPDInquiry(s, VPD_ATA_INFORMATION, 0x238)
	if err != nil {
		return nil, err
	}
	if len(buf) < 36 {
		return nil, fmt.Errorf("short ATA information VPD page (%d B)", len(buf))
	}
	return &SATInformation{
		Vendor:   strings.TrimSpace(string(buf[8:16])),
		Product:  strings.TrimSpace(string(buf[16:32])),
		Revision: strings.TrimSpace(string(buf[32:36])),
	}, nil
}

// ATA Passthrough via SCSI (which is what Linux uses for all ATA these days)
func ATAIdentify(s Sender) (IdentifyDeviceResponse, error) {
	var resp IdentifyDeviceResponse

	respBuf := make([]byte, 512)

	cdb := CDB12{ATA_PASSTHROUGH}
	cdb[1] = PIO_DATA_IN << 1
	cdb[2] = 0x0E
	cdb[4] = 1
	cdb[9] = ATA_IDENTIFY_DEVICE

	if err := s.SendCDB(cdb[:], CDBFromDevice, &respBuf); err != nil {
		return resp, err
	}

	binary.Read(bytes.NewBuffer(respBuf), nativeEndian, &resp)

	return resp, nil
}

// SCSI MODE SENSE(10) with DBD set - Returns the raw response
func SCSIModeSense10(s Sender, pageNum, subPageNum uint8, alloc uint16) ([]byte, error) {
	respBuf := make([]byte, alloc)

	cdb := CDB10{SCSI_MODE_SENSE_10}
	cdb[1] = 0x08 // DBD
	cdb[2] = pageNum & 0x3f
	cdb[3] = subPageNum
	binary.BigEndian.PutUint16(cdb[7:], alloc)

	if err := s.SendCDB(cdb[:], CDBFromDevice, &respBuf); err != nil {
		return nil, err
	}
	return respBuf, nil
}

// SCSI MODE SELECT(10) with PF set. SP is set when save is true.
func SCSIModeSelect10(s Sender, params []byte, save bool) error {
	cdb := CDB10{SCSI_MODE_SELECT_10}
	cdb[1] = 0x10 // PF
	if save {
		cdb[1] |= 0x01
	}
	binary.BigEndian.PutUint16(cdb[7:], uint16(len(params)))

	return s.SendCDB(cdb[:], CDBToDevice, &params)
}

// SCSI READ CAPACITY(16) - Returns the capacity in bytes
func SCSIReadCapacity16(s Sender) (uint64, error) {
	respBuf := make([]byte, 32)
	cdb := CDB16{SCSI_SERVICE_ACTION_IN_16}
	cdb[1] = SAI_READ_CAPACITY_16
	binary.BigEndian.PutUint32(cdb[10:], uint32(len(respBuf)))

	if err := s.SendCDB(cdb[:], CDBFromDevice, &respBuf); err != nil {
		return 0, err
	}
	if len(respBuf) < 12 {
		return 0, fmt.Errorf("short READ CAPACITY response (%d B)", len(respBuf))
	}

	lastLBA := binary.BigEndian.Uint64(respBuf[0:]) // max. addressable LBA
	LBsize := binary.BigEndian.Uint32(respBuf[8:])  // logical block (i.e., sector) size
	capacity := (lastLBA + 1) * uint64(LBsize)

	return capacity, nil
}

// REPORT SUPPORTED OPERATION CODES for a single command, reporting option
// 3 (opcode and service action). Returns the raw one-command descriptor.
func SCSIReportSupportedOpcode(s Sender, opcode uint8, sa uint16) ([]byte, error) {
	respBuf := make([]byte, 512)

	cdb := CDB12{SCSI_MAINTENANCE_IN}
	cdb[1] = MI_REPORT_SUPPORTED_OPERATION_CODES
	cdb[2] = 0x03
	cdb[3] = opcode
	binary.BigEndian.PutUint16(cdb[4:], sa)
	binary.BigEndian.PutUint32(cdb[6:], uint32(len(respBuf)))

	if err := s.SendCDB(cdb[:], CDBFromDevice, &respBuf); err != nil {
		return nil, err
	}
	if len(respBuf) < 2 {
		return nil, fmt.Errorf("short REPORT SUPPORTED OPERATION CODES response (%d B)", len(respBuf))
	}
	return respBuf, nil
}

func ataLogCDB(cmd, log uint8, page uint16, count int) CDB16 {
	cdb := CDB16{SCSI_ATA_PASSTHRU_16}
	cdb[1] = DMA<<1 | 0x01 // ext
	binary.BigEndian.PutUint16(cdb[5:], uint16(count))
	cdb[8] = log
	binary.BigEndian.PutUint16(cdb[9:], page)
	cdb[14] = cmd
	return cdb
}

// ATA READ LOG DMA EXT through ATA PASS-THROUGH(16)
func ATAReadLog(s Sender, log uint8, page uint16, size int) ([]byte, error) {
	if size <= 0 || size%ATA_LOG_SECTOR_SIZE > 0 {
		return nil, fmt.Errorf("ATAReadLog only supports 512-byte aligned buffers")
	}
	respBuf := make([]byte, size)

	cdb := ataLogCDB(ATA_READ_LOG_DMA_EXT, log, page, size/ATA_LOG_SECTOR_SIZE)
	cdb[2] = 0x0e // t_dir in, byt_blk, t_length in count

	if err := s.SendCDB(cdb[:], CDBFromDevice, &respBuf); err != nil {
		return nil, err
	}
	if len(respBuf) != size {
		return nil, fmt.Errorf("short read of log 0x%02x page %d (%d B)", log, page, len(respBuf))
	}
	return respBuf, nil
}

// ATA WRITE LOG DMA EXT through ATA PASS-THROUGH(16)
func ATAWriteLog(s Sender, log uint8, page uint16, data []byte) error {
	if len(data) == 0 || len(data)%ATA_LOG_SECTOR_SIZE > 0 {
		return fmt.Errorf("ATAWriteLog only supports 512-byte aligned buffers")
	}

	cdb := ataLogCDB(ATA_WRITE_LOG_DMA_EXT, log, page, len(data)/ATA_LOG_SECTOR_SIZE)
	cdb[2] = 0x06 // t_dir out, byt_blk, t_length in count

	return s.SendCDB(cdb[:], CDBToDevice, &data)
}
