// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// ATA Command Duration Limits log (log address 18h) encoding/decoding

package cdl

import (
	"encoding/binary"
)

const (
	// ATALogCDL is the log address of the ATA CDL log.
	ATALogCDL = 0x18
	// ATALogSize is the size of the single page of the CDL log.
	ATALogSize = 512

	ataReadDescOffset  = 64
	ataWriteDescOffset = 288
	ataDescLen         = 32
)

func ataDescOffset(kind PageKind) int {
	if kind == PageT2A {
		return ataReadDescOffset
	}
	return ataWriteDescOffset
}

// DecodeATAPage decodes the T2A (read) or T2B (write) descriptors of the
// ATA CDL log. Limits are normalized to 10 ms units, so precision below
// 10 ms is lost.
func DecodeATAPage(kind PageKind, log []byte) (*Page, error) {
	if !kind.IsT2() {
		return nil, mismatch("page %s has no ATA representation", kind)
	}
	if len(log) != ATALogSize {
		return nil, mismatch("CDL log is %d B, expected %d B", len(log), ATALogSize)
	}

	p := NewPage(kind)
	if kind == PageT2A {
		p.PerfVsDurationGuideline = log[0] & 0x0f
	}
	buf := log[ataDescOffset(kind):]
	for i := range p.Descriptors {
		d := &p.Descriptors[i]
		b := buf[i*ataDescLen:]
		policy := binary.LittleEndian.Uint32(b[0:4])
		d.MaxInactivePolicy = Policy((policy >> 8) & 0x0f)
		d.MaxActivePolicy = Policy((policy >> 4) & 0x0f)
		d.DurationPolicy = Policy(policy & 0x0f)
		d.MaxActiveTime = ATAToSCSIQuantity(binary.LittleEndian.Uint32(b[4:8]))
		d.MaxInactiveTime = ATAToSCSIQuantity(binary.LittleEndian.Uint32(b[8:12]))
		d.Duration = ATAToSCSIQuantity(binary.LittleEndian.Uint32(b[16:20]))
		if d.MaxInactiveTime != 0 || d.MaxActiveTime != 0 || d.Duration != 0 {
			d.Unit = T2Unit10ms
		}
	}
	p.Context = newContext(SourceATALog, kind, log)
	return p, nil
}

// EncodeATAPage patches the descriptors of p into a copy of the CDL log
// prev. When prev is nil, the log p was decoded from is used. Only the
// half of the log that belongs to p is modified.
func EncodeATAPage(p *Page, prev []byte) ([]byte, error) {
	if !p.Kind.IsT2() {
		return nil, mismatch("page %s has no ATA representation", p.Kind)
	}
	if prev == nil {
		c := p.Context
		if c == nil || c.source != SourceATALog {
			return nil, ErrMissingContext
		}
		prev = c.raw
	}
	if len(prev) != ATALogSize {
		return nil, mismatch("CDL log is %d B, expected %d B", len(prev), ATALogSize)
	}

	out := make([]byte, ATALogSize)
	copy(out, prev)
	if p.Kind == PageT2A {
		out[0] = out[0]&0xf0 | p.PerfVsDurationGuideline&0x0f
	}
	buf := out[ataDescOffset(p.Kind):]
	for i, d := range p.Descriptors {
		b := buf[i*ataDescLen:]
		// The policy word is written whole, bits 12-31 are cleared.
		policy := uint32(d.MaxInactivePolicy&0x0f)<<8 |
			uint32(d.MaxActivePolicy&0x0f)<<4 |
			uint32(d.DurationPolicy&0x0f)
		binary.LittleEndian.PutUint32(b[0:4], policy)
		binary.LittleEndian.PutUint32(b[4:8], SCSIToATAMicroseconds(uint64(d.MaxActiveTime), d.Unit))
		binary.LittleEndian.PutUint32(b[8:12], SCSIToATAMicroseconds(uint64(d.MaxInactiveTime), d.Unit))
		binary.LittleEndian.PutUint32(b[16:20], SCSIToATAMicroseconds(uint64(d.Duration), d.Unit))
	}
	return out, nil
}
