// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Control mode page 0Ah CDL sub-page encoding/decoding

package cdl

import (
	"encoding/binary"
)

const (
	// ModePageControl is the page code of the CDL sub-pages.
	ModePageControl = 0x0A

	// Mode parameter header length of MODE SENSE(10) / MODE SELECT(10)
	ModeHeaderLen = 8

	subpageHeaderLen = 8

	simpleDescLen = 4
	t2DescLen     = 32

	simplePageLength = 0x0020
	t2PageLength     = 0x00E4
)

// EncodeOptions controls how a page is prepared for MODE SELECT.
type EncodeOptions struct {
	// Save keeps the PS bit so the device persists the page.
	Save bool
}

func descLen(kind PageKind) int {
	if kind.IsT2() {
		return t2DescLen
	}
	return simpleDescLen
}

// ModeSenseLen returns the minimum MODE SENSE(10) response length holding
// a complete page of the given kind.
func ModeSenseLen(kind PageKind) int {
	return ModeHeaderLen + subpageHeaderLen + MaxDescriptors*descLen(kind)
}

// DecodeSCSIPage decodes a MODE SENSE(10) response for the CDL sub-page of
// the given kind. The response is retained as the page context.
func DecodeSCSIPage(kind PageKind, raw []byte) (*Page, error) {
	if !kind.valid() {
		return nil, mismatch("cannot decode page %s", kind)
	}
	if len(raw) < ModeHeaderLen {
		return nil, mismatch("mode sense response too short (%d B)", len(raw))
	}
	if bdl := binary.BigEndian.Uint16(raw[6:8]); bdl != 0 {
		return nil, mismatch("got %d B of block descriptors", bdl)
	}
	if len(raw) < ModeSenseLen(kind) {
		return nil, mismatch("mode sense response too short for page %s (%d B)", kind, len(raw))
	}

	buf := raw[ModeHeaderLen:]
	if buf[0]&0x3f != ModePageControl || buf[1] != kind.Subpage() {
		return nil, mismatch("invalid mode page codes 0x%02x/0x%02x for page %s",
			buf[0]&0x3f, buf[1], kind)
	}

	p := NewPage(kind)
	if kind == PageT2A {
		p.PerfVsDurationGuideline = (buf[7] >> 4) & 0x0f
	}
	buf = buf[subpageHeaderLen:]
	for i := range p.Descriptors {
		d := &p.Descriptors[i]
		b := buf[i*descLen(kind):]
		if kind.IsT2() {
			d.Unit = b[0] & 0x0f
			d.MaxInactiveTime = binary.BigEndian.Uint16(b[2:4])
			d.MaxActiveTime = binary.BigEndian.Uint16(b[4:6])
			d.MaxInactivePolicy = Policy((b[6] >> 4) & 0x0f)
			d.MaxActivePolicy = Policy(b[6] & 0x0f)
			d.Duration = binary.BigEndian.Uint16(b[10:12])
			d.DurationPolicy = Policy(b[14] & 0x0f)
		} else {
			d.Unit = (b[0] & 0xe0) >> 5
			d.Duration = binary.BigEndian.Uint16(b[2:4])
		}
	}
	p.Context = newContext(SourceModeSense, kind, raw)
	return p, nil
}

// EncodeSCSIPage builds the MODE SELECT(10) parameter list for p from the
// MODE SENSE(10) response p was decoded from.
func EncodeSCSIPage(p *Page, opts EncodeOptions) ([]byte, error) {
	if !p.Kind.valid() {
		return nil, mismatch("cannot encode page %s", p.Kind)
	}
	c := p.Context
	if c == nil || c.source != SourceModeSense || c.kind != p.Kind {
		return nil, ErrMissingContext
	}
	if len(c.raw) < ModeSenseLen(p.Kind) {
		return nil, mismatch("page %s context too short (%d B)", p.Kind, len(c.raw))
	}

	out := c.Bytes()
	// The device computes the mode data length, WP and DPOFUA itself
	binary.BigEndian.PutUint16(out[0:2], 0)
	out[3] = 0

	buf := out[ModeHeaderLen:]
	if !opts.Save {
		buf[0] &= 0x7f
	}
	buf[0] = buf[0]&0xc0 | ModePageControl
	buf[1] = p.Kind.Subpage()
	if p.Kind.IsT2() {
		binary.BigEndian.PutUint16(buf[2:4], t2PageLength)
	} else {
		binary.BigEndian.PutUint16(buf[2:4], simplePageLength)
	}
	if p.Kind == PageT2A {
		buf[7] = buf[7]&0x0f | (p.PerfVsDurationGuideline&0x0f)<<4
	}

	buf = buf[subpageHeaderLen:]
	for i, d := range p.Descriptors {
		b := buf[i*descLen(p.Kind):]
		if p.Kind.IsT2() {
			b[0] = b[0]&0xf0 | d.Unit&0x0f
			binary.BigEndian.PutUint16(b[2:4], d.MaxInactiveTime)
			binary.BigEndian.PutUint16(b[4:6], d.MaxActiveTime)
			b[6] = uint8(d.MaxInactivePolicy&0x0f)<<4 | uint8(d.MaxActivePolicy&0x0f)
			binary.BigEndian.PutUint16(b[10:12], d.Duration)
			b[14] = b[14]&0xf0 | uint8(d.DurationPolicy&0x0f)
		} else {
			b[0] = b[0]&0x1f | (d.Unit&0x07)<<5
			binary.BigEndian.PutUint16(b[2:4], d.Duration)
		}
	}
	return out, nil
}
