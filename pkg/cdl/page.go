// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Implements the Command Duration Limits (CDL) page model shared by the
// SCSI mode page and ATA log page encodings.

package cdl

import (
	"fmt"
	"strings"
)

// MaxDescriptors is the fixed number of descriptors in every CDL page.
const MaxDescriptors = 7

// PageKind identifies one of the CDL sub-pages of the control mode page 0Ah.
type PageKind int

const (
	PageA PageKind = iota
	PageB
	PageT2A
	PageT2B
	PageNone
)

var pageInfo = [...]struct {
	subpage uint8
	name    string
}{
	PageA:    {0x03, "A"},
	PageB:    {0x04, "B"},
	PageT2A:  {0x07, "T2A"},
	PageT2B:  {0x08, "T2B"},
	PageNone: {0x00, "none"},
}

// PageKinds returns all loadable page kinds in subpage order.
func PageKinds() []PageKind {
	return []PageKind{PageA, PageB, PageT2A, PageT2B}
}

func (k PageKind) valid() bool {
	return k >= PageA && k < PageNone
}

func (k PageKind) String() string {
	if k < PageA || k > PageNone {
		return fmt.Sprintf("PageKind(%d)", int(k))
	}
	return pageInfo[k].name
}

// Subpage returns the mode page 0Ah subpage code of the page.
func (k PageKind) Subpage() uint8 {
	if !k.valid() {
		return 0
	}
	return pageInfo[k].subpage
}

// IsT2 reports whether the page carries three limits per descriptor.
func (k PageKind) IsT2() bool {
	return k == PageT2A || k == PageT2B
}

// Direction returns whether the page applies to read or write commands.
func (k PageKind) Direction() Direction {
	if k == PageB || k == PageT2B {
		return Write
	}
	return Read
}

// Units returns the unit table used to interpret the page time fields.
func (k PageKind) Units() UnitTable {
	if k.IsT2() {
		return T2Units
	}
	return SimpleUnits
}

func (k PageKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *PageKind) UnmarshalText(b []byte) error {
	p, err := ParsePageKind(string(b))
	if err != nil {
		return err
	}
	*k = p
	return nil
}

// ParsePageKind returns the page kind named s ("A", "B", "T2A" or "T2B").
func ParsePageKind(s string) (PageKind, error) {
	for _, k := range PageKinds() {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return PageNone, fmt.Errorf("unknown page name %q", s)
}

// PageKindFromSubpage maps a mode page 0Ah subpage code to its page kind.
func PageKindFromSubpage(subpage uint8) PageKind {
	for _, k := range PageKinds() {
		if k.Subpage() == subpage {
			return k
		}
	}
	return PageNone
}

type Direction int

const (
	Read Direction = iota
	Write
)

func (d Direction) String() string {
	if d == Write {
		return "write"
	}
	return "read"
}

// Descriptor is one of the seven limit rules of a page. A and B pages only
// use Unit and Duration. All-zero means "no limit".
type Descriptor struct {
	Unit              uint8  `json:"unit" yaml:"unit"`
	MaxInactiveTime   uint16 `json:"max_inactive_time" yaml:"max_inactive_time"`
	MaxActiveTime     uint16 `json:"max_active_time" yaml:"max_active_time"`
	Duration          uint16 `json:"duration" yaml:"duration"`
	MaxInactivePolicy Policy `json:"max_inactive_policy" yaml:"max_inactive_policy"`
	MaxActivePolicy   Policy `json:"max_active_policy" yaml:"max_active_policy"`
	DurationPolicy    Policy `json:"duration_policy" yaml:"duration_policy"`
}

// IsZero reports whether the descriptor defines no limit at all.
func (d Descriptor) IsZero() bool {
	return d == Descriptor{}
}

// Time returns the raw magnitude of the given limit.
func (d Descriptor) Time(l Limit) uint16 {
	switch l {
	case LimitMaxInactive:
		return d.MaxInactiveTime
	case LimitMaxActive:
		return d.MaxActiveTime
	default:
		return d.Duration
	}
}

// Policy returns the policy attached to the given limit.
func (d Descriptor) Policy(l Limit) Policy {
	switch l {
	case LimitMaxInactive:
		return d.MaxInactivePolicy
	case LimitMaxActive:
		return d.MaxActivePolicy
	default:
		return d.DurationPolicy
	}
}

// Page is a decoded or parsed CDL page.
type Page struct {
	Kind PageKind `json:"cdlp" yaml:"cdlp"`
	// PerfVsDurationGuideline is only meaningful for T2A pages.
	PerfVsDurationGuideline uint8                      `json:"perf_vs_duration_guideline" yaml:"perf_vs_duration_guideline"`
	Descriptors             [MaxDescriptors]Descriptor `json:"descriptors" yaml:"descriptors"`

	// Context is the device buffer this page was decoded from. It is set by
	// the decoders and consumed by the encoders only.
	Context *PageContext `json:"-" yaml:"-"`
}

// NewPage returns an empty page of the given kind.
func NewPage(kind PageKind) *Page {
	return &Page{Kind: kind}
}

// Equal compares the page contents, ignoring the codec context.
func (p *Page) Equal(o *Page) bool {
	if p == nil || o == nil {
		return p == o
	}
	return p.Kind == o.Kind &&
		p.PerfVsDurationGuideline == o.PerfVsDurationGuideline &&
		p.Descriptors == o.Descriptors
}

// Limits returns the limit kinds carried by each descriptor of the page.
func (p *Page) Limits() []Limit {
	if p.Kind.IsT2() {
		return []Limit{LimitMaxInactive, LimitMaxActive, LimitDuration}
	}
	return []Limit{LimitDuration}
}

// Nanoseconds returns the value of limit l of descriptor i (0-based).
func (p *Page) Nanoseconds(i int, l Limit) uint64 {
	d := p.Descriptors[i]
	return ToNanoseconds(uint64(d.Time(l)), d.Unit, p.Kind.Units())
}

// ContextSource tells which device structure a PageContext holds.
type ContextSource int

const (
	SourceModeSense ContextSource = iota
	SourceATALog
)

func (s ContextSource) String() string {
	if s == SourceATALog {
		return "ATA log 0x18"
	}
	return "MODE SENSE(10)"
}

// PageContext is the verbatim buffer last read from the device for a page.
// It is replaced on every decode and never modified in place.
type PageContext struct {
	source ContextSource
	kind   PageKind
	raw    []byte
}

func newContext(src ContextSource, kind PageKind, raw []byte) *PageContext {
	b := make([]byte, len(raw))
	copy(b, raw)
	return &PageContext{source: src, kind: kind, raw: b}
}

func (c *PageContext) Source() ContextSource { return c.source }
func (c *PageContext) Kind() PageKind        { return c.kind }
func (c *PageContext) Len() int              { return len(c.raw) }

// Bytes returns a copy of the retained buffer.
func (c *PageContext) Bytes() []byte {
	b := make([]byte, len(c.raw))
	copy(b, c.raw)
	return b
}
