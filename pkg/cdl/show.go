// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdl

import (
	"fmt"
	"io"
)

type ShowOptions struct {
	// Raw prints field values as found in the page instead of times.
	Raw bool
}

// ActiveDescriptors returns the number of descriptors of p that define at
// least one limit.
func ActiveDescriptors(p *Page) int {
	n := 0
	for _, d := range p.Descriptors {
		if p.Kind.IsT2() {
			if d.Unit == 0 {
				continue
			}
			if d.MaxInactiveTime != 0 || d.MaxActiveTime != 0 || d.Duration != 0 {
				n++
			}
		} else if d.Duration != 0 {
			n++
		}
	}
	return n
}

// WriteShow prints a human readable dump of the page descriptors.
func WriteShow(w io.Writer, p *Page, opts ShowOptions) error {
	ew := &errWriter{w: w}
	if p.Kind.IsT2() {
		showT2(ew, p, opts)
	} else {
		showSimple(ew, p, opts)
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, a ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, a...)
}

func showSimple(w *errWriter, p *Page, opts ShowOptions) {
	for i, d := range p.Descriptors {
		w.printf("  Descriptor %d:\n", i+1)
		switch {
		case opts.Raw:
			w.printf("    duration guideline: 0x%04x\n", d.Duration)
		case d.Duration != 0 && d.Unit != 0:
			w.printf("    duration guideline: %s\n",
				FormatDuration(p.Nanoseconds(i, LimitDuration)))
		default:
			w.printf("    duration guideline: no limit\n")
		}
	}
}

var t2Labels = map[Limit][2]string{
	LimitMaxInactive: {"max inactive time        ", "max inactive policy      "},
	LimitMaxActive:   {"max active time          ", "max active policy        "},
	LimitDuration:    {"duration guideline       ", "duration guideline policy"},
}

func showT2(w *errWriter, p *Page, opts ShowOptions) {
	if p.Kind == PageT2A {
		if opts.Raw {
			w.printf("  perf_vs_duration_guideline : 0x%x\n", p.PerfVsDurationGuideline)
		} else {
			w.printf("  perf_vs_duration_guideline : %s%%\n",
				PerfVsDurationGuidelinePercent(p.PerfVsDurationGuideline))
		}
	}

	for i, d := range p.Descriptors {
		w.printf("  Descriptor %d:\n", i+1)
		if opts.Raw {
			w.printf("    T2 CDL units             : 0x%x\n", d.Unit)
		}
		for _, l := range p.Limits() {
			lbl := t2Labels[l]
			switch {
			case opts.Raw:
				w.printf("    %s: 0x%04x\n", lbl[0], d.Time(l))
				w.printf("    %s: 0x%x\n", lbl[1], uint8(d.Policy(l)))
			case d.Time(l) != 0 && d.Unit != 0:
				w.printf("    %s: %s\n", lbl[0], FormatDuration(p.Nanoseconds(i, l)))
				w.printf("    %s: %s\n", lbl[1], d.Policy(l))
			default:
				w.printf("    %s: no limit\n", lbl[0])
			}
		}
	}
}
