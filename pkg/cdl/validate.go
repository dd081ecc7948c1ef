// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdl

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Limits are the device time limits a page is checked against. A zero
// field disables the corresponding check.
type Limits struct {
	MinLimit       uint64 `json:"min_limit_ns" yaml:"min_limit_ns"`
	MaxLimit       uint64 `json:"max_limit_ns" yaml:"max_limit_ns"`
	CommandTimeout uint64 `json:"command_timeout_ns" yaml:"command_timeout_ns"`
}

type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Finding is one problem reported by Validate. Descriptor is 1-based, 0
// for findings about the page itself.
type Finding struct {
	Severity   Severity
	Descriptor int
	Limit      Limit
	Value      uint64
	Message    string
}

func (f Finding) Error() string {
	return f.Message
}

func (f Finding) Unwrap() error {
	if f.Severity == SeverityError {
		return ErrValidation
	}
	return nil
}

type Findings []Finding

func (fs Findings) filter(s Severity) Findings {
	var out Findings
	for _, f := range fs {
		if f.Severity == s {
			out = append(out, f)
		}
	}
	return out
}

func (fs Findings) Errors() Findings   { return fs.filter(SeverityError) }
func (fs Findings) Warnings() Findings { return fs.filter(SeverityWarning) }

func (fs Findings) HasErrors() bool {
	return len(fs.Errors()) > 0
}

// Err combines the error findings into a single error matching
// ErrValidation, or returns nil when there are none.
func (fs Findings) Err() error {
	var err *multierror.Error
	for _, f := range fs.Errors() {
		err = multierror.Append(err, f)
	}
	return err.ErrorOrNil()
}

// Validate checks every non-zero time limit of p against lim. The page is
// not modified.
func Validate(p *Page, lim Limits) Findings {
	var fs Findings

	if p.Kind == PageT2A && p.PerfVsDurationGuideline == 0 {
		fs = append(fs, Finding{
			Severity: SeverityWarning,
			Message:  "perf-vs-duration-guideline is zero: duration limits will have no effect",
		})
	}
	if p.PerfVsDurationGuideline > MaxPerfVsDurationGuideline {
		fs = append(fs, Finding{
			Severity: SeverityError,
			Value:    uint64(p.PerfVsDurationGuideline),
			Message: fmt.Sprintf("invalid perf-vs-duration-guideline 0x%x",
				p.PerfVsDurationGuideline),
		})
	}

	for i, d := range p.Descriptors {
		n := i + 1
		for _, l := range p.Limits() {
			pol := d.Policy(l)
			if p.Kind.IsT2() && !l.ValidPolicy(pol) {
				fs = append(fs, Finding{
					Severity:   SeverityError,
					Descriptor: n,
					Limit:      l,
					Value:      uint64(pol),
					Message:    fmt.Sprintf("descriptor %d: invalid %s policy 0x%x", n, l, uint8(pol)),
				})
			}

			if d.Time(l) == 0 {
				continue
			}
			t := p.Nanoseconds(i, l)
			if t == 0 {
				fs = append(fs, Finding{
					Severity:   SeverityWarning,
					Descriptor: n,
					Limit:      l,
					Message:    fmt.Sprintf("descriptor %d: %s has no valid unit: no limit", n, l),
				})
				continue
			}
			if pol != PolicyCompleteEarliest && lim.MaxLimit > 0 && t > lim.MaxLimit {
				fs = append(fs, Finding{
					Severity:   SeverityError,
					Descriptor: n,
					Limit:      l,
					Value:      t,
					Message:    fmt.Sprintf("descriptor %d: %s is greater than the device maximum time limit", n, l),
				})
			}
			if t < lim.MinLimit {
				fs = append(fs, Finding{
					Severity:   SeverityWarning,
					Descriptor: n,
					Limit:      l,
					Value:      t,
					Message:    fmt.Sprintf("descriptor %d: %s is less than the device minimum time limit", n, l),
				})
			}
			if lim.CommandTimeout > 0 && t > lim.CommandTimeout {
				fs = append(fs, Finding{
					Severity:   SeverityWarning,
					Descriptor: n,
					Limit:      l,
					Value:      t,
					Message:    fmt.Sprintf("descriptor %d: %s is greater than the device command timeout", n, l),
				})
			}
		}
	}
	return fs
}
