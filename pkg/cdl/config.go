// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// CDL page text file format

package cdl

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FileExt is the conventional extension of CDL page files.
const FileExt = ".cdl"

const (
	fieldCDLP      = "cdlp"
	fieldPerf      = "perf-vs-duration-guideline"
	fieldCDLUnit   = "cdlunit"
	fieldT2Units   = "t2cdlunits"
	fieldInactive  = "max-inactive-time"
	fieldInactiveP = "max-inactive-time-policy"
	fieldActive    = "max-active-time"
	fieldActiveP   = "max-active-time-policy"
	fieldDuration  = "duration-guideline"
	fieldDurationP = "duration-guideline-policy"

	descriptorPrefix = "== descriptor:"
)

const simpleLegend = `# cdlunit can be one of:
#   - none   : 0x0
#   - 1us    : 0x4
#   - 10ms   : 0x5
#   - 500ms  : 0x6
`

const perfLegend = `# perf-vs-duration-guideline can be one of:
#   - 0%    : 0x0
#   - 0.5%  : 0x1
#   - 1.0%  : 0x2
#   - 1.5%  : 0x3
#   - 2.0%  : 0x4
#   - 2.5%  : 0x5
#   - 3%    : 0x6
#   - 4%    : 0x7
#   - 5%    : 0x8
#   - 8%    : 0x9
#   - 10%   : 0xa
#   - 15%   : 0xb
#   - 20%   : 0xc
`

const t2Legend = `# t2cdlunits can be one of:
#   - none   : 0x0
#   - 500ns  : 0x6
#   - 1us    : 0x8
#   - 10ms   : 0xa
#   - 500ms  : 0xe
# max-inactive-time-policy can be one of:
#   - complete-earliest    : 0x0
#   - complete-unavailable : 0xd
#   - abort                : 0xf
# max-active-time-policy can be one of:
#   - complete-earliest    : 0x0
#   - complete-unavailable : 0xd
#   - abort-recovery       : 0xe
#   - abort                : 0xf
# duration-guideline-policy can be one of:
#   - complete-earliest    : 0x0
#   - continue-next-limit  : 0x1
#   - continue-no-limit    : 0x2
#   - complete-unavailable : 0xd
#   - abort                : 0xf
`

// SerializeConfig returns the text representation of p.
func SerializeConfig(p *Page) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s page format:\n", p.Kind)
	if p.Kind.IsT2() {
		if p.Kind == PageT2A {
			sb.WriteString(perfLegend)
		}
		sb.WriteString(t2Legend)
	} else {
		sb.WriteString(simpleLegend)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "%s: %s\n\n", fieldCDLP, p.Kind)
	if p.Kind == PageT2A {
		fmt.Fprintf(&sb, "%s: 0x%x\n\n", fieldPerf, p.PerfVsDurationGuideline)
	}

	for i, d := range p.Descriptors {
		fmt.Fprintf(&sb, "%s %d\n", descriptorPrefix, i+1)
		if p.Kind.IsT2() {
			fmt.Fprintf(&sb, "%s: 0x%x\n", fieldT2Units, d.Unit)
			fmt.Fprintf(&sb, "%s: %d\n", fieldInactive, d.MaxInactiveTime)
			fmt.Fprintf(&sb, "%s: 0x%x\n", fieldInactiveP, uint8(d.MaxInactivePolicy))
			fmt.Fprintf(&sb, "%s: %d\n", fieldActive, d.MaxActiveTime)
			fmt.Fprintf(&sb, "%s: 0x%x\n", fieldActiveP, uint8(d.MaxActivePolicy))
			fmt.Fprintf(&sb, "%s: %d\n", fieldDuration, d.Duration)
			fmt.Fprintf(&sb, "%s: 0x%x\n", fieldDurationP, uint8(d.DurationPolicy))
		} else {
			fmt.Fprintf(&sb, "%s: 0x%x\n", fieldCDLUnit, d.Unit)
			fmt.Fprintf(&sb, "%s: %d\n", fieldDuration, d.Duration)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// WriteConfig writes the text representation of p to w.
func WriteConfig(w io.Writer, p *Page) error {
	_, err := io.WriteString(w, SerializeConfig(p))
	return err
}

type configLine struct {
	num  int
	text string
}

type configParser struct {
	lines []configLine
	pos   int
	desc  int
	last  int
}

func (c *configParser) errorf(field string, format string, a ...interface{}) error {
	return &ConfigError{
		Line:       c.last,
		Descriptor: c.desc,
		Field:      field,
		Msg:        fmt.Sprintf(format, a...),
	}
}

func (c *configParser) next() (configLine, bool) {
	if c.pos >= len(c.lines) {
		return configLine{}, false
	}
	l := c.lines[c.pos]
	c.pos++
	c.last = l.num
	return l, true
}

// field returns the value of the next line, which must hold the named field.
func (c *configParser) field(name string) (string, error) {
	l, ok := c.next()
	if !ok {
		return "", c.errorf(name, "field %s not found", name)
	}
	k, v, found := strings.Cut(l.text, ":")
	if !found || strings.TrimSpace(k) != name {
		return "", c.errorf(name, "expected field %s, got %q", name, l.text)
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return "", c.errorf(name, "no value specified")
	}
	return v, nil
}

func (c *configParser) hex(name string, max uint64) (uint8, error) {
	v, err := c.field(name)
	if err != nil {
		return 0, err
	}
	s := strings.TrimPrefix(strings.ToLower(v), "0x")
	n, err := strconv.ParseUint(s, 16, 8)
	if err != nil || n > max {
		return 0, c.errorf(name, "invalid value %q", v)
	}
	return uint8(n), nil
}

func (c *configParser) decimal(name string) (uint16, error) {
	v, err := c.field(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 16)
	if err != nil {
		return 0, c.errorf(name, "invalid value %q", v)
	}
	return uint16(n), nil
}

func (c *configParser) policy(name string, l Limit) (Policy, error) {
	v, err := c.hex(name, 0x0f)
	if err != nil {
		return 0, err
	}
	p := Policy(v)
	if !l.ValidPolicy(p) {
		return 0, c.errorf(name, "invalid %s policy 0x%x", l, v)
	}
	return p, nil
}

func (c *configParser) descriptor(p *Page, i int) error {
	c.desc = i + 1
	want := fmt.Sprintf("%s %d", descriptorPrefix, i+1)
	l, ok := c.next()
	if !ok || strings.Join(strings.Fields(l.text), " ") != want {
		return c.errorf("", "no descriptor %d found", i+1)
	}

	d := &p.Descriptors[i]
	var err error
	if !p.Kind.IsT2() {
		if d.Unit, err = c.hex(fieldCDLUnit, 0x07); err != nil {
			return err
		}
		d.Duration, err = c.decimal(fieldDuration)
		return err
	}

	if d.Unit, err = c.hex(fieldT2Units, 0x0f); err != nil {
		return err
	}
	if d.MaxInactiveTime, err = c.decimal(fieldInactive); err != nil {
		return err
	}
	if d.MaxInactivePolicy, err = c.policy(fieldInactiveP, LimitMaxInactive); err != nil {
		return err
	}
	if d.MaxActiveTime, err = c.decimal(fieldActive); err != nil {
		return err
	}
	if d.MaxActivePolicy, err = c.policy(fieldActiveP, LimitMaxActive); err != nil {
		return err
	}
	if d.Duration, err = c.decimal(fieldDuration); err != nil {
		return err
	}
	d.DurationPolicy, err = c.policy(fieldDurationP, LimitDuration)
	return err
}

// ParseConfig parses a CDL page file. Any deviation from the format
// returns a *ConfigError matching ErrMalformedConfig. The returned page has
// no device context and still needs to be validated.
func ParseConfig(r io.Reader) (*Page, error) {
	c := &configParser{}
	s := bufio.NewScanner(r)
	n := 1
	for ; s.Scan(); n++ {
		t := strings.TrimSpace(s.Text())
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		c.lines = append(c.lines, configLine{num: n, text: t})
	}
	if err := s.Err(); err != nil {
		return nil, &ConfigError{Line: n, Msg: err.Error()}
	}

	v, err := c.field(fieldCDLP)
	if err != nil {
		return nil, err
	}
	kind, err := ParsePageKind(v)
	if err != nil || kind.String() != v {
		return nil, c.errorf(fieldCDLP, "invalid cdlp %q", v)
	}

	p := NewPage(kind)
	if kind == PageT2A {
		if p.PerfVsDurationGuideline, err = c.hex(fieldPerf, MaxPerfVsDurationGuideline); err != nil {
			return nil, err
		}
	}
	for i := range p.Descriptors {
		if err := c.descriptor(p, i); err != nil {
			return nil, err
		}
	}
	if l, ok := c.next(); ok {
		c.desc = 0
		return nil, c.errorf("", "unexpected line %q", l.text)
	}
	return p, nil
}

// ParseConfigString is ParseConfig on a string.
func ParseConfigString(s string) (*Page, error) {
	return ParseConfig(strings.NewReader(s))
}
