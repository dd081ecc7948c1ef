// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdl

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goldenPages() map[PageKind]*Page {
	a := NewPage(PageA)
	a.Descriptors[0] = Descriptor{Unit: SimpleUnit10ms, Duration: 20}
	a.Descriptors[1] = Descriptor{Unit: SimpleUnit1us, Duration: 1000}

	b := NewPage(PageB)
	b.Descriptors[0] = Descriptor{Unit: SimpleUnit500ms, Duration: 2}

	t2a := NewPage(PageT2A)
	t2a.PerfVsDurationGuideline = 0x4
	t2a.Descriptors[0] = Descriptor{Unit: T2Unit10ms, MaxActiveTime: 200}
	t2a.Descriptors[1] = Descriptor{
		Unit:              T2Unit500ms,
		MaxInactiveTime:   3,
		MaxInactivePolicy: PolicyCompleteUnavailable,
		MaxActiveTime:     2,
		MaxActivePolicy:   PolicyAbortRecovery,
		Duration:          1,
		DurationPolicy:    PolicyContinueNextLimit,
	}

	t2b := NewPage(PageT2B)
	t2b.Descriptors[0] = Descriptor{Unit: T2Unit1us, Duration: 50000, DurationPolicy: PolicyAbort}

	return map[PageKind]*Page{PageA: a, PageB: b, PageT2A: t2a, PageT2B: t2b}
}

func TestSerializeConfigGolden(t *testing.T) {
	for kind, p := range goldenPages() {
		t.Run(kind.String(), func(t *testing.T) {
			golden, err := os.ReadFile(filepath.Join("testdata", kind.String()+FileExt))
			require.NoError(t, err)

			assert.Equal(t, string(golden), SerializeConfig(p))

			var buf bytes.Buffer
			require.NoError(t, WriteConfig(&buf, p))
			assert.Equal(t, golden, buf.Bytes())
		})
	}
}

func TestParseConfigGolden(t *testing.T) {
	for kind, want := range goldenPages() {
		t.Run(kind.String(), func(t *testing.T) {
			f, err := os.Open(filepath.Join("testdata", kind.String()+FileExt))
			require.NoError(t, err)
			defer f.Close()

			got, err := ParseConfig(f)
			require.NoError(t, err)
			assert.True(t, got.Equal(want), "got %+v, want %+v", got, want)
			assert.Nil(t, got.Context)
		})
	}
}

func TestConfigIdempotence(t *testing.T) {
	p := NewPage(PageT2B)
	for i := range p.Descriptors {
		p.Descriptors[i] = Descriptor{
			Unit:              uint8(i * 2),
			MaxInactiveTime:   uint16(i * 1000),
			MaxInactivePolicy: LimitMaxInactive.Policies()[i%3],
			MaxActiveTime:     65535 - uint16(i),
			MaxActivePolicy:   LimitMaxActive.Policies()[i%4],
			Duration:          uint16(i),
			DurationPolicy:    LimitDuration.Policies()[i%5],
		}
	}
	got, err := ParseConfigString(SerializeConfig(p))
	require.NoError(t, err)
	assert.True(t, got.Equal(p), "got %+v, want %+v", got, p)
}

func TestConfigT2AScenario(t *testing.T) {
	p := NewPage(PageT2A)
	p.PerfVsDurationGuideline = 0x4
	p.Descriptors[0] = Descriptor{Unit: T2Unit10ms, MaxActiveTime: 200}

	s := SerializeConfig(p)
	for _, line := range []string{
		"t2cdlunits: 0xa\n",
		"max-active-time: 200\n",
		"max-active-time-policy: 0x0\n",
		"perf-vs-duration-guideline: 0x4\n",
	} {
		assert.Contains(t, s, line)
	}
	assert.Less(t, strings.Index(s, "perf-vs-duration-guideline: 0x4"), strings.Index(s, "== descriptor: 1"))

	got, err := ParseConfigString(s)
	require.NoError(t, err)
	assert.Equal(t, p.Descriptors, got.Descriptors)
	assert.Equal(t, p.PerfVsDurationGuideline, got.PerfVsDurationGuideline)
	assert.Equal(t, uint64(2000000000), got.Nanoseconds(0, LimitMaxActive))
}

func TestParseConfigLenient(t *testing.T) {
	in := "  # leading comment\n" +
		"cdlp: B   \n" +
		"\n" +
		"\t== descriptor: 1\r\n" +
		"cdlunit:0x5\n" +
		"duration-guideline:   7\n"
	for i := 2; i <= MaxDescriptors; i++ {
		in += "== descriptor: " + string(rune('0'+i)) + "\ncdlunit: 0\nduration-guideline: 0\n# trailing\n"
	}
	p, err := ParseConfigString(in)
	require.NoError(t, err)
	assert.Equal(t, PageB, p.Kind)
	assert.Equal(t, Descriptor{Unit: SimpleUnit10ms, Duration: 7}, p.Descriptors[0])
}

func TestParseConfigErrors(t *testing.T) {
	golden, err := os.ReadFile(filepath.Join("testdata", "T2A.cdl"))
	require.NoError(t, err)
	t2a := string(golden)

	testCases := []struct {
		name       string
		in         string
		descriptor int
		field      string
	}{
		{"Empty", "", 0, "cdlp"},
		{"Bad cdlp", strings.Replace(t2a, "cdlp: T2A", "cdlp: T3", 1), 0, "cdlp"},
		{"Lower case cdlp", strings.Replace(t2a, "cdlp: T2A", "cdlp: t2a", 1), 0, "cdlp"},
		{"Missing perf", strings.Replace(t2a, "perf-vs-duration-guideline: 0x4", "", 1), 0, "perf-vs-duration-guideline"},
		{"Reserved perf", strings.Replace(t2a, "perf-vs-duration-guideline: 0x4", "perf-vs-duration-guideline: 0xd", 1), 0, "perf-vs-duration-guideline"},
		{"Missing descriptor 3", strings.Replace(t2a, "== descriptor: 3\n", "", 1), 3, ""},
		{"Out of order", strings.Replace(t2a, "== descriptor: 2\n", "== descriptor: 4\n", 1), 2, ""},
		{"Missing field", strings.Replace(t2a, "max-active-time: 200\n", "", 1), 1, "max-active-time"},
		{"Swapped fields", strings.Replace(t2a, "max-inactive-time: 0\nmax-inactive-time-policy: 0x0\n", "max-inactive-time-policy: 0x0\nmax-inactive-time: 0\n", 1), 1, "max-inactive-time"},
		{"Empty value", strings.Replace(t2a, "max-active-time: 200", "max-active-time:", 1), 1, "max-active-time"},
		{"Not a number", strings.Replace(t2a, "max-active-time: 200", "max-active-time: 2ms", 1), 1, "max-active-time"},
		{"Too large", strings.Replace(t2a, "max-active-time: 200", "max-active-time: 65536", 1), 1, "max-active-time"},
		{"Unit too large", strings.Replace(t2a, "t2cdlunits: 0xa", "t2cdlunits: 0x1a", 1), 1, "t2cdlunits"},
		{"Bad inactive policy", strings.Replace(t2a, "max-inactive-time-policy: 0xd", "max-inactive-time-policy: 0xe", 1), 2, "max-inactive-time-policy"},
		{"Bad active policy", strings.Replace(t2a, "max-active-time-policy: 0xe", "max-active-time-policy: 0x1", 1), 2, "max-active-time-policy"},
		{"Bad duration policy", strings.Replace(t2a, "duration-guideline-policy: 0x1", "duration-guideline-policy: 0xe", 1), 2, "duration-guideline-policy"},
		{"Trailing data", t2a + "== descriptor: 8\n", 0, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ParseConfigString(tc.in)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, ErrMalformedConfig), "%v is not a malformed config error", err)

			var ce *ConfigError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tc.descriptor, ce.Descriptor, err.Error())
			assert.Equal(t, tc.field, ce.Field, err.Error())
		})
	}
}

func TestParseConfigMissingDescriptorMessage(t *testing.T) {
	golden, err := os.ReadFile(filepath.Join("testdata", "A.cdl"))
	require.NoError(t, err)
	_, err = ParseConfigString(strings.Replace(string(golden), "== descriptor: 3\n", "", 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "descriptor 3")
}

func TestParseConfigLongLine(t *testing.T) {
	_, err := ParseConfigString("cdlp: A\n# " + strings.Repeat("x", 70000) + "\n")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedConfig), "%v is not a malformed config error", err)

	var ce *ConfigError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 2, ce.Line)
}
