// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdl

import "fmt"

// Policy is the 4-bit action code a device applies when a limit is reached.
type Policy uint8

const (
	PolicyCompleteEarliest    Policy = 0x0
	PolicyContinueNextLimit   Policy = 0x1
	PolicyContinueNoLimit     Policy = 0x2
	PolicyCompleteUnavailable Policy = 0xD
	PolicyAbortRecovery       Policy = 0xE
	PolicyAbort               Policy = 0xF
)

var policyNames = map[Policy]string{
	PolicyCompleteEarliest:    "complete-earliest",
	PolicyContinueNextLimit:   "continue-next-limit",
	PolicyContinueNoLimit:     "continue-no-limit",
	PolicyCompleteUnavailable: "complete-unavailable",
	PolicyAbortRecovery:       "abort-recovery",
	PolicyAbort:               "abort",
}

func (p Policy) String() string {
	if n, ok := policyNames[p]; ok {
		return n
	}
	return "?"
}

// Limit names one of the three time limits of a T2 descriptor. Simple
// pages only carry LimitDuration.
type Limit int

const (
	LimitMaxInactive Limit = iota
	LimitMaxActive
	LimitDuration
)

func (l Limit) String() string {
	switch l {
	case LimitMaxInactive:
		return "max inactive time"
	case LimitMaxActive:
		return "max active time"
	case LimitDuration:
		return "duration guideline"
	}
	return fmt.Sprintf("Limit(%d)", int(l))
}

var legalPolicies = map[Limit][]Policy{
	LimitMaxInactive: {PolicyCompleteEarliest, PolicyCompleteUnavailable, PolicyAbort},
	LimitMaxActive:   {PolicyCompleteEarliest, PolicyCompleteUnavailable, PolicyAbortRecovery, PolicyAbort},
	LimitDuration:    {PolicyCompleteEarliest, PolicyContinueNextLimit, PolicyContinueNoLimit, PolicyCompleteUnavailable, PolicyAbort},
}

// Policies returns the policies a device accepts for the limit.
func (l Limit) Policies() []Policy {
	return legalPolicies[l]
}

// ValidPolicy reports whether p may be used with limit l.
func (l Limit) ValidPolicy(p Policy) bool {
	for _, v := range legalPolicies[l] {
		if v == p {
			return true
		}
	}
	return false
}

var perfVsDurationGuideline = [...]string{
	"0", "0.5", "1.0", "1.5", "2.0", "2.5", "3", "4", "5", "8", "10", "15", "20",
}

// MaxPerfVsDurationGuideline is the highest valid percentage table index.
const MaxPerfVsDurationGuideline = 0xC

// PerfVsDurationGuidelinePercent returns the percentage encoded by v, or
// "?" for reserved values.
func PerfVsDurationGuidelinePercent(v uint8) string {
	if int(v) < len(perfVsDurationGuideline) {
		return perfVsDurationGuideline[v]
	}
	return "?"
}
