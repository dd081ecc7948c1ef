// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Unit code to time conversions

package cdl

import (
	"fmt"
	"math"
	"math/bits"
)

// UnitTable selects how a raw unit code is interpreted.
type UnitTable int

const (
	// SimpleUnits is the CDLUNIT encoding of the A and B pages.
	SimpleUnits UnitTable = iota
	// T2Units is the T2CDLUNIT encoding of the T2A and T2B pages.
	T2Units
)

const (
	SimpleUnitNone  = 0x0
	SimpleUnit1us   = 0x4
	SimpleUnit10ms  = 0x5
	SimpleUnit500ms = 0x6

	T2UnitNone  = 0x0
	T2Unit500ns = 0x6
	T2Unit1us   = 0x8
	T2Unit10ms  = 0xA
	T2Unit500ms = 0xE
)

var (
	simpleUnitNanos = map[uint8]uint64{
		SimpleUnit1us:   1000,
		SimpleUnit10ms:  10000000,
		SimpleUnit500ms: 500000000,
	}
	t2UnitNanos = map[uint8]uint64{
		T2Unit500ns: 500,
		T2Unit1us:   1000,
		T2Unit10ms:  10000000,
		T2Unit500ms: 500000000,
	}
)

// UnitNanoseconds returns the length of one count of unit, 0 for the
// disabled or an unknown unit.
func UnitNanoseconds(unit uint8, table UnitTable) uint64 {
	if table == T2Units {
		return t2UnitNanos[unit]
	}
	return simpleUnitNanos[unit]
}

// ToNanoseconds converts a raw limit value to nanoseconds. Unit 0 and
// unknown units yield 0, which means "no limit". Products that do not fit
// in 64 bits saturate.
func ToNanoseconds(val uint64, unit uint8, table UnitTable) uint64 {
	hi, lo := bits.Mul64(val, UnitNanoseconds(unit, table))
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

// SCSIToATAMicroseconds converts a T2 page limit to the microsecond value
// stored in the ATA CDL log, clamping to the 32-bit field.
func SCSIToATAMicroseconds(val uint64, t2unit uint8) uint32 {
	us := ToNanoseconds(val, t2unit, T2Units) / 1000
	if us > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(us)
}

// ATAToSCSIQuantity converts an ATA microsecond limit to the 16-bit count
// of 10 ms units used by the T2 pages, clamping to the 16-bit field.
func ATAToSCSIQuantity(us uint32) uint16 {
	q := us / 10000
	if q > math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(q)
}

// FormatDuration renders ns in the coarsest unit that represents it:
// milliseconds from 1 ms up, microseconds for exact multiples of 1 us,
// nanoseconds otherwise.
func FormatDuration(ns uint64) string {
	switch {
	case ns >= 1000000:
		return fmt.Sprintf("%d ms", ns/1000000)
	case ns >= 1000 && ns%1000 == 0:
		return fmt.Sprintf("%d us", ns/1000)
	default:
		return fmt.Sprintf("%d ns", ns)
	}
}
