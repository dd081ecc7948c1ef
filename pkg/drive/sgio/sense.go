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
	"errors"
	"fmt"
)

const (
	SENSE_NO_SENSE        = 0x0
	SENSE_NOT_READY       = 0x2
	SENSE_MEDIUM_ERROR    = 0x3
	SENSE_HARDWARE_ERROR  = 0x4
	SENSE_ILLEGAL_REQUEST = 0x5
	SENSE_UNIT_ATTENTION  = 0x6
	SENSE_ABORTED_COMMAND = 0xb
)

var (
	ErrIllegalRequest = errors.New("illegal SCSI request")
	ErrTimeout        = errors.New("SCSI command timed out")
)

// SenseError is a command failure with decoded sense data.
type SenseError struct {
	Key  uint8
	ASC  uint8
	ASCQ uint8
}

func (e SenseError) Error() string {
	return fmt.Sprintf("SCSI status: sense key: %#02x, asc/ascq: %#04x", e.Key, e.ASCQWord())
}

// ASCQWord returns ASC and ASCQ as a single value, ASC in the high byte.
func (e SenseError) ASCQWord() uint16 {
	return uint16(e.ASC)<<8 | uint16(e.ASCQ)
}

func (e SenseError) Is(target error) bool {
	return target == ErrIllegalRequest && e.Key == SENSE_ILLEGAL_REQUEST
}

// DecodeSense extracts the sense key and additional sense code from fixed
// (70h/71h) or descriptor (72h/73h) format sense data.
func DecodeSense(sense []byte) (SenseError, bool) {
	if len(sense) < 4 {
		return SenseError{}, false
	}
	switch sense[0] & 0x7f {
	case 0x72, 0x73:
		return SenseError{Key: sense[1] & 0x0f, ASC: sense[2], ASCQ: sense[3]}, true
	case 0x70, 0x71:
		if len(sense) < 14 {
			return SenseError{}, false
		}
		return SenseError{Key: sense[2] & 0x0f, ASC: sense[12], ASCQ: sense[13]}, true
	}
	return SenseError{}, false
}
