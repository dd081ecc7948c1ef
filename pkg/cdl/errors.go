// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdl

import (
	"errors"
	"fmt"
)

var (
	ErrProtocolMismatch = errors.New("device data does not match the expected CDL page")
	ErrMissingContext   = errors.New("page was never read from the device")
	ErrMalformedConfig  = errors.New("malformed CDL page file")
	ErrValidation       = errors.New("CDL page validation failed")
)

// ConfigError describes where parsing a page file failed.
type ConfigError struct {
	Line       int
	Descriptor int
	Field      string
	Msg        string
}

func (e *ConfigError) Error() string {
	s := ""
	if e.Line > 0 {
		s = fmt.Sprintf("line %d: ", e.Line)
	}
	if e.Descriptor > 0 {
		s += fmt.Sprintf("descriptor %d: ", e.Descriptor)
	}
	if e.Field != "" {
		s += fmt.Sprintf("field %s: ", e.Field)
	}
	return s + e.Msg
}

func (e *ConfigError) Unwrap() error {
	return ErrMalformedConfig
}

func mismatch(format string, a ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrProtocolMismatch, fmt.Sprintf(format, a...))
}
