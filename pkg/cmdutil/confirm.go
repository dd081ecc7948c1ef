// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

var ErrNotInteractive = errors.New("confirmation requires a terminal")

// Confirm asks yes/no questions on the terminal.
type Confirm struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewConfirm asks on stdin and stdout. Questions fail with
// ErrNotInteractive when stdin is not a terminal.
func NewConfirm() *Confirm {
	return NewConfirmOn(os.Stdin, os.Stdout, term.IsTerminal(int(os.Stdin.Fd())))
}

// NewConfirmOn asks on out and reads answers from in.
func NewConfirmOn(in io.Reader, out io.Writer, interactive bool) *Confirm {
	return &Confirm{in: bufio.NewReader(in), out: out, interactive: interactive}
}

// Ask prints question and reads the answer. Only y or yes is a yes.
func (c *Confirm) Ask(question string) (bool, error) {
	if !c.interactive {
		return false, ErrNotInteractive
	}

	fmt.Fprintf(c.out, "%s? [y/N]: ", question)
	answer, err := c.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("confirmation could not be read: %v", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
