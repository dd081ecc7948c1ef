// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdl

// Command is one of the commands that can carry a duration limit descriptor
// index.
type Command int

const (
	CmdRead16 Command = iota
	CmdWrite16
	CmdRead32
	CmdWrite32
)

var commandInfo = [...]struct {
	opcode uint8
	sa     uint16
	name   string
	dir    Direction
}{
	CmdRead16:  {0x88, 0x0000, "READ_16", Read},
	CmdWrite16: {0x8a, 0x0000, "WRITE_16", Write},
	CmdRead32:  {0x7f, 0x0009, "READ_32", Read},
	CmdWrite32: {0x7f, 0x000b, "WRITE_32", Write},
}

// Commands returns all CDL capable commands.
func Commands() []Command {
	return []Command{CmdRead16, CmdWrite16, CmdRead32, CmdWrite32}
}

func (c Command) String() string        { return commandInfo[c].name }
func (c Command) Opcode() uint8         { return commandInfo[c].opcode }
func (c Command) ServiceAction() uint16 { return commandInfo[c].sa }
func (c Command) Direction() Direction  { return commandInfo[c].dir }

// HasServiceAction reports whether the command is a variable length CDB
// identified by its service action.
func (c Command) HasServiceAction() bool {
	return commandInfo[c].sa != 0
}
