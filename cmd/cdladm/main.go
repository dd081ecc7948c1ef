// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/alecthomas/kong"
	"github.com/davecgh/go-spew/spew"
	"github.com/open-source-firmware/go-cdl/pkg/cdladm"
	"github.com/open-source-firmware/go-cdl/pkg/cmdutil"
)

const (
	programName = "cdladm"
	programDesc = "Manage the command duration limits of SCSI and ATA disks"
)

func main() {
	spew.Config.Indent = "  "

	// Parse kong flags and sub-commands
	ctx := kong.Parse(&cli,
		kong.Name(programName),
		kong.Description(programDesc),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	log := cli.Logger()
	dev, err := cdladm.Open(cli.Device.Device, cli.Config(), cdladm.WithLogger(log))
	ctx.FatalIfErrorf(err)

	// Run the command
	err = ctx.Run(&context{dev: dev, log: log, out: os.Stdout, confirm: cmdutil.NewConfirm()})
	dev.Close()
	ctx.FatalIfErrorf(err)
}
