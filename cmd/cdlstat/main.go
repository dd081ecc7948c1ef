// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	"github.com/open-source-firmware/go-cdl/pkg/cdladm"
	"github.com/open-source-firmware/go-cdl/pkg/cmdutil"
	"github.com/open-source-firmware/go-cdl/pkg/drive"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	programName = "cdlstat"
	programDesc = `Show the command duration limits state of all disks.

The following state flags might be shown:
  E/e - CDL is enabled (E) or disabled (e) on the device
  G   - The performance versus duration guideline is supported
  H/h - High priority enhancements are enabled (H) or supported (h)
  !   - The kernel does not expose CDL for the device`
)

const sysBlock = "/sys/class/block"

var cli struct {
	Output   string `optional:"" short:"o" default:"table" enum:"table,json,openmetrics" help:"Output format; one of [table, json, openmetrics]"`
	NoHeader bool   `optional:"" help:"Suppress the header in table format output"`
	ForceATA bool   `optional:"" name:"force-ata" help:"Use ATA passthrough for all drives behind a SCSI to ATA translation layer"`
	Verbose  bool   `optional:"" short:"v" help:"Log skipped devices and the commands sent to them"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name(programName),
		kong.Description(programDesc),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	log := (&cmdutil.ConfigEmbed{Verbose: cli.Verbose}).Logger()
	fs := afero.NewOsFs()
	cfg := deviceConfig(cli.ForceATA)
	devs, err := scan(fs, sysBlock, func(devpath string) (*cdladm.Device, error) {
		return cdladm.Open(devpath, cfg, cdladm.WithFs(fs), cdladm.WithLogger(log))
	}, log)
	ctx.FatalIfErrorf(err)
	defer func() {
		for _, d := range devs {
			d.Close()
		}
	}()

	switch cli.Output {
	case "json":
		err = outputJSON(os.Stdout, devs)
	case "openmetrics":
		err = cdladm.WriteMetrics(os.Stdout, devs...)
	default:
		err = outputTable(os.Stdout, devs, !cli.NoHeader)
	}
	ctx.FatalIfErrorf(err)
}

// deviceConfig opens devices shared: cdlstat only reads and must not skip
// mounted disks.
func deviceConfig(forceATA bool) cdladm.Config {
	return cdladm.Config{ForceATA: forceATA, Shared: true}
}

type openFunc func(devpath string) (*cdladm.Device, error)

// scan opens every block device listed under sysdir that is backed by a
// device. Devices that cannot be opened are skipped.
func scan(fs afero.Fs, sysdir string, open openFunc, log logrus.FieldLogger) ([]*cdladm.Device, error) {
	sysblk, err := afero.ReadDir(fs, sysdir)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate block devices: %v", err)
	}

	var devs []*cdladm.Device
	for _, fi := range sysblk {
		devname := fi.Name()
		if ok, _ := afero.Exists(fs, filepath.Join(sysdir, devname, "device")); !ok {
			continue
		}
		devpath := filepath.Join("/dev", devname)
		if ok, _ := afero.Exists(fs, devpath); !ok {
			log.Warnf("Failed to find device node %s", devpath)
			continue
		}

		d, err := open(devpath)
		if errors.Is(err, drive.ErrDeviceNotSupported) {
			log.Debugf("Skipping %s: %v", devpath, err)
			continue
		}
		if err != nil {
			log.Warnf("Skipping %s: %v", devpath, err)
			continue
		}
		devs = append(devs, d)
	}
	return devs, nil
}

func outputJSON(w io.Writer, devs []*cdladm.Device) error {
	b, err := json.MarshalIndent(devs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %v", err)
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

func stateFlags(d *cdladm.Device) string {
	f := d.Features
	if !f.Supported {
		return "-"
	}
	state := "e"
	if f.Enabled {
		state = "E"
	}
	if f.GuidelineSupported {
		state += "G"
	}
	if f.HighPriEnabled {
		state += "H"
	} else if f.HighPriSupported {
		state += "h"
	}
	if !f.SystemSupported {
		state += "!"
	}
	return state
}

func outputTable(out io.Writer, devs []*cdladm.Device, header bool) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	if header {
		fmt.Fprintf(w, "DEVICE\tMODEL\tSERIAL\tFIRMWARE\tINTERFACE\tPAGES\tSTATE\n")
	}
	for _, d := range devs {
		pages := []string{}
		for _, k := range d.SupportedPages() {
			pages = append(pages, k.String())
		}
		if len(pages) == 0 {
			pages = []string{"-"}
		}

		fmt.Fprint(w,
			d.Path, "\t",
			d.Identity.Model, "\t",
			d.Identity.SerialNumber, "\t",
			d.Identity.Firmware, "\t",
			d.Interface, "\t",
			strings.Join(pages, ","), "\t",
			stateFlags(d), "\t",
			"\n")
	}
	return w.Flush()
}
