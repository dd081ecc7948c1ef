// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmdutil

import (
	"os"

	"github.com/open-source-firmware/go-cdl/pkg/cdladm"
	"github.com/sirupsen/logrus"
)

// ConfigEmbed holds the flags shared by every command operating on a
// device.
type ConfigEmbed struct {
	Verbose  bool `optional:"" short:"v" env:"CDLADM_VERBOSE" help:"Trace every command sent to the device"`
	Raw      bool `optional:"" env:"CDLADM_RAW" help:"Show raw descriptor values instead of times"`
	Count    bool `optional:"" env:"CDLADM_COUNT" help:"Only show the number of active descriptors of each page"`
	ForceATA bool `optional:"" name:"force-ata" env:"CDLADM_FORCE_ATA" help:"Use ATA passthrough for any SAT attached drive"`
	Save     bool `optional:"" env:"CDLADM_SAVE" help:"Ask the device to keep written pages across power cycles"`
	Force    bool `optional:"" env:"CDLADM_FORCE" help:"Upload pages that failed validation"`
}

func (c *ConfigEmbed) Config() cdladm.Config {
	return cdladm.Config{
		Verbose:        c.Verbose,
		Raw:            c.Raw,
		Count:          c.Count,
		ForceATA:       c.ForceATA,
		SaveParameters: c.Save,
		Force:          c.Force,
	}
}

// Logger returns a logger writing to stderr, at debug level when verbose.
func (c *ConfigEmbed) Logger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	if c.Verbose {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

type OutputEmbed struct {
	Output string `optional:"" short:"o" env:"CDLADM_OUTPUT" default:"text" enum:"text,json,yaml,openmetrics" help:"Output format; one of [text, json, yaml, openmetrics]"`
}

func (o *OutputEmbed) Format() cdladm.Format {
	return cdladm.Format(o.Output)
}
