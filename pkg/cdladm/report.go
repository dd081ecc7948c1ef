// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdladm

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/open-source-firmware/go-cdl/pkg/cdl"
	"github.com/open-source-firmware/go-cdl/pkg/drive"
	"gopkg.in/yaml.v3"
)

// Format selects how pages are rendered.
type Format string

const (
	FormatText        Format = "text"
	FormatJSON        Format = "json"
	FormatYAML        Format = "yaml"
	FormatOpenMetrics Format = "openmetrics"
)

func Formats() []string {
	return []string{string(FormatText), string(FormatJSON), string(FormatYAML), string(FormatOpenMetrics)}
}

// WriteInfo prints the identification of the device and whether it
// supports command duration limits.
func (d *Device) WriteInfo(w io.Writer) error {
	id := d.Identity
	sectors := d.Capacity >> 9
	var b strings.Builder
	fmt.Fprintf(&b, "%s:\n", d.Name)
	fmt.Fprintf(&b, "    Vendor: %s\n", id.Vendor)
	fmt.Fprintf(&b, "    Product: %s\n", id.Model)
	fmt.Fprintf(&b, "    Revision: %s\n", id.Firmware)
	fmt.Fprintf(&b, "    %d 512-byte sectors (%d.%03d TB)\n",
		sectors, d.Capacity/1000000000000, (d.Capacity%1000000000000)/1000000000)
	if id.SAT != nil {
		fmt.Fprintf(&b, "    SAT: %s %s %s\n", id.SAT.Vendor, id.SAT.Product, id.SAT.Revision)
	}
	fmt.Fprintf(&b, "    Device interface: %s\n", d.Interface)

	if !d.Features.Supported {
		fmt.Fprintf(&b, "%s: command duration limits is not supported\n", d.Name)
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "%s: command duration limits is supported\n", d.Name)
	fmt.Fprintf(&b, "    Command duration guidelines: %s\n", supported(d.Features.GuidelineSupported))
	if d.Interface == drive.InterfaceATA {
		fmt.Fprintf(&b, "    High priority enhancement: %s\n", supported(d.Features.HighPriSupported))
	}
	fmt.Fprintf(&b, "    Minimum limit: %s\n", cdl.FormatDuration(d.Limits.MinLimit))
	fmt.Fprintf(&b, "    Maximum limit: %s\n", cdl.FormatDuration(d.Limits.MaxLimit))
	if d.Limits.CommandTimeout > 0 {
		fmt.Fprintf(&b, "    Command timeout: %s\n", cdl.FormatDuration(d.Limits.CommandTimeout))
	}
	fmt.Fprintf(&b, "    Device setting: %s\n", enabled(d.Features.Enabled))
	fmt.Fprintf(&b, "    System setting: %s\n", supported(d.Features.SystemSupported))
	_, err := io.WriteString(w, b.String())
	return err
}

func supported(b bool) string {
	if b {
		return "supported"
	}
	return "not supported"
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

// WriteList prints the supported pages and the commands using each.
func (d *Device) WriteList(w io.Writer) error {
	var b strings.Builder
	b.WriteString("Supported pages:\n")
	for _, k := range d.SupportedPages() {
		var cmds []string
		for _, c := range d.CommandsFor(k) {
			cmds = append(cmds, c.String())
		}
		fmt.Fprintf(&b, "    %s (%s)\n", k, strings.Join(cmds, ", "))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

type pagesReport struct {
	Device string      `json:"device" yaml:"device"`
	Pages  []*cdl.Page `json:"pages" yaml:"pages"`
}

// WritePages renders the given pages. Text output honors the Raw and Count
// settings of the device.
func (d *Device) WritePages(w io.Writer, kinds []cdl.PageKind, format Format) error {
	pages := make([]*cdl.Page, 0, len(kinds))
	for _, k := range kinds {
		p, err := d.Page(k)
		if err != nil {
			return err
		}
		pages = append(pages, p)
	}

	switch format {
	case FormatText, "":
		return d.writeText(w, pages)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(pagesReport{Device: d.Name, Pages: pages})
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(pagesReport{Device: d.Name, Pages: pages}); err != nil {
			return err
		}
		return enc.Close()
	case FormatOpenMetrics:
		return WriteMetrics(w, d)
	}
	return fmt.Errorf("unsupported output format %q", format)
}

func (d *Device) writeText(w io.Writer, pages []*cdl.Page) error {
	for _, p := range pages {
		if d.cfg.Count {
			if _, err := fmt.Fprintf(w, "Page %s: %d descriptors\n", p.Kind, cdl.ActiveDescriptors(p)); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "Page %s:\n", p.Kind); err != nil {
			return err
		}
		if err := cdl.WriteShow(w, p, cdl.ShowOptions{Raw: d.cfg.Raw}); err != nil {
			return err
		}
	}
	return nil
}
