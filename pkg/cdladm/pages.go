// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdladm

import (
	"fmt"

	"github.com/open-source-firmware/go-cdl/pkg/cdl"
	"github.com/open-source-firmware/go-cdl/pkg/drive"
)

// PageSupported reports whether any command of the device uses kind.
func (d *Device) PageSupported(kind cdl.PageKind) bool {
	for _, k := range d.commandPages {
		if k == kind && k != cdl.PageNone {
			return true
		}
	}
	return false
}

// SupportedPages returns the pages used by the device, in subpage order.
func (d *Device) SupportedPages() []cdl.PageKind {
	var out []cdl.PageKind
	for _, k := range cdl.PageKinds() {
		if d.PageSupported(k) {
			out = append(out, k)
		}
	}
	return out
}

// CommandsFor returns the commands whose limits are defined by kind.
func (d *Device) CommandsFor(kind cdl.PageKind) []cdl.Command {
	var out []cdl.Command
	for _, c := range cdl.Commands() {
		if d.commandPages[c] == kind {
			out = append(out, c)
		}
	}
	return out
}

// CommandPage returns the page holding the limits of c.
func (d *Device) CommandPage(c cdl.Command) cdl.PageKind {
	return d.commandPages[c]
}

func notSupported(kind cdl.PageKind) error {
	return fmt.Errorf("page %s: %w", kind, drive.ErrNotSupported)
}

// ReadPages reads every supported page that is not cached yet.
func (d *Device) ReadPages() error {
	for _, k := range d.SupportedPages() {
		if _, err := d.Page(k); err != nil {
			return err
		}
	}
	return nil
}

// Page returns the page of the given kind, reading it from the device on
// first use.
func (d *Device) Page(kind cdl.PageKind) (*cdl.Page, error) {
	if !d.PageSupported(kind) {
		return nil, notSupported(kind)
	}
	if p, ok := d.pages[kind]; ok {
		return p, nil
	}
	p, err := d.be.readPage(kind)
	if err != nil {
		return nil, err
	}
	d.pages[kind] = p
	return p, nil
}

// WritePage writes p to the device, revalidates the device and reloads
// the page. A page without context, as returned by cdl.ParseConfig, takes
// the context of the cached page of the same kind.
func (d *Device) WritePage(p *cdl.Page) error {
	cur, err := d.Page(p.Kind)
	if err != nil {
		return err
	}
	np := *p
	if np.Context == nil {
		np.Context = cur.Context
	}

	d.log.WithField("page", p.Kind.String()).Debugf("writing page")
	if err := d.be.writePage(&np); err != nil {
		return err
	}
	d.be.revalidate()

	delete(d.pages, p.Kind)
	_, err = d.Page(p.Kind)
	return err
}
