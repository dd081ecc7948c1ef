// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
	"github.com/open-source-firmware/go-cdl/pkg/cdl"
	"github.com/open-source-firmware/go-cdl/pkg/cdladm"
	"github.com/open-source-firmware/go-cdl/pkg/cmdutil"
	"github.com/sirupsen/logrus"
)

// context is the context struct required by kong command line parser
type context struct {
	dev     *cdladm.Device
	log     logrus.FieldLogger
	out     io.Writer
	confirm *cmdutil.Confirm
}

type infoCmd struct {
	Dump bool `optional:"" help:"Dump the device state and the raw page buffers"`
}

type listPagesCmd struct{}

type showPagesCmd struct {
	cmdutil.OutputEmbed `embed:""`
}

type showPageCmd struct {
	Page                string `arg:"" enum:"A,B,T2A,T2B" help:"Page to show (A, B, T2A or T2B)"`
	cmdutil.OutputEmbed `embed:""`
}

type savePageCmd struct {
	Page string `arg:"" enum:"A,B,T2A,T2B" help:"Page to save (A, B, T2A or T2B)"`
	Dir  string `optional:"" short:"C" type:"existingdir" default:"." help:"Directory to save the page file in"`
}

type uploadPageCmd struct {
	File string `arg:"" type:"existingfile" help:"Page file to upload"`
	Yes  bool   `optional:"" short:"y" help:"Write the page without asking for confirmation"`
}

// cli is the main command line interface struct required by kong command line parser
var cli struct {
	cmdutil.ConfigEmbed `embed:""`

	Device struct {
		Device     string        `arg:"" required:"" help:"Path to the disk (e.g. /dev/sda)"`
		Info       infoCmd       `cmd:"" help:"Show the device identification and CDL support (default)" default:"1"`
		ListPages  listPagesCmd  `cmd:"" help:"List supported pages"`
		ShowPages  showPagesCmd  `cmd:"" help:"Show all supported pages"`
		ShowPage   showPageCmd   `cmd:"" help:"Show a supported page"`
		SavePage   savePageCmd   `cmd:"" help:"Save a page to a file"`
		UploadPage uploadPageCmd `cmd:"" help:"Upload a page file to the device"`
	} `arg:""`
}

func supportedPage(dev *cdladm.Device, name string) (cdl.PageKind, error) {
	if !dev.Features.Supported {
		return cdl.PageNone, fmt.Errorf("%s: command duration limits is not supported", dev.Name)
	}
	k, err := cdl.ParsePageKind(name)
	if err != nil {
		return cdl.PageNone, err
	}
	if !dev.PageSupported(k) {
		return cdl.PageNone, fmt.Errorf("page %s is not supported", k)
	}
	return k, nil
}

// Run executes when the info command is invoked
func (i *infoCmd) Run(ctx *context) error {
	if err := ctx.dev.WriteInfo(ctx.out); err != nil {
		return err
	}
	if !i.Dump {
		return nil
	}

	spew.Fdump(ctx.out, ctx.dev.Identity, ctx.dev.Features, ctx.dev.Limits)
	for _, k := range ctx.dev.SupportedPages() {
		p, err := ctx.dev.Page(k)
		if err != nil {
			return fmt.Errorf("read page %s failed: %v", k, err)
		}
		fmt.Fprintf(ctx.out, "Page %s (%s):\n", k, p.Context.Source())
		spew.Fdump(ctx.out, p.Descriptors)
		fmt.Fprint(ctx.out, hex.Dump(p.Context.Bytes()))
	}
	return nil
}

// Run executes when the list-pages command is invoked
func (l *listPagesCmd) Run(ctx *context) error {
	if !ctx.dev.Features.Supported {
		return fmt.Errorf("%s: command duration limits is not supported", ctx.dev.Name)
	}
	return ctx.dev.WriteList(ctx.out)
}

// Run executes when the show-pages command is invoked
func (s *showPagesCmd) Run(ctx *context) error {
	if !ctx.dev.Features.Supported {
		return fmt.Errorf("%s: command duration limits is not supported", ctx.dev.Name)
	}
	return ctx.dev.WritePages(ctx.out, ctx.dev.SupportedPages(), s.Format())
}

// Run executes when the show-page command is invoked
func (s *showPageCmd) Run(ctx *context) error {
	k, err := supportedPage(ctx.dev, s.Page)
	if err != nil {
		return err
	}
	return ctx.dev.WritePages(ctx.out, []cdl.PageKind{k}, s.Format())
}

// Run executes when the save-page command is invoked
func (s *savePageCmd) Run(ctx *context) error {
	k, err := supportedPage(ctx.dev, s.Page)
	if err != nil {
		return err
	}
	path, err := ctx.dev.SavePage(k, s.Dir)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.out, "Saved page %s to file %s\n", k, path)
	return nil
}

// uploader is the part of a device the upload-page command uses.
type uploader interface {
	LoadPage(path string) (*cdl.Page, error)
	PrepareUpload(p *cdl.Page) error
	WritePage(p *cdl.Page) error
}

// Run executes when the upload-page command is invoked
func (u *uploadPageCmd) Run(ctx *context) error {
	if !ctx.dev.Features.Supported {
		return fmt.Errorf("%s: command duration limits is not supported", ctx.dev.Name)
	}
	return u.upload(ctx, ctx.dev, ctx.dev.Name, ctx.dev.Config().Raw)
}

func (u *uploadPageCmd) upload(ctx *context, dev uploader, name string, raw bool) error {
	p, err := dev.LoadPage(u.File)
	if err != nil {
		return err
	}

	fmt.Fprintf(ctx.out, "Uploading page %s:\n", p.Kind)
	if err := cdl.WriteShow(ctx.out, p, cdl.ShowOptions{Raw: raw}); err != nil {
		return err
	}
	if err := dev.PrepareUpload(p); err != nil {
		return err
	}

	if !u.Yes {
		ok, err := ctx.confirm.Ask(fmt.Sprintf("Write page %s to %s", p.Kind, name))
		if errors.Is(err, cmdutil.ErrNotInteractive) {
			return fmt.Errorf("upload of page %s not confirmed, use --yes", p.Kind)
		}
		if err != nil {
			return err
		}
		if !ok {
			ctx.log.Infof("Page %s not uploaded", p.Kind)
			return nil
		}
	}

	if err := dev.WritePage(p); err != nil {
		return fmt.Errorf("upload page %s failed: %w", p.Kind, err)
	}
	ctx.log.Infof("Page %s uploaded", p.Kind)
	return nil
}
