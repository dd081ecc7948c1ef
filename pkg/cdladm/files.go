// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdladm

import (
	"fmt"
	"path/filepath"

	"github.com/open-source-firmware/go-cdl/pkg/cdl"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// PageFileName returns the name SavePage uses for kind.
func (d *Device) PageFileName(kind cdl.PageKind) string {
	return fmt.Sprintf("%s-cdl-%s%s", d.Name, kind, cdl.FileExt)
}

// SavePage writes the configuration text of page kind to a file in dir
// and returns its path.
func (d *Device) SavePage(kind cdl.PageKind, dir string) (string, error) {
	p, err := d.Page(kind)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, d.PageFileName(kind))
	d.log.Infof("Saving page %s to file %s", kind, path)

	if err := afero.WriteFile(d.fs, path, []byte(cdl.SerializeConfig(p)), 0644); err != nil {
		return "", fmt.Errorf("save page %s: %w", kind, err)
	}
	return path, nil
}

// LoadPage parses a page configuration file.
func (d *Device) LoadPage(path string) (*cdl.Page, error) {
	f, err := d.fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d.log.Infof("Parsing file %s", path)
	p, err := cdl.ParseConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// CheckPage validates p against the device limits and logs every finding.
func (d *Device) CheckPage(p *cdl.Page) cdl.Findings {
	fs := cdl.Validate(p, d.Limits)
	for _, f := range fs {
		l := d.log.WithFields(logrus.Fields{
			"page":       p.Kind.String(),
			"descriptor": f.Descriptor,
		})
		if f.Severity == cdl.SeverityError {
			l.Error(f.Message)
		} else {
			l.Warn(f.Message)
		}
	}
	return fs
}

// PrepareUpload checks that p can be written to the device: its page must
// be supported and it must pass validation, unless the device was opened
// with Force. Findings are logged.
func (d *Device) PrepareUpload(p *cdl.Page) error {
	if !d.PageSupported(p.Kind) {
		return notSupported(p.Kind)
	}
	fs := d.CheckPage(p)
	if err := fs.Err(); err != nil {
		if !d.cfg.Force {
			return fmt.Errorf("page %s: %w", p.Kind, err)
		}
		d.log.Warnf("Uploading page %s despite %d errors", p.Kind, len(fs.Errors()))
	}
	return nil
}

// UploadPage validates p and writes it to the device. Pages with errors
// are only written when the device was opened with Force.
func (d *Device) UploadPage(p *cdl.Page) error {
	if err := d.PrepareUpload(p); err != nil {
		return err
	}
	return d.WritePage(p)
}
