// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/open-source-firmware/go-cdl/pkg/cdl"
	"github.com/open-source-firmware/go-cdl/pkg/cmdutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	page       *cdl.Page
	prepareErr error
	written    []*cdl.Page
}

func (f *fakeUploader) LoadPage(path string) (*cdl.Page, error) {
	return f.page, nil
}

func (f *fakeUploader) PrepareUpload(p *cdl.Page) error {
	return f.prepareErr
}

func (f *fakeUploader) WritePage(p *cdl.Page) error {
	f.written = append(f.written, p)
	return nil
}

func uploadContext(out *bytes.Buffer, answer string, interactive bool) *context {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &context{
		log:     log,
		out:     out,
		confirm: cmdutil.NewConfirmOn(strings.NewReader(answer), out, interactive),
	}
}

func t2aPage() *cdl.Page {
	p := cdl.NewPage(cdl.PageT2A)
	p.PerfVsDurationGuideline = 0x4
	p.Descriptors[0] = cdl.Descriptor{Unit: cdl.T2Unit10ms, MaxActiveTime: 200}
	return p
}

const prompt = "Write page T2A to sda? [y/N]: "

func TestUploadShowsPageBeforePrompt(t *testing.T) {
	var out bytes.Buffer
	f := &fakeUploader{page: t2aPage()}
	cmd := &uploadPageCmd{File: "sda-cdl-T2A.cdl"}

	require.NoError(t, cmd.upload(uploadContext(&out, "y\n", true), f, "sda", false))
	assert.Len(t, f.written, 1)

	s := out.String()
	show := strings.Index(s, "Uploading page T2A:\n")
	desc := strings.Index(s, "Descriptor 1")
	ask := strings.Index(s, prompt)
	require.True(t, show >= 0 && desc >= 0 && ask >= 0, s)
	assert.Less(t, show, ask)
	assert.Less(t, desc, ask)
	assert.True(t, strings.HasSuffix(s, prompt), s)
}

func TestUploadConfirmation(t *testing.T) {
	testCases := []struct {
		name        string
		yes         bool
		answer      string
		interactive bool
		prepareErr  error
		wantErr     bool
		written     int
		prompted    bool
	}{
		{"Confirmed", false, "y\n", true, nil, false, 1, true},
		{"Declined", false, "n\n", true, nil, false, 0, true},
		{"Flag", true, "", false, nil, false, 1, false},
		{"Not a terminal", false, "y\n", false, nil, true, 0, false},
		{"Invalid page", false, "y\n", true, cdl.ErrValidation, true, 0, false},
		{"Invalid page with flag", true, "", false, cdl.ErrValidation, true, 0, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			f := &fakeUploader{page: t2aPage(), prepareErr: tc.prepareErr}
			cmd := &uploadPageCmd{File: "sda-cdl-T2A.cdl", Yes: tc.yes}

			err := cmd.upload(uploadContext(&out, tc.answer, tc.interactive), f, "sda", false)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tc.prepareErr != nil {
				assert.True(t, errors.Is(err, tc.prepareErr), "got %v", err)
			}
			assert.Len(t, f.written, tc.written)
			assert.Equal(t, tc.prompted, strings.Contains(out.String(), prompt))
			assert.Contains(t, out.String(), "Uploading page T2A:\n")
		})
	}
}
