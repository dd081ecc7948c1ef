// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"io"
	"testing"

	"github.com/open-source-firmware/go-cdl/pkg/cdladm"
	"github.com/open-source-firmware/go-cdl/pkg/drive"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateFlags(t *testing.T) {
	testCases := []struct {
		name string
		f    cdladm.Features
		want string
	}{
		{"Unsupported", cdladm.Features{}, "-"},
		{"Disabled", cdladm.Features{Supported: true, SystemSupported: true}, "e"},
		{"Enabled", cdladm.Features{Supported: true, Enabled: true, SystemSupported: true}, "E"},
		{"Guideline", cdladm.Features{Supported: true, GuidelineSupported: true, SystemSupported: true}, "eG"},
		{"High priority", cdladm.Features{Supported: true, HighPriSupported: true, SystemSupported: true}, "eh"},
		{"High priority enabled", cdladm.Features{Supported: true, Enabled: true, HighPriSupported: true, HighPriEnabled: true, SystemSupported: true}, "EH"},
		{"No kernel support", cdladm.Features{Supported: true}, "e!"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stateFlags(&cdladm.Device{Features: tc.f}))
		})
	}
}

func TestScan(t *testing.T) {
	fs := afero.NewMemMapFs()
	for _, p := range []string{
		"/sys/class/block/sda/device",
		"/sys/class/block/sdb/device",
		"/sys/class/block/sdc/device",
		"/sys/class/block/nvme0n1/device",
		"/sys/class/block/loop0",
		"/sys/class/block/sda1",
	} {
		require.NoError(t, fs.MkdirAll(p, 0755))
	}
	for _, p := range []string{"/dev/sda", "/dev/sdc", "/dev/nvme0n1", "/dev/loop0", "/dev/sda1"} {
		require.NoError(t, afero.WriteFile(fs, p, nil, 0644))
	}

	log := logrus.New()
	log.SetOutput(io.Discard)

	var opened []string
	devs, err := scan(fs, "/sys/class/block", func(devpath string) (*cdladm.Device, error) {
		opened = append(opened, devpath)
		switch devpath {
		case "/dev/nvme0n1":
			return nil, drive.ErrDeviceNotSupported
		case "/dev/sdc":
			return nil, errors.New("device or resource busy")
		}
		return &cdladm.Device{Path: devpath}, nil
	}, log)
	require.NoError(t, err)

	assert.Equal(t, []string{"/dev/nvme0n1", "/dev/sda", "/dev/sdc"}, opened)
	require.Len(t, devs, 1)
	assert.Equal(t, "/dev/sda", devs[0].Path)

	_, err = scan(fs, "/sys/class/missing", nil, log)
	assert.Error(t, err)
}

func TestDeviceConfigShared(t *testing.T) {
	cfg := deviceConfig(true)
	assert.True(t, cfg.Shared)
	assert.True(t, cfg.ForceATA)
	assert.False(t, deviceConfig(false).ForceATA)
}
