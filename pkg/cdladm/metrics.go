// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdladm

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/open-source-firmware/go-cdl/pkg/cdl"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

type metricCollector struct {
	m []prometheus.Metric
}

func (mc *metricCollector) Collect(c chan<- prometheus.Metric) {
	for _, m := range mc.m {
		c <- m
	}
}

func (mc *metricCollector) Describe(c chan<- *prometheus.Desc) {
}

var (
	mDriveInfo = prometheus.NewDesc(
		"cdl_drive_info",
		"Info metric regarding the detected drives",
		[]string{"device", "vendor", "model", "serial", "firmware", "interface"}, nil,
	)
	mCDLSupported = prometheus.NewDesc(
		"cdl_supported",
		"Boolean describing whether a drive supports command duration limits",
		[]string{"device"}, nil,
	)
	mCDLEnabled = prometheus.NewDesc(
		"cdl_enabled",
		"Boolean describing whether command duration limits are enabled for the drive",
		[]string{"device"}, nil,
	)
	mPageCommands = prometheus.NewDesc(
		"cdl_page_commands",
		"Number of commands whose limits are defined by the page",
		[]string{"device", "page"}, nil,
	)
	mActiveDescriptors = prometheus.NewDesc(
		"cdl_page_active_descriptors",
		"Number of descriptors of the page defining at least one limit",
		[]string{"device", "page"}, nil,
	)
	mPerfVsDuration = prometheus.NewDesc(
		"cdl_perf_vs_duration_guideline_ratio",
		"Allowed performance degradation when meeting duration guidelines",
		[]string{"device"}, nil,
	)
	mLimit = prometheus.NewDesc(
		"cdl_descriptor_limit_seconds",
		"Time limit of a descriptor, only reported for limits that are set",
		[]string{"device", "page", "descriptor", "limit"}, nil,
	)
	mPolicy = prometheus.NewDesc(
		"cdl_descriptor_policy",
		"Policy code applied when a descriptor limit is exceeded",
		[]string{"device", "page", "descriptor", "limit"}, nil,
	)
)

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func limitLabel(l cdl.Limit) string {
	return strings.ReplaceAll(l.String(), " ", "_")
}

func (mc *metricCollector) add(desc *prometheus.Desc, v float64, labels ...string) {
	mc.m = append(mc.m, prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, labels...))
}

func (mc *metricCollector) addDevice(d *Device) error {
	id := d.Identity
	mc.add(mDriveInfo, 1, d.Path, id.Vendor, id.Model, id.SerialNumber, id.Firmware, d.Interface.String())
	mc.add(mCDLSupported, boolValue(d.Features.Supported), d.Path)

	// This is how far we can make it without CDL support
	if !d.Features.Supported {
		return nil
	}
	mc.add(mCDLEnabled, boolValue(d.Features.Enabled), d.Path)

	for _, k := range d.SupportedPages() {
		p, err := d.Page(k)
		if err != nil {
			return err
		}
		page := k.String()
		mc.add(mPageCommands, float64(len(d.CommandsFor(k))), d.Path, page)
		mc.add(mActiveDescriptors, float64(cdl.ActiveDescriptors(p)), d.Path, page)
		if k == cdl.PageT2A {
			pct, err := strconv.ParseFloat(cdl.PerfVsDurationGuidelinePercent(p.PerfVsDurationGuideline), 64)
			if err == nil {
				mc.add(mPerfVsDuration, pct/100, d.Path)
			}
		}

		for i := range p.Descriptors {
			desc := strconv.Itoa(i + 1)
			for _, l := range p.Limits() {
				ns := p.Nanoseconds(i, l)
				if ns == 0 {
					continue
				}
				mc.add(mLimit, float64(ns)/1e9, d.Path, page, desc, limitLabel(l))
				if k.IsT2() {
					mc.add(mPolicy, float64(p.Descriptors[i].Policy(l)), d.Path, page, desc, limitLabel(l))
				}
			}
		}
	}
	return nil
}

// WriteMetrics writes the CDL state of every device in the Prometheus text
// exposition format.
func WriteMetrics(w io.Writer, devs ...*Device) error {
	mc := &metricCollector{}
	for _, d := range devs {
		if err := mc.addDevice(d); err != nil {
			return fmt.Errorf("%s: %w", d.Name, err)
		}
	}

	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(mc)

	mfs, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to serialize metrics: %v", err)
		}
	}
	return nil
}
