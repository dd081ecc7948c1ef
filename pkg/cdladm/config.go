// Copyright (c) 2021 by library authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cdladm

// Config holds the per-invocation settings of a Device.
type Config struct {
	// Verbose traces every command issued to the device.
	Verbose bool
	// Raw shows field values as stored in the page instead of times.
	Raw bool
	// Count shows only the number of active descriptors of each page.
	Count bool
	// ForceATA uses ATA passthrough for any SAT attached drive, not only
	// those handled by libata.
	ForceATA bool
	// SaveParameters sets the SP bit of MODE SELECT so that the device
	// keeps written pages across power cycles.
	SaveParameters bool
	// Force uploads pages that failed validation.
	Force bool
	// Shared opens the device without O_EXCL so that mounted disks can be
	// inspected.
	Shared bool
}
