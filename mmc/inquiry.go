// Copyright (c) 2025 Niema Moshiri and The Zaparoo Project.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of cdimaged.
//
// cdimaged is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// cdimaged is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with cdimaged.  If not, see <https://www.gnu.org/licenses/>.

package mmc

import "github.com/cdimaged/cdimaged/mmc/sense"

// padString copies s into b, space-padding (or truncating) to len(b),
// matching INQUIRY's fixed vendor/product/revision fields.
func padString(b []byte, s string) {
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
}

// handleTestUnitReady implements TEST UNIT READY (00h): GOOD if a
// medium is loaded (already guaranteed by Execute's precondition when
// the opcode requires media isn't the case here — TUR itself doesn't
// require media per spec.md §4.G, so it must check explicitly).
func handleTestUnitReady(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	if dev.d == nil {
		return failNotReady(dev)
	}
	return StatusGood, 0
}

func failNotReady(dev *Device) (Status, int) {
	dev.Sense.DeferSimple(sense.KeyNotReady, sense.ASCMediumNotPresent)
	return StatusCheckCondition, 0
}

// handleRequestSense implements REQUEST SENSE (03h): returns the
// latched sense condition in the fixed 18-byte format, per spec.md
// §4.E, and clears it.
func handleRequestSense(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	d := dev.Sense.TakePending()
	b := d.Bytes()
	n := clamp(len(b), len(out))
	copy(out[:n], b[:n])
	return StatusGood, n
}

// handleInquiry implements INQUIRY (12h), per spec.md §4.G: 96-byte
// standard response, peripheral qualifier 0, device type 0x05 (CD-ROM),
// RMB=1, version 0x00, response format 0x02.
func handleInquiry(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	evpd := cdb[1]&0x01 != 0
	pageCode := cdb[2]

	if evpd {
		return handleInquiryEVPD(dev, pageCode, out)
	}

	const stdLen = 96
	buf := make([]byte, stdLen)
	buf[0] = 0x05 // peripheral qualifier 0, device type 5 (CD-ROM)
	buf[1] = 0x80 // RMB=1 (removable)
	buf[2] = 0x00 // version
	buf[3] = 0x02 // response data format
	buf[4] = stdLen - 5 // additional length
	padString(buf[8:16], dev.Options.IDVendor)
	padString(buf[16:32], dev.Options.IDProduct)
	padString(buf[32:36], dev.Options.IDRevision)
	padString(buf[36:56], dev.Options.IDVendorSpecific)

	n := clamp(len(buf), len(out))
	copy(out[:n], buf[:n])
	return StatusGood, n
}

// handleInquiryEVPD implements the EVPD=1 vital product data pages
// spec.md §4.G names: 0x00 (supported pages list), 0x80 (serial
// number), 0x83 (device identification).
func handleInquiryEVPD(dev *Device, pageCode byte, out []byte) (Status, int) {
	var buf []byte
	switch pageCode {
	case 0x00:
		buf = []byte{0x05, 0x00, 0x00, 0x03, 0x00, 0x80, 0x83}
	case 0x80:
		serial := dev.Options.IDVendorSpecific
		body := []byte(serial)
		buf = append([]byte{0x05, 0x80, 0x00, byte(len(body))}, body...)
	case 0x83:
		ident := []byte(dev.Options.IDVendor + dev.Options.IDProduct)
		desc := append([]byte{0x02, 0x00, 0x00, byte(len(ident))}, ident...)
		buf = append([]byte{0x05, 0x83, byte(len(desc) >> 8), byte(len(desc))}, desc...)
	default:
		return failIllegalField(dev)
	}
	n := clamp(len(buf), len(out))
	copy(out[:n], buf[:n])
	return StatusGood, n
}
