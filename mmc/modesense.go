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

import (
	"github.com/cdimaged/cdimaged/mmc/modepage"
	"github.com/cdimaged/cdimaged/mmc/sense"
)

// mediumTypeByte returns MODE SENSE's medium type byte: 0x00 for CD,
// 0x01 for DVD, per spec.md §4.G.
func (dev *Device) mediumTypeByte() byte {
	if dev.Medium == modepage.MediumKindDVD {
		return 0x01
	}
	return 0x00
}

// collectPages gathers the requested page codes in ascending order, per
// spec.md §4.D ("MODE SENSE iterates requested pages in ascending code
// order"). pageCode 0x3F means "all pages".
func (dev *Device) collectPages(pageCode byte) []modepage.Code {
	if pageCode != 0x3F {
		return []modepage.Code{modepage.Code(pageCode)}
	}
	return dev.Pages.Codes()
}

// handleModeSense6 implements MODE SENSE(6) (1Ah).
func handleModeSense6(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	pc := modepage.PC((cdb[2] >> 6) & 0x03)
	pageCode := cdb[2] & 0x3F
	allocLen := int(cdb[4])

	body, err := dev.buildModePages(pageCode, pc)
	if err != nil {
		return failIllegalField(dev)
	}

	header := make([]byte, 4)
	header[0] = byte(3 + len(body))
	header[1] = dev.mediumTypeByte()
	buf := append(header, body...)

	n := clamp(clamp(len(buf), allocLen), len(out))
	copy(out[:n], buf[:n])
	return StatusGood, n
}

// handleModeSense10 implements MODE SENSE(10) (5Ah).
func handleModeSense10(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	pc := modepage.PC((cdb[2] >> 6) & 0x03)
	pageCode := cdb[2] & 0x3F
	allocLen := int(be16(cdb[7:9]))

	body, err := dev.buildModePages(pageCode, pc)
	if err != nil {
		return failIllegalField(dev)
	}

	header := make([]byte, 8)
	putBE16(header[0:2], uint16(6+len(body)))
	header[2] = dev.mediumTypeByte()
	buf := append(header, body...)

	n := clamp(clamp(len(buf), allocLen), len(out))
	copy(out[:n], buf[:n])
	return StatusGood, n
}

func (dev *Device) buildModePages(pageCode byte, pc modepage.PC) ([]byte, error) {
	var body []byte
	for _, code := range dev.collectPages(pageCode) {
		b, err := dev.Pages.Sense(code, pc)
		if err != nil {
			return nil, err
		}
		body = append(body, b...)
	}
	return body, nil
}

// handleModeSelect6 implements MODE SELECT(6) (15h).
func handleModeSelect6(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	if len(in) < 4 {
		return failIllegalField(dev)
	}
	blockDescLen := int(in[3])
	return dev.applyModeSelect(in[4+blockDescLen:])
}

// handleModeSelect10 implements MODE SELECT(10) (55h).
func handleModeSelect10(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	if len(in) < 8 {
		return failIllegalField(dev)
	}
	blockDescLen := int(be16(in[6:8]))
	return dev.applyModeSelect(in[8+blockDescLen:])
}

// applyModeSelect walks the concatenated page parameter list a MODE
// SELECT request carries, per spec.md §4.D: rejects any page whose
// declared code/length doesn't match the stored page, then lets the
// store apply the mask-gated merge and validator.
func (dev *Device) applyModeSelect(pages []byte) (Status, int) {
	for len(pages) >= 2 {
		code := modepage.Code(pages[0] & 0x3F)
		length := int(pages[1])
		if len(pages) < 2+length {
			return failIllegalField(dev)
		}
		proposed := pages[0 : 2+length]
		if err := dev.Pages.Select(code, proposed); err != nil {
			dev.Sense.DeferSimple(sense.KeyIllegalRequest, sense.ASCInvalidFieldInParameterList)
			return StatusCheckCondition, 0
		}
		pages = pages[2+length:]
	}
	return StatusGood, 0
}
