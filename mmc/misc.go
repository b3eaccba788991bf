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

import "github.com/cdimaged/cdimaged/mmc/modepage"

// handleStartStopUnit implements START STOP UNIT (1Bh), per spec.md
// §4.G: LoEj=1/Start=0 ejects; LoEj=1/Start=1 loads if a disc is
// already attached to the device (image loading itself goes through
// the supervisor's Load, which is external to the SCSI command path);
// otherwise it accepts the request without changing any state.
func handleStartStopUnit(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	loej := cdb[4]&0x02 != 0
	start := cdb[4]&0x01 != 0

	switch {
	case loej && !start:
		if dev.locked {
			return failIllegalField(dev)
		}
		dev.d = nil
		dev.Features.SetProfile(0)
		return StatusGood, 0
	case loej && start:
		return StatusGood, 0
	default:
		// Power condition field (bits 4-7) selects an idle/standby/sleep
		// transition; it is ignored, since the emulated drive has no real
		// power states to enter.
		return StatusGood, 0
	}
}

// handlePreventAllow implements PREVENT/ALLOW MEDIUM REMOVAL (1Eh).
func handlePreventAllow(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	dev.locked = cdb[4]&0x01 != 0
	return StatusGood, 0
}

// handleSetCDSpeed implements SET CD SPEED (BBh): accepts any non-zero
// KB/s value and stores it in the capabilities page's current-speed
// field, per spec.md §4.G.
func handleSetCDSpeed(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	speed := be16(cdb[2:4])
	if speed == 0xFFFF {
		speed = 706 // "as fast as possible"
	}
	dev.speedKB = speed

	cur, err := dev.Pages.Sense(modepage.Capabilities, modepage.PCCurrent)
	if err == nil && len(cur) >= 16 {
		putBE16(cur[14:16], speed)
		_ = dev.Pages.Select(modepage.Capabilities, cur)
	}
	return StatusGood, 0
}

// handleReportKey implements REPORT KEY (A4h), per spec.md §4.G:
// returns a fixed agreement sufficient to pass a CSS probe without
// providing real keys.
func handleReportKey(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	agreement := make([]byte, 8)
	agreement[1] = 6 // data length
	n := clamp(len(agreement), len(out))
	copy(out[:n], agreement[:n])
	return StatusGood, n
}

// handleSendKey implements SEND KEY (A3h): accepted unconditionally,
// per spec.md §4.G's CSS-probe note.
func handleSendKey(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	return StatusGood, 0
}

// handleMechanismStatus implements MECHANISM STATUS (BDh): reports a
// single-slot changer with no changer mechanism, current slot 0, and
// the audio engine's play state.
func handleMechanismStatus(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	state, lba := dev.Audio.Status()
	body := make([]byte, 8)
	body[0] = audioStateByte(state) >> 4
	body[1] = byte(lba >> 16)
	body[2] = byte(lba >> 8)
	body[3] = byte(lba)
	body[5] = 1 // slots available

	n := clamp(len(body), len(out))
	copy(out[:n], body[:n])
	return StatusGood, n
}

// handleReadDVDStructure implements READ DVD STRUCTURE (ADh): returns a
// minimal physical format structure for format 0x00 and an empty body
// otherwise, enough to satisfy a probe without claiming DVD-Video
// content protection.
func handleReadDVDStructure(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	format := cdb[7]
	if format != 0x00 {
		header := make([]byte, 4)
		n := clamp(len(header), len(out))
		copy(out[:n], header[:n])
		return StatusGood, n
	}

	body := make([]byte, 4+2048)
	putBE16(body[0:2], uint16(len(body)-2))
	if dev.d != nil {
		body[4] = 0x01 // book type: DVD-ROM, part version 1
		putBE32(body[9:13], uint32(dev.d.LastLBA()))
	}
	n := clamp(len(body), len(out))
	copy(out[:n], body[:n])
	return StatusGood, n
}
