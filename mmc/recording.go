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
	"github.com/cdimaged/cdimaged/mmc/sense"
	"github.com/cdimaged/cdimaged/record"
)

// handleSendCueSheet implements SEND CUE SHEET (5Dh), per spec.md §4.J:
// parses the data-out payload as a SAO cue sheet and installs a fresh
// Recorder tracking its sequential write state. Recorded sector bytes
// are discarded by default (record.DiscardWriter); an ImageWriter to
// actually persist them is a supervisor-level wiring concern, not a
// dispatcher one.
func handleSendCueSheet(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	sheet, err := record.ParseCueSheet(in)
	if err != nil {
		dev.Sense.DeferSimple(sense.KeyIllegalRequest, sense.ASCInvalidFieldInParameterList)
		return StatusCheckCondition, 0
	}
	dev.recorder = record.NewRecorder(sheet, nil)
	return StatusGood, 0
}

// handleWrite10 implements WRITE(10) (2Ah) against an active recording
// session: every requested sector is handed to the Recorder in order,
// advancing its next-writable-address, per spec.md §4.J. Without an
// active cue sheet, WRITE is illegal — this daemon never accepts writes
// against an ordinary read-only disc image.
func handleWrite10(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	if dev.recorder == nil {
		return failIllegalField(dev)
	}
	lba := int64(be32(cdb[2:6]))
	count := int(be16(cdb[7:9]))

	for i := 0; i < count; i++ {
		if err := dev.recorder.WriteSector(lba+int64(i), nil); err != nil {
			dev.Sense.DeferSimple(sense.KeyIllegalRequest, sense.ASCInvalidFieldInCDB)
			return StatusCheckCondition, 0
		}
	}
	return StatusGood, 0
}

// handleCloseTrackSession implements CLOSE TRACK/SESSION (5Bh): byte 2's
// low bits select closing the currently open track (1) or finalizing
// the whole session (2), per spec.md §4.J's close-track/close-session
// operations.
func handleCloseTrackSession(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	if dev.recorder == nil {
		return failIllegalField(dev)
	}
	switch cdb[2] & 0x07 {
	case 1:
		if err := dev.recorder.CloseTrack(); err != nil {
			return failIllegalField(dev)
		}
	case 2:
		if err := dev.recorder.CloseSession(); err != nil {
			return failIllegalField(dev)
		}
	default:
		return failIllegalField(dev)
	}
	return StatusGood, 0
}
