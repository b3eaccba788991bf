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
	"errors"

	"github.com/cdimaged/cdimaged/disc"
	"github.com/cdimaged/cdimaged/sector"
)

// readUserData reads count sectors of plain user-data (the fixed-size
// payload READ(10)/READ(12) expose, as opposed to READ CD's field
// selector), per spec.md §4.G: "if any requested LBA is outside the
// track's range respond LBA OUT OF RANGE; partial reads are not
// allowed."
func readUserData(dev *Device, lba int64, count int, out []byte) (Status, int) {
	if count == 0 {
		return StatusGood, 0
	}

	sectorSize := 2048
	need := count * sectorSize
	if need > len(out) {
		return failIllegalField(dev)
	}

	for i := 0; i < count; i++ {
		sv, err := dev.d.SectorAt(lba + int64(i))
		if err != nil {
			return failLBAOutOfRange(dev)
		}
		data, err := sv.Synthesize(sector.FieldUserData, sector.SubchannelNone, sector.Options{})
		if err != nil {
			if errors.Is(err, sector.ErrIllegalField) {
				return failIllegalField(dev)
			}
			return failMediumError(dev)
		}
		copy(out[i*sectorSize:(i+1)*sectorSize], data)
	}
	dev.lastLBA = lba + int64(count) - 1
	return StatusGood, need
}

// handleRead10 implements READ(10) (28h).
func handleRead10(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	lba := int64(be32(cdb[2:6]))
	count := int(be16(cdb[7:9]))
	return readUserData(dev, lba, count, out)
}

// handleRead12 implements READ(12) (A8h).
func handleRead12(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	lba := int64(be32(cdb[2:6]))
	count := int(be32(cdb[6:10]))
	return readUserData(dev, lba, count, out)
}

// sectorTypeMatchesMode reports whether READ CD's 3-bit expected
// sector-type field is compatible with a track's actual mode, per
// spec.md §4.G ("reject Mode-2/F1 selection on an audio track").
func sectorTypeMatchesMode(sectorType byte, mode sector.Mode) bool {
	switch sectorType {
	case 0: // Any
		return true
	case 1:
		return mode == sector.ModeAudio
	case 2:
		return mode == sector.Mode1
	case 3:
		return mode == sector.Mode2Formless
	case 4:
		return mode == sector.Mode2Form1
	case 5:
		return mode == sector.Mode2Form2
	default:
		return false
	}
}

// readCDFields converts READ CD's field byte (byte 9) into a
// sector.Field bitmask, per spec.md §4.A's twelve canonical ranges.
func readCDFields(b byte) sector.Field {
	var f sector.Field
	if b&0x80 != 0 {
		f |= sector.FieldSync
	}
	if b&0x20 != 0 {
		f |= sector.FieldHeader
	}
	if b&0x40 != 0 {
		f |= sector.FieldSubHeader
	}
	if b&0x10 != 0 {
		f |= sector.FieldUserData
	}
	if b&0x08 != 0 {
		f |= sector.FieldEDC
	}
	if b&0x02 != 0 {
		f |= sector.FieldC2Error
	}
	return f
}

// readCDSubchannel converts READ CD's 3-bit subchannel selector (byte
// 10, bits 0-2) into a sector.Subchannel, per spec.md §4.A.
func readCDSubchannel(b byte) sector.Subchannel {
	switch b & 0x07 {
	case 1:
		return sector.SubchannelRawPW
	case 2:
		return sector.SubchannelQOnly
	default:
		return sector.SubchannelNone
	}
}

// handleReadCD implements READ CD (BEh), per spec.md §4.G: parses the
// sector-type, field selector, and subchannel selector, and rejects a
// sector-type/track-mode mismatch.
func handleReadCD(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	sectorType := (cdb[1] >> 2) & 0x07
	lba := int64(be32(cdb[2:6]))
	count := int(cdb[6])<<16 | int(cdb[7])<<8 | int(cdb[8])
	fields := readCDFields(cdb[9])
	sub := readCDSubchannel(cdb[10])

	if count == 0 {
		return StatusGood, 0
	}

	var written int
	for i := 0; i < count; i++ {
		sv, err := dev.d.SectorAt(lba + int64(i))
		if err != nil {
			return failLBAOutOfRange(dev)
		}
		if !sectorTypeMatchesMode(sectorType, sv.Mode()) {
			return failIllegalField(dev)
		}

		data, err := sv.Synthesize(fields, sub, sector.Options{})
		if err != nil {
			if errors.Is(err, sector.ErrIllegalField) {
				return failIllegalField(dev)
			}
			return failMediumError(dev)
		}
		if written+len(data) > len(out) {
			return failIllegalField(dev)
		}
		copy(out[written:], data)
		written += len(data)
	}
	dev.lastLBA = lba + int64(count) - 1
	return StatusGood, written
}

// readRangeWithinAudioTrack reports whether [begin, end] lies entirely
// within a single audio track, per spec.md §4.G's PLAY AUDIO contract
// ("fail with ILLEGAL REQUEST if the range crosses a non-audio track").
func readRangeWithinAudioTrack(d *disc.Disc, begin, end int64) bool {
	t, err := d.TrackOf(begin)
	if err != nil || t.Mode != sector.ModeAudio {
		return false
	}
	return t.Contains(end)
}
