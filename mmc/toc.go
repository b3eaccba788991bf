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
	"github.com/cdimaged/cdimaged/disc"
	"github.com/cdimaged/cdimaged/sector"
)

// addressField renders lba as either a plain 4-byte LBA or an MSF
// triplet padded into 4 bytes (reserved, M, S, F), per MMC-3's address
// field encoding that every READ TOC / READ SUBCHANNEL format shares.
func addressField(lba int64, msf bool) [4]byte {
	var out [4]byte
	if msf {
		m, s, f := sector.LBAToMSF(lba)
		out[1], out[2], out[3] = m, s, f
	} else {
		putBE32(out[:], uint32(lba))
	}
	return out
}

// handleReadTOC implements READ TOC/PMA/ATIP (43h), per spec.md §4.G:
// format 0 returns track descriptors, format 1 returns session info,
// format 2 returns full TOC, format 4 returns an ATIP stub.
func handleReadTOC(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	msf := cdb[1]&0x02 != 0
	format := cdb[2] & 0x0F
	allocLen := int(be16(cdb[7:9]))

	d, err := dev.activeDisc()
	if err != nil {
		return failMediumError(dev)
	}
	toc := d.TOC()

	var buf []byte
	switch format {
	case 0:
		buf = buildTOCFormat0(toc, msf)
	case 1:
		buf = buildTOCFormat1(d, msf)
	case 2:
		buf = buildTOCFormat2(d, toc, msf)
	case 4:
		buf = buildATIPStub(d)
	default:
		return failIllegalField(dev)
	}

	n := clamp(clamp(len(buf), allocLen), len(out))
	copy(out[:n], buf[:n])
	return StatusGood, n
}

func buildTOCFormat0(toc disc.TOC, msf bool) []byte {
	body := make([]byte, 0, 8+8*(len(toc.Entries)+1))
	for _, e := range toc.Entries {
		addr := addressField(e.Start, msf)
		body = append(body, 0x00, controlADR(e.Control), byte(e.TrackNumber), 0x00,
			addr[0], addr[1], addr[2], addr[3])
	}
	// lead-out descriptor, track number 0xAA
	addr := addressField(toc.LeadOut, msf)
	body = append(body, 0x00, 0x10, 0xAA, 0x00, addr[0], addr[1], addr[2], addr[3])

	header := make([]byte, 4)
	putBE16(header[0:2], uint16(2+len(body)))
	header[2] = byte(toc.FirstTrack)
	header[3] = byte(toc.LastTrack)
	return append(header, body...)
}

func buildTOCFormat1(d *disc.Disc, msf bool) []byte {
	first := d.Sessions[0]
	last := d.Sessions[len(d.Sessions)-1]
	addr := addressField(first.Tracks[0].Start(), msf)

	header := make([]byte, 4)
	header[2] = 1
	header[3] = byte(len(d.Sessions))
	body := []byte{0x00, controlADR(first.Tracks[0].Flags), byte(last.Tracks[0].Number), 0x00,
		addr[0], addr[1], addr[2], addr[3]}
	putBE16(header[0:2], uint16(2+len(body)))
	return append(header, body...)
}

func buildTOCFormat2(d *disc.Disc, toc disc.TOC, msf bool) []byte {
	// Full TOC: one descriptor per track across every session, plus the
	// lead-out, session-number qualified.
	var body []byte
	for si, s := range d.Sessions {
		for _, t := range s.Tracks {
			addr := addressField(t.Start(), msf)
			body = append(body, byte(si+1), controlADR(t.Flags), 0x00, byte(t.Number),
				0x00, 0x00, 0x00, addr[0], addr[1], addr[2], addr[3])
		}
	}
	addr := addressField(toc.LeadOut, msf)
	body = append(body, byte(len(d.Sessions)), 0x10, 0x00, 0xA2,
		0x00, 0x00, 0x00, addr[0], addr[1], addr[2], addr[3])

	header := make([]byte, 4)
	putBE16(header[0:2], uint16(2+len(body)))
	header[2] = 1
	header[3] = byte(len(d.Sessions))
	return append(header, body...)
}

// buildATIPStub returns the minimal ATIP response spec.md §4.G calls a
// "stub": leadin start only, no real recordable-media data since the
// emulated medium is never actually writable.
func buildATIPStub(d *disc.Disc) []byte {
	addr := addressField(d.StartSector(), true)
	body := []byte{0x00, 0x00, 0x00, 0x00, addr[0], addr[1], addr[2], addr[3]}
	header := make([]byte, 4)
	putBE16(header[0:2], uint16(2+len(body)))
	return append(header, body...)
}

func controlADR(flags disc.TrackFlags) byte {
	// ADR=1 (Q encodes current position data) in the high nibble,
	// control bits from the track flags in the low nibble.
	return 0x10 | byte(flags)
}

// handleReadSubChannel implements READ SUBCHANNEL (42h): returns
// current position data (format 1) built from the addressed track's Q
// subchannel fields, per spec.md §4.A/§4.G.
func handleReadSubChannel(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	msf := cdb[1]&0x02 != 0
	allocLen := int(be16(cdb[7:9]))
	lba := dev.lastLBA

	t, err := dev.d.TrackOf(lba)
	if err != nil {
		return failLBAOutOfRange(dev)
	}
	indexNum, indexStart := t.IndexAt(lba)

	absAddr := addressField(lba, msf)
	relAddr := addressField(lba-indexStart, msf)

	body := []byte{
		0x00, 0x15, controlADR(t.Flags), byte(t.Number), byte(indexNum),
		absAddr[0], absAddr[1], absAddr[2], absAddr[3],
		relAddr[0], relAddr[1], relAddr[2], relAddr[3],
	}
	header := []byte{0x00, 0x00, 0x00, byte(len(body))}
	buf := append(header, body...)

	n := clamp(clamp(len(buf), allocLen), len(out))
	copy(out[:n], buf[:n])
	return StatusGood, n
}

// handleReadDiscInformation implements READ DISC INFORMATION (51h),
// per spec.md §4.J: reports a non-erasable disc summary describing the
// loaded (or synthetic recording) session layout, with status finalized
// for a loaded disc and incomplete while a recorder is open.
func handleReadDiscInformation(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	d, err := dev.activeDisc()
	if err != nil {
		return failMediumError(dev)
	}
	toc := d.TOC()

	status := byte(0x0E) // finalized, last session complete
	if dev.recorder != nil && !dev.recorder.Closed() {
		status = 0x09 // incomplete disc, incomplete last session
	}

	body := make([]byte, 32)
	putBE16(body[0:2], 30)
	body[2] = status
	body[3] = byte(toc.FirstTrack)
	body[4] = byte(len(d.Sessions))
	body[5] = byte(toc.LastTrack)
	body[6] = byte(len(d.Sessions))
	body[7] = 0x20 // unrestricted, not erasable

	n := clamp(len(body), len(out))
	copy(out[:n], body[:n])
	return StatusGood, n
}

// handleReadTrackInformation implements READ TRACK INFORMATION (52h),
// per spec.md §4.J: reports one track's mode, start address, and
// length.
func handleReadTrackInformation(dev *Device, cdb CDB, in []byte, out []byte) (Status, int) {
	addrType := cdb[1] & 0x03
	number := be32(cdb[2:6])

	d, err := dev.activeDisc()
	if err != nil {
		return failMediumError(dev)
	}

	var t *disc.Track
	for _, tr := range d.AllTracks() {
		switch addrType {
		case 1: // track number
			if uint32(tr.Number) == number {
				t = tr
			}
		default: // LBA
			if tr.Contains(int64(number)) {
				t = tr
			}
		}
		if t != nil {
			break
		}
	}
	if t == nil {
		return failIllegalField(dev)
	}

	body := make([]byte, 36)
	putBE16(body[0:2], 34)
	body[2] = byte(t.Number)
	body[3] = 1 // session number
	body[5] = trackDataMode(t.Mode)
	putBE32(body[8:12], uint32(t.Start()))
	putBE32(body[24:28], uint32(t.Length()))
	n := clamp(len(body), len(out))
	copy(out[:n], body[:n])
	return StatusGood, n
}

func trackDataMode(m sector.Mode) byte {
	switch m {
	case sector.ModeAudio:
		return 0x00
	case sector.Mode1:
		return 0x01
	default:
		return 0x02
	}
}
