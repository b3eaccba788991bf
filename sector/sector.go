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

// Package sector synthesizes the on-wire byte layout of a CD sector
// (sync, header, subheader, user data, EDC/ECC, subchannel) from the
// bytes a disc image actually stores, in whatever combination a READ CD
// field selector asks for.
package sector

import (
	"errors"
	"fmt"
)

// Mode identifies the physical layout of a sector's user data.
type Mode int

// Sector modes, per MMC-3 and the Yellow/Red Book layouts.
const (
	ModeAudio Mode = iota
	Mode0          // blank/reserved sector
	Mode1
	Mode2Formless
	Mode2Form1
	Mode2Form2
	Mode2Mixed // form unknown until the subheader is inspected
)

// String implements fmt.Stringer for diagnostic output.
func (m Mode) String() string {
	switch m {
	case ModeAudio:
		return "Audio"
	case Mode0:
		return "Mode0"
	case Mode1:
		return "Mode1"
	case Mode2Formless:
		return "Mode2Formless"
	case Mode2Form1:
		return "Mode2Form1"
	case Mode2Form2:
		return "Mode2Form2"
	case Mode2Mixed:
		return "Mode2Mixed"
	default:
		return "Unknown"
	}
}

// HeaderModeByte returns the mode byte that belongs in the sector HEADER field.
func (m Mode) HeaderModeByte() byte {
	switch m {
	case Mode1:
		return 0x01
	case Mode2Formless, Mode2Form1, Mode2Form2, Mode2Mixed:
		return 0x02
	default:
		return 0x00
	}
}

// UserDataSize returns the number of user-data bytes carried by a sector
// of this mode, per spec.md §4.A.
func (m Mode) UserDataSize() int {
	switch m {
	case Mode1, Mode2Form1:
		return 2048
	case Mode2Form2:
		return 2324
	case Mode2Formless, Mode2Mixed:
		return 2336
	case ModeAudio:
		return 2352
	default:
		return 2048
	}
}

// eccSize returns the number of EDC/ECC bytes a sector of this mode
// contributes, per spec.md §4.A's canonical-length invariant: SYNC +
// HEADER + SUBHEADER (Mode-2 only) + USER-DATA + EDC/ECC must always
// total 2352 bytes. Mode-1 has an 8-byte reserved gap between EDC and
// the P/Q parity; Mode-2/Form-1 has none. Mode-2/Form-2 carries only
// the 4-byte EDC field and no parity at all.
func (m Mode) eccSize() int {
	switch m {
	case Mode1:
		return EDCSize + 8 + PParitySize + QParitySize // 288
	case Mode2Form1:
		return EDCSize + PParitySize + QParitySize // 280
	case Mode2Form2:
		return EDCSize // 4
	default:
		return 0
	}
}

// Field is a bit in the READ CD field selector, spec.md §4.A.
type Field uint16

// Field selector bits. Order matters for canonical concatenation.
const (
	FieldSync Field = 1 << iota
	FieldHeader
	FieldSubHeader
	FieldUserData
	FieldEDC
	FieldC2Error
	FieldBlockError
)

// AllFields requests every range a sector of the given mode can produce
// within its 2352 bytes: SUBHEADER only for Mode-2 Form-1/Form-2 (the
// formless and mixed layouts carry it inside their 2336-byte user data),
// and USER-DATA alone for audio.
func AllFields(mode Mode) Field {
	switch mode {
	case ModeAudio:
		return FieldUserData
	case Mode2Form1, Mode2Form2:
		return FieldSync | FieldHeader | FieldSubHeader | FieldUserData | FieldEDC
	default:
		return FieldSync | FieldHeader | FieldUserData | FieldEDC
	}
}

// Subchannel selects which subchannel representation READ CD should append.
type Subchannel int

const (
	SubchannelNone Subchannel = iota
	SubchannelRawPW
	SubchannelQOnly
)

// Sizes of the fixed-length ranges, per spec.md §4.A.
const (
	SyncSize      = 12
	HeaderSize    = 4
	SubHeaderSize = 8
	EDCSize       = 4
	PParitySize   = 172
	QParitySize   = 104
	SubchannelSize = 96
	QOnlySize      = 16
)

// syncPattern is the fixed 12-byte CD sync pattern: 00 FF*10 00.
var syncPattern = func() [SyncSize]byte {
	var p [SyncSize]byte
	p[0] = 0x00
	for i := 1; i < SyncSize-1; i++ {
		p[i] = 0xFF
	}
	p[SyncSize-1] = 0x00
	return p
}()

// ErrIllegalField is returned when the requested selector conflicts with
// the sector's mode (spec.md §4.A error case).
var ErrIllegalField = errors.New("sector: illegal field for mode")

// TrackControl is the 4-bit SCSI/Q-subchannel control nibble for a track.
type TrackControl byte

// Control nibble bits, Red Book / MMC-3.
const (
	ControlPreEmphasis    TrackControl = 1 << 0
	ControlCopyPermitted  TrackControl = 1 << 1
	ControlDataTrack      TrackControl = 1 << 2
	ControlFourChannel    TrackControl = 1 << 3
)

// Context carries the per-track addressing and subheader information
// needed to synthesize a sector's HEADER, SUBHEADER and subchannel Q
// fields. Disc implementations populate one of these per sector.
type Context struct {
	TrackNumber   int          // 1-99, or 0xAA for lead-out
	IndexNumber   int          // 0 = pregap, 1 = track start, ...
	Control       TrackControl
	AbsoluteLBA   int64 // disc-absolute LBA of the sector being read
	RelativeLBA   int64 // LBA relative to the start of the current index
	SubHeader     [SubHeaderSize]byte // present only for Mode-2; zero value if unknown
	HasSubHeader  bool
}

// Options tunes synthesis behavior that spec.md leaves as policy knobs.
type Options struct {
	// RegenerateEDC computes the real Mode-1 EDC checksum instead of
	// returning zeros; the P/Q parity bytes stay zero either way. Off by
	// default per spec.md §9's Open Question.
	RegenerateEDC bool
}

// Input is the raw material a Sector synthesizes its response from: the
// bytes a fragment actually stores for this LBA, already extracted to
// the declared per-sector size by the disc/fragment layer.
type Input struct {
	Mode Mode
	// Main holds whatever the fragment stores for the main channel at
	// this LBA: may be empty (silence/NULL fragment), may already
	// include sync+header+subheader (raw BINARY fragments), or may be
	// exactly UserDataSize() bytes (stripped fragments).
	Main []byte
	// MainHasSyncHeader is true when Main already begins with a 16-byte
	// (Mode-1) or 24-byte (Mode-2) sync+header+subheader prefix.
	MainHasSyncHeader bool
	// Sub holds the fragment's stored subchannel bytes for this LBA, or
	// nil if the fragment carries none (Q must then be synthesized).
	Sub []byte
	// SubIsRawPW is true when Sub is already a full 96-byte deinterleaved
	// PW block; false means Sub (if non-nil) is Q-only (16 bytes).
	SubIsRawPW bool
}

// Synthesize builds the byte sequence READ CD should return for one
// sector, concatenating the requested Field ranges in canonical order
// (SYNC, HEADER, SUBHEADER, USER-DATA, EDC/ECC, C2, BLOCK-ERROR) followed
// by the requested Subchannel bytes, per spec.md §4.A.
func Synthesize(in Input, ctx Context, fields Field, sub Subchannel, opts Options) ([]byte, error) {
	if err := validate(in.Mode, fields); err != nil {
		return nil, err
	}

	var out []byte

	if fields&FieldSync != 0 {
		out = append(out, syncPattern[:]...)
	}
	if fields&FieldHeader != 0 {
		out = append(out, header(ctx.AbsoluteLBA, in.Mode)...)
	}
	if fields&FieldSubHeader != 0 {
		out = append(out, subHeader(in, ctx)...)
	}
	if fields&FieldUserData != 0 {
		out = append(out, userData(in)...)
	}
	if fields&FieldEDC != 0 {
		out = append(out, edcECC(in, ctx, opts)...)
	}
	if fields&FieldC2Error != 0 {
		out = append(out, make([]byte, 294)...) // C2 error pointers, always clean
	}
	if fields&FieldBlockError != 0 {
		out = append(out, 0x00) // block error byte, always clean
	}

	switch sub {
	case SubchannelRawPW:
		out = append(out, subchannelPW(in, ctx)...)
	case SubchannelQOnly:
		out = append(out, subchannelQ(in, ctx)...)
	case SubchannelNone:
	}

	return out, nil
}

// validate rejects field/mode combinations the real hardware would reject.
func validate(mode Mode, fields Field) error {
	if fields&FieldSubHeader != 0 {
		switch mode {
		case Mode2Formless, Mode2Form1, Mode2Form2, Mode2Mixed:
			// ok
		default:
			return fmt.Errorf("%w: SUBHEADER requested for %s track", ErrIllegalField, mode)
		}
	}
	if mode == ModeAudio && fields&(FieldSync|FieldHeader|FieldSubHeader) != 0 {
		return fmt.Errorf("%w: SYNC/HEADER/SUBHEADER requested for audio track", ErrIllegalField)
	}
	return nil
}

// header builds the 4-byte HEADER field: MSF(LBA+150) + mode byte.
func header(lba int64, mode Mode) []byte {
	m, s, f := LBAToMSF(lba)
	return []byte{m, s, f, mode.HeaderModeByte()}
}

// defaultForm1SubHeader is used when a Mode-2 fragment stores no subheader.
var defaultForm1SubHeader = [SubHeaderSize]byte{0, 0, 0x08, 0, 0, 0, 0x08, 0}

func subHeader(in Input, ctx Context) []byte {
	if ctx.HasSubHeader {
		return ctx.SubHeader[:]
	}
	if in.MainHasSyncHeader && len(in.Main) >= 24 {
		var sh [SubHeaderSize]byte
		copy(sh[:], in.Main[16:24])
		return sh[:]
	}
	return defaultForm1SubHeader[:]
}

func userData(in Input) []byte {
	size := in.Mode.UserDataSize()
	data := in.Main
	if in.MainHasSyncHeader {
		offset := 16
		if in.Mode != Mode1 {
			offset = 24
		}
		if len(data) > offset {
			data = data[offset:]
		} else {
			data = nil
		}
	}
	out := make([]byte, size)
	copy(out, data)
	return out
}

// edcECC returns the EDC/ECC range for in.Mode, sized so the sum of
// every requested field matches the 2352-byte physical sector exactly
// (spec.md §4.A). Only Mode-1 regeneration is implemented; every other
// mode returns zeros of the correct length for its ECC format.
func edcECC(in Input, ctx Context, opts Options) []byte {
	if opts.RegenerateEDC && in.Mode == Mode1 {
		return regenerateMode1ECC(userData(in), ctx.AbsoluteLBA)
	}
	return make([]byte, in.Mode.eccSize())
}

// subchannelPW returns a 96-byte deinterleaved PW block.
func subchannelPW(in Input, ctx Context) []byte {
	if in.SubIsRawPW && len(in.Sub) >= SubchannelSize {
		out := make([]byte, SubchannelSize)
		copy(out, in.Sub[:SubchannelSize])
		return out
	}
	var out [SubchannelSize]byte
	q := synthesizeQ(in, ctx)
	copy(out[12:12+QOnlySize], q[:])
	return out[:]
}

// subchannelQ returns just the 16-byte Q channel, placed alone (some hosts
// request Q-only via the subchannel selector rather than the full PW block).
func subchannelQ(in Input, ctx Context) []byte {
	if !in.SubIsRawPW && len(in.Sub) >= QOnlySize {
		out := make([]byte, QOnlySize)
		copy(out, in.Sub[:QOnlySize])
		return out
	}
	q := synthesizeQ(in, ctx)
	return q[:]
}

// synthesizeQ builds the Q subchannel from track TOC information, per
// spec.md §4.A: adr=1, control from track flags, track/index/minsec,
// CRC-16 over the first 10 bytes.
func synthesizeQ(in Input, ctx Context) [QOnlySize]byte {
	var q [QOnlySize]byte
	q[0] = byte(ctx.Control)<<4 | 0x01 // control nibble | ADR=1

	q[1] = bcd(byte(ctx.TrackNumber))
	q[2] = bcd(byte(ctx.IndexNumber))

	rm, rs, rf := LBAToMSF(ctx.RelativeLBA)
	q[3], q[4], q[5] = bcd(rm), bcd(rs), bcd(rf)
	q[6] = 0 // zero byte

	am, as, af := LBAToMSF(ctx.AbsoluteLBA)
	q[7], q[8], q[9] = bcd(am), bcd(as), bcd(af)

	crc := crc16CCITT(q[0:10])
	q[10] = byte(crc >> 8)
	q[11] = byte(crc)
	// q[12:16] CRC pad / reserved, left zero.
	_ = in
	return q
}

func bcd(v byte) byte {
	return (v/10)<<4 | (v % 10)
}

// LBAToMSF converts a disc-absolute LBA to minutes/seconds/frames, adding
// the 150-sector lead-in offset so that LBA 0 reports as 00:02:00.
func LBAToMSF(lba int64) (m, s, f byte) {
	total := lba + 150
	if total < 0 {
		total = 0
	}
	m = byte(total / (60 * 75))
	s = byte((total / 75) % 60)
	f = byte(total % 75)
	return
}

// MSFToLBA is the inverse of LBAToMSF.
func MSFToLBA(m, s, f byte) int64 {
	return (int64(m)*60+int64(s))*75 + int64(f) - 150
}

// crc16CCITT computes the MMC subchannel Q CRC: CCITT polynomial 0x1021,
// initial value 0, no reflection, result complemented.
func crc16CCITT(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return ^crc
}
