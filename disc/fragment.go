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

package disc

import (
	"errors"
	"fmt"
	"io"
)

// ErrOutOfFragment is returned when a relative sector index falls outside
// a fragment's declared length.
var ErrOutOfFragment = errors.New("disc: sector outside fragment bounds")

// Fragment is a byte stream descriptor contributing sectors to a track,
// per spec.md §3. Disc parsers build tracks out of one or more fragments;
// the sector/disc layers only ever call ReadMain/ReadSub.
type Fragment interface {
	// Length returns the number of sectors this fragment contributes.
	Length() int64

	// ReadMain returns the raw main-channel bytes for the sector at
	// relative index idx (0-based within this fragment), along with
	// whether the returned bytes already include a sync+header(+subheader)
	// prefix (true for raw BINARY/AUDIO fragments storing full 2352/2352
	// byte units, false for fragments storing only user data).
	ReadMain(idx int64) (data []byte, hasSyncHeader bool, err error)

	// ReadSub returns the raw subchannel bytes for the sector at relative
	// index idx, or (nil, false, nil) if this fragment carries none.
	// isRawPW is true when the returned bytes are a full 96-byte
	// deinterleaved PW block; false means they are Q-only (16 bytes).
	ReadSub(idx int64) (data []byte, isRawPW bool, err error)
}

// NullFragment produces silence/zeros for Length sectors, per spec.md §3.
type NullFragment struct {
	length      int64
	mainSize    int
}

// NewNullFragment creates a fragment of zero-filled sectors. mainSize is
// the per-sector main-channel size the owning track expects back (e.g.
// 2048 for Mode-1, 2352 for audio).
func NewNullFragment(length int64, mainSize int) *NullFragment {
	return &NullFragment{length: length, mainSize: mainSize}
}

func (f *NullFragment) Length() int64 { return f.length }

func (f *NullFragment) ReadMain(idx int64) ([]byte, bool, error) {
	if idx < 0 || idx >= f.length {
		return nil, false, fmt.Errorf("null fragment: %w", ErrOutOfFragment)
	}
	return make([]byte, f.mainSize), false, nil
}

func (f *NullFragment) ReadSub(idx int64) ([]byte, bool, error) {
	if idx < 0 || idx >= f.length {
		return nil, false, fmt.Errorf("null fragment: %w", ErrOutOfFragment)
	}
	return nil, false, nil
}

// BinaryFragment reads sectors out of a backing file handle at a fixed
// per-sector stride, optionally with an interleaved or external
// subchannel stream, per spec.md §3's BINARY fragment kind.
//
// Invariant (spec.md §3): length*(mainSectorSize+subSectorSize) + offset
// must not exceed the underlying stream's size; callers (parsers) are
// responsible for validating this at load time.
type BinaryFragment struct {
	main   io.ReaderAt
	sub    io.ReaderAt // nil if no external subchannel stream
	offset int64       // byte offset of sector 0 within main
	subOffset int64    // byte offset of sector 0 within sub (if sub != nil)
	length int64

	mainSectorSize int // bytes stored per sector in main
	subSectorSize  int // bytes stored per sector in sub, 0 if none
	subIsRawPW     bool

	// hasSyncHeader is true when mainSectorSize indicates the stored
	// bytes already include sync+header(+subheader), i.e. a raw 2352 or
	// 2336/2352 dump rather than stripped user data.
	hasSyncHeader bool
}

// BinaryFragmentOptions configures a BinaryFragment at construction.
type BinaryFragmentOptions struct {
	Offset         int64
	MainSectorSize int
	HasSyncHeader  bool
	Sub            io.ReaderAt
	SubOffset      int64
	SubSectorSize  int
	SubIsRawPW     bool
}

// NewBinaryFragment constructs a BinaryFragment backed by main (and
// optionally sub) for length sectors.
func NewBinaryFragment(main io.ReaderAt, length int64, opts BinaryFragmentOptions) *BinaryFragment {
	return &BinaryFragment{
		main:           main,
		sub:            opts.Sub,
		offset:         opts.Offset,
		subOffset:      opts.SubOffset,
		length:         length,
		mainSectorSize: opts.MainSectorSize,
		subSectorSize:  opts.SubSectorSize,
		subIsRawPW:     opts.SubIsRawPW,
		hasSyncHeader:  opts.HasSyncHeader,
	}
}

func (f *BinaryFragment) Length() int64 { return f.length }

func (f *BinaryFragment) ReadMain(idx int64) ([]byte, bool, error) {
	if idx < 0 || idx >= f.length {
		return nil, false, fmt.Errorf("binary fragment: %w", ErrOutOfFragment)
	}
	buf := make([]byte, f.mainSectorSize)
	off := f.offset + idx*int64(f.mainSectorSize)
	n, err := f.main.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, false, fmt.Errorf("binary fragment: read main at %d: %w", off, err)
	}
	if n < len(buf) {
		// Truncated mini-image: return the short data rather than failing,
		// per spec.md §9's Open Question default.
		buf = buf[:n]
	}
	return buf, f.hasSyncHeader, nil
}

func (f *BinaryFragment) ReadSub(idx int64) ([]byte, bool, error) {
	if idx < 0 || idx >= f.length {
		return nil, false, fmt.Errorf("binary fragment: %w", ErrOutOfFragment)
	}
	if f.sub == nil || f.subSectorSize == 0 {
		return nil, false, nil
	}
	buf := make([]byte, f.subSectorSize)
	off := f.subOffset + idx*int64(f.subSectorSize)
	n, err := f.sub.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return nil, false, fmt.Errorf("binary fragment: read sub at %d: %w", off, err)
	}
	return buf[:n], f.subIsRawPW, nil
}

// AudioFragment is a BinaryFragment variant for CD-DA audio data, adding
// a sample-swap flag (big-endian source audio, e.g. some AIFF-derived
// rips, needs byte-swapping to little-endian PCM) and an optional decoder
// hook for compressed audio sources (FLAC/MP3 tracks referenced by a cue
// sheet), per spec.md §3's AUDIO fragment kind.
type AudioFragment struct {
	*BinaryFragment
	SwapSamples bool
	// Decode, if non-nil, turns a relative sector index into 2352 bytes
	// of raw 16-bit stereo little-endian PCM, bypassing the BinaryFragment
	// byte-offset arithmetic entirely (used for FLAC-backed CHD tracks).
	Decode func(idx int64) ([]byte, error)
}

func (f *AudioFragment) ReadMain(idx int64) ([]byte, bool, error) {
	if f.Decode != nil {
		data, err := f.Decode(idx)
		if err != nil {
			return nil, false, fmt.Errorf("audio fragment: decode: %w", err)
		}
		if f.SwapSamples {
			swapSamples(data)
		}
		return data, false, nil
	}
	data, hasSync, err := f.BinaryFragment.ReadMain(idx)
	if err != nil {
		return nil, false, err
	}
	if f.SwapSamples {
		swapSamples(data)
	}
	return data, hasSync, nil
}

func swapSamples(data []byte) {
	for i := 0; i+1 < len(data); i += 2 {
		data[i], data[i+1] = data[i+1], data[i]
	}
}
