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

	"github.com/cdimaged/cdimaged/sector"
)

// ErrNoSector is returned when an LBA falls outside every track/fragment
// of a track or disc, per spec.md §4.B.
var ErrNoSector = errors.New("disc: no sector at address")

// IndexPoint is one index mark within a track. Index 0 is the pregap
// start, index 1 is the track start proper, per spec.md §3.
type IndexPoint struct {
	Number int
	LBA    int64 // disc-absolute
}

// TrackFlags mirrors sector.TrackControl but named for the track-model
// layer's public API.
type TrackFlags = sector.TrackControl

// Track flag bit aliases, re-exported for callers that don't need the
// sector package directly.
const (
	FlagPreEmphasis   = sector.ControlPreEmphasis
	FlagCopyPermitted = sector.ControlCopyPermitted
	FlagDataTrack     = sector.ControlDataTrack
	FlagFourChannel   = sector.ControlFourChannel
)

// Track is an ordered, non-empty sequence of fragments sharing a mode,
// per spec.md §3.
type Track struct {
	Number    int
	Mode      sector.Mode
	Flags     TrackFlags
	ISRC      string
	Indices   []IndexPoint
	Fragments []Fragment

	// start is the absolute LBA this track begins at, assigned by the
	// owning Session/Disc when the layout is built.
	start int64
	// length is the sum of all fragment lengths, cached at build time.
	length int64
}

// NewTrack constructs a track from its fragments, computing length as
// the sum of fragment lengths (spec.md §3's Track invariant).
func NewTrack(number int, mode sector.Mode, flags TrackFlags, fragments []Fragment) (*Track, error) {
	if len(fragments) == 0 {
		return nil, fmt.Errorf("disc: track %d has no fragments", number)
	}
	var length int64
	for _, f := range fragments {
		length += f.Length()
	}
	return &Track{
		Number:    number,
		Mode:      mode,
		Flags:     flags,
		Fragments: fragments,
		length:    length,
	}, nil
}

// Start returns the track's absolute start LBA.
func (t *Track) Start() int64 { return t.start }

// Length returns the track's total length in sectors.
func (t *Track) Length() int64 { return t.length }

// End returns the first LBA past the end of this track.
func (t *Track) End() int64 { return t.start + t.length }

// Contains reports whether lba falls within this track.
func (t *Track) Contains(lba int64) bool {
	return lba >= t.start && lba < t.End()
}

// fragmentAt locates the fragment and relative sector index covering a
// track-relative sector offset.
func (t *Track) fragmentAt(relative int64) (Fragment, int64, error) {
	if relative < 0 {
		return nil, 0, fmt.Errorf("track %d: %w", t.Number, ErrNoSector)
	}
	for _, f := range t.Fragments {
		if relative < f.Length() {
			return f, relative, nil
		}
		relative -= f.Length()
	}
	return nil, 0, fmt.Errorf("track %d: %w", t.Number, ErrNoSector)
}

// IndexAt returns the index number active at the given absolute LBA, and
// the LBA that index started at (for Q subchannel relative-time), per
// spec.md §3's index-point invariant (strictly increasing within the
// track's address range).
func (t *Track) IndexAt(lba int64) (number int, indexStart int64) {
	number, indexStart = 1, t.start
	for _, idx := range t.Indices {
		if idx.LBA <= lba {
			number, indexStart = idx.Number, idx.LBA
		}
	}
	return
}
