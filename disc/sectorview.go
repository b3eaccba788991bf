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
	"fmt"

	"github.com/cdimaged/cdimaged/sector"
)

// SectorView is a handle to one addressable sector, returned by
// Disc.SectorAt. It is a thin view over the owning track, not a copy of
// sector data, per spec.md §4.A.
type SectorView struct {
	track *Track
	lba   int64
}

// SectorAt returns a view over the sector at the given absolute LBA, or
// ErrNoSector if it falls outside every session/track, per spec.md §4.B.
func (d *Disc) SectorAt(lba int64) (*SectorView, error) {
	t, err := d.TrackOf(lba)
	if err != nil {
		return nil, err
	}
	return &SectorView{track: t, lba: lba}, nil
}

// LBA returns the absolute LBA this view addresses.
func (sv *SectorView) LBA() int64 { return sv.lba }

// Mode returns the owning track's sector mode.
func (sv *SectorView) Mode() sector.Mode { return sv.track.Mode }

// Track returns the owning track.
func (sv *SectorView) Track() *Track { return sv.track }

// Synthesize produces the byte sequence for the requested READ CD field
// and subchannel selectors, per spec.md §4.A.
func (sv *SectorView) Synthesize(fields sector.Field, sub sector.Subchannel, opts sector.Options) ([]byte, error) {
	relative := sv.lba - sv.track.start
	frag, fragIdx, err := sv.track.fragmentAt(relative)
	if err != nil {
		return nil, err
	}

	main, hasSync, err := frag.ReadMain(fragIdx)
	if err != nil {
		return nil, fmt.Errorf("sector view: %w", err)
	}
	subData, isRawPW, err := frag.ReadSub(fragIdx)
	if err != nil {
		return nil, fmt.Errorf("sector view: %w", err)
	}

	in := sector.Input{
		Mode:              sv.track.Mode,
		Main:              main,
		MainHasSyncHeader: hasSync,
		Sub:               subData,
		SubIsRawPW:        isRawPW,
	}

	indexNum, indexStart := sv.track.IndexAt(sv.lba)
	ctx := sector.Context{
		TrackNumber: sv.track.Number,
		IndexNumber: indexNum,
		Control:     sv.track.Flags,
		AbsoluteLBA: sv.lba,
		RelativeLBA: sv.lba - indexStart,
	}

	return sector.Synthesize(in, ctx, fields, sub, opts)
}
