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

package image

import (
	"fmt"
	"strings"

	"github.com/cdimaged/cdimaged/chd"
	"github.com/cdimaged/cdimaged/disc"
	"github.com/cdimaged/cdimaged/sector"
)

// ParseCHD loads a CHD disc image into a *disc.Disc, per spec.md §4.B
// and SPEC_FULL.md's CHD DOMAIN STACK entry. Every track is backed by
// the same chd.CHD.RawSectorReader(), which presents uniform 2352-byte
// raw sectors across the whole file (chd/chd.go); each track's byte
// offset into that stream is StartFrame*2352, per the teacher's own
// CHD track-layout bookkeeping in chd/metadata.go.
func ParseCHD(path string) (*disc.Disc, error) {
	c, err := chd.Open(path)
	if err != nil {
		return nil, fmt.Errorf("image: open CHD %s: %w", path, err)
	}

	chdTracks := c.Tracks()
	if len(chdTracks) == 0 {
		return nil, fmt.Errorf("image: CHD %s has no tracks", path)
	}

	raw := c.RawSectorReader()
	const rawSectorSize = 2352

	discTracks := make([]*disc.Track, 0, len(chdTracks))
	for _, ct := range chdTracks {
		mode, flags, err := chdTrackMode(ct.Type)
		if err != nil {
			return nil, err
		}

		frag := disc.NewBinaryFragment(raw, int64(ct.Frames), disc.BinaryFragmentOptions{
			Offset:         int64(ct.StartFrame) * rawSectorSize,
			MainSectorSize: rawSectorSize,
			HasSyncHeader:  true,
		})
		track, err := disc.NewTrack(ct.Number, mode, flags, []disc.Fragment{frag})
		if err != nil {
			return nil, fmt.Errorf("image: build CHD track %d: %w", ct.Number, err)
		}
		track.Indices = []disc.IndexPoint{{Number: 1, LBA: int64(ct.StartFrame)}}
		discTracks = append(discTracks, track)
	}

	session, err := disc.NewSession(disc.SessionCDROM, discTracks[0].Number, 0, 0, discTracks)
	if err != nil {
		return nil, fmt.Errorf("image: build CHD session: %w", err)
	}
	return disc.NewDisc(disc.MediumCD, []*disc.Session{session})
}

// chdTrackMode maps a CHD metadata track-type string (chd/metadata.go's
// cdTypeToString/trackTypeToDataSize vocabulary) to this module's
// sector.Mode and control flags.
func chdTrackMode(trackType string) (sector.Mode, disc.TrackFlags, error) {
	switch strings.ToUpper(trackType) {
	case "AUDIO":
		return sector.ModeAudio, 0, nil
	case "MODE1/2048", "MODE1/2352", "MODE1_RAW":
		return sector.Mode1, disc.FlagDataTrack, nil
	case "MODE2/2048", "MODE2_FORM1":
		return sector.Mode2Form1, disc.FlagDataTrack, nil
	case "MODE2/2336", "MODE2/2352", "MODE2_RAW", "MODE2_FORM_MIX":
		return sector.Mode2Formless, disc.FlagDataTrack, nil
	default:
		return 0, 0, fmt.Errorf("image: unsupported CHD track type %q", trackType)
	}
}
