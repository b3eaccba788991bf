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

import "fmt"

// SessionType identifies the kind of CD session, per spec.md §3.
type SessionType int

const (
	SessionCDDA SessionType = iota
	SessionCDROM
	SessionCDROMXA
)

// CDText holds an optional language/CD-Text block, per spec.md §3.
// Real CD-Text binary packs are not decoded; this carries the raw pack
// bytes a parser extracted, keyed by language code.
type CDText struct {
	Packs map[byte][]byte
}

// Session is an ordered, non-empty list of tracks plus leadin/leadout
// lengths, per spec.md §3.
type Session struct {
	Tracks           []*Track
	Type             SessionType
	LeadinLength     int64
	LeadoutLength    int64
	CDText           *CDText
	FirstTrackNumber int

	start  int64
	length int64 // track payload only, excludes leadin/leadout
}

// NewSession constructs a session from its tracks.
func NewSession(sessionType SessionType, firstTrackNumber int, leadin, leadout int64, tracks []*Track) (*Session, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("disc: session has no tracks")
	}
	return &Session{
		Tracks:           tracks,
		Type:             sessionType,
		LeadinLength:     leadin,
		LeadoutLength:    leadout,
		FirstTrackNumber: firstTrackNumber,
	}, nil
}

// Start returns the session's absolute start LBA (its first track's start).
func (s *Session) Start() int64 { return s.start }

// Length returns the total length in sectors of the session's tracks
// (excluding leadin/leadout), per spec.md §3's contiguity invariant.
func (s *Session) Length() int64 { return s.length }

// End returns the first LBA past the end of this session's tracks.
func (s *Session) End() int64 { return s.start + s.length }

// TrackAt returns the track containing the given absolute LBA.
func (s *Session) TrackAt(lba int64) (*Track, error) {
	for _, t := range s.Tracks {
		if t.Contains(lba) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("session: %w", ErrNoSector)
}

// LastTrack returns the final track of the session.
func (s *Session) LastTrack() *Track {
	return s.Tracks[len(s.Tracks)-1]
}

// layout assigns absolute start sectors to every track in the session,
// starting at origin, and returns the session's total track length.
func (s *Session) layout(origin int64) int64 {
	s.start = origin
	cursor := origin
	for _, t := range s.Tracks {
		t.start = cursor
		cursor += t.length
	}
	s.length = cursor - origin
	return s.length
}
