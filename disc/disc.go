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

// Package disc models the session/track/fragment container a parser
// builds and the MMC dispatcher reads through, per spec.md §3/§4.B.
package disc

import "fmt"

// Medium identifies the physical medium type, per spec.md §3.
type Medium int

const (
	MediumCD Medium = iota
	MediumDVD
	MediumBD
)

// startSectorFor returns the layout-assigned start sector for a disc's
// first session's first track, per spec.md §4.B's address arithmetic:
// CD uses -150 (so LBA 0 lines up with MSF 00:02:00); DVD/BD use 0.
func startSectorFor(m Medium) int64 {
	if m == MediumCD {
		return -150
	}
	return 0
}

// Disc is an ordered, non-empty list of sessions plus a medium type, per
// spec.md §3.
type Disc struct {
	Sessions []*Session
	Medium   Medium

	startSector int64
	length      int64
}

// NewDisc builds a Disc from sessions, laying out absolute track start
// sectors contiguously across sessions (spec.md §3's Disc invariant).
// Sessions are immutable once loaded (spec.md §4.B's lifecycle note).
//
// Track layout itself always starts at LBA 0 — a CD's mandatory 150-sector
// physical lead-in (the -150 startSectorFor reports) is bookkeeping for the
// disc's addressable range and MSF conversion, not space the first track's
// index 1 is pushed back by; per spec.md §4.B, track 1 index 1 sits at
// LBA 0.
func NewDisc(medium Medium, sessions []*Session) (*Disc, error) {
	if len(sessions) == 0 {
		return nil, fmt.Errorf("disc: no sessions")
	}
	d := &Disc{
		Sessions:    sessions,
		Medium:      medium,
		startSector: startSectorFor(medium),
	}
	var cursor int64
	for _, s := range sessions {
		cursor += s.LeadinLength
		trackLen := s.layout(cursor)
		cursor += trackLen + s.LeadoutLength
	}
	d.length = cursor - d.startSector
	return d, nil
}

// StartSector returns the disc's configured start sector (-150 for CD,
// 0 for DVD/BD).
func (d *Disc) StartSector() int64 { return d.startSector }

// Capacity returns the total addressable length in sectors, per
// spec.md §4.B.
func (d *Disc) Capacity() int64 { return d.length }

// LastLBA returns the highest valid LBA, or startSector-1 if the disc is
// (degenerately) empty.
func (d *Disc) LastLBA() int64 { return d.startSector + d.length - 1 }

// SessionOf returns the session containing the given absolute LBA.
func (d *Disc) SessionOf(lba int64) (*Session, error) {
	for _, s := range d.Sessions {
		if lba >= s.Start() && lba < s.End() {
			return s, nil
		}
	}
	return nil, fmt.Errorf("disc: %w", ErrNoSector)
}

// TrackOf returns the track containing the given absolute LBA.
func (d *Disc) TrackOf(lba int64) (*Track, error) {
	s, err := d.SessionOf(lba)
	if err != nil {
		return nil, err
	}
	return s.TrackAt(lba)
}

// TOCEntry describes one track's position for READ TOC/PMA/ATIP.
type TOCEntry struct {
	TrackNumber int
	Start       int64
	Control     TrackFlags
}

// TOC is the summary spec.md §4.B requires: first/last track number and
// per-track start addresses, plus the lead-out address.
type TOC struct {
	FirstTrack int
	LastTrack  int
	Entries    []TOCEntry
	LeadOut    int64
}

// TOC builds the disc's table of contents from its first session (the
// session most MMC TOC formats describe; multi-session detail is
// available via Sessions directly for format-2 full-TOC responses).
func (d *Disc) TOC() TOC {
	first := d.Sessions[0]
	entries := make([]TOCEntry, 0, len(first.Tracks))
	for _, t := range first.Tracks {
		entries = append(entries, TOCEntry{
			TrackNumber: t.Number,
			Start:       t.Start(),
			Control:     t.Flags,
		})
	}
	return TOC{
		FirstTrack: first.Tracks[0].Number,
		LastTrack:  first.LastTrack().Number,
		Entries:    entries,
		LeadOut:    first.End(),
	}
}

// AllTracks returns every track across every session, in disc order.
func (d *Disc) AllTracks() []*Track {
	var out []*Track
	for _, s := range d.Sessions {
		out = append(out, s.Tracks...)
	}
	return out
}
