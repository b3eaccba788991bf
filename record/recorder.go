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

package record

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cdimaged/cdimaged/disc"
)

// ErrNotRecording is returned when a write/close operation is attempted
// without an active cue sheet.
var ErrNotRecording = errors.New("record: no cue sheet loaded")

// ErrOutOfSequence is returned when a write targets an LBA other than
// the current next-writable-address, per spec.md §4.J's "sequential
// writes" invariant.
var ErrOutOfSequence = errors.New("record: write address is not the next writable address")

// ErrSessionClosed is returned when a write/close is attempted after
// CloseSession.
var ErrSessionClosed = errors.New("record: session already closed")

// ImageWriter is the optional sink recorded sectors are routed to, per
// spec.md §4.J. A nil ImageWriter means recorded data is discarded; only
// the bookkeeping (next-writable-address, track/session state) survives.
type ImageWriter interface {
	WriteSector(lba int64, data []byte) error
	CloseTrack(number int) error
	CloseSession() error
}

// DiscardWriter implements ImageWriter by dropping every write, per
// spec.md §4.J's "actual data is discarded" default.
type DiscardWriter struct{}

func (DiscardWriter) WriteSector(int64, []byte) error { return nil }
func (DiscardWriter) CloseTrack(int) error            { return nil }
func (DiscardWriter) CloseSession() error             { return nil }

// trackState tracks one cue-sheet track's recording progress.
type trackState struct {
	CueTrack
	start  int64
	length int64
	closed bool
}

// Recorder tracks sequential writes against a parsed cue sheet, per
// spec.md §4.J. One Recorder is created per SEND CUE SHEET command and
// lives until the session is closed or a new cue sheet replaces it.
type Recorder struct {
	mu sync.Mutex

	writer ImageWriter
	tracks []*trackState
	cursor int // index of the track currently open for writing

	nwa    int64
	closed bool
}

// NewRecorder builds a Recorder from a parsed cue sheet. writer may be
// nil, in which case DiscardWriter is used.
func NewRecorder(sheet *CueSheet, writer ImageWriter) *Recorder {
	if writer == nil {
		writer = DiscardWriter{}
	}
	r := &Recorder{writer: writer}

	start := int64(0)
	for _, t := range sheet.Tracks {
		if len(t.Indices) > 0 {
			start = t.Indices[0].LBA
		}
		r.tracks = append(r.tracks, &trackState{CueTrack: t, start: start})
	}
	if len(r.tracks) > 0 {
		r.nwa = r.tracks[0].start
	}
	return r
}

// NextWritableAddress returns the absolute LBA the next WriteSector call
// must target.
func (r *Recorder) NextWritableAddress() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nwa
}

// WriteSector records one sector at lba, advancing the next-writable-
// address by one, per spec.md §4.J.
func (r *Recorder) WriteSector(lba int64, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrSessionClosed
	}
	if r.cursor >= len(r.tracks) {
		return fmt.Errorf("record: %w", ErrNotRecording)
	}
	if lba != r.nwa {
		return fmt.Errorf("record: write at %d, expected %d: %w", lba, r.nwa, ErrOutOfSequence)
	}

	if err := r.writer.WriteSector(lba, data); err != nil {
		return fmt.Errorf("record: write sector %d: %w", lba, err)
	}

	r.tracks[r.cursor].length++
	r.nwa++
	return nil
}

// CloseTrack finalizes the currently open track and advances the write
// cursor to the next one, per spec.md §4.J's `close-track` operation.
func (r *Recorder) CloseTrack() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrSessionClosed
	}
	if r.cursor >= len(r.tracks) {
		return fmt.Errorf("record: %w", ErrNotRecording)
	}

	cur := r.tracks[r.cursor]
	if cur.length == 0 {
		cur.length = 1 // a closed track always occupies at least one sector
		r.nwa++
	}
	cur.closed = true
	if err := r.writer.CloseTrack(cur.Number); err != nil {
		return fmt.Errorf("record: close track %d: %w", cur.Number, err)
	}
	r.cursor++
	if r.cursor < len(r.tracks) {
		r.tracks[r.cursor].start = r.nwa
	}
	return nil
}

// CloseSession finalizes the session, per spec.md §4.J's `close-session`
// operation. Any track still open is closed first.
func (r *Recorder) CloseSession() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrSessionClosed
	}
	needsTrackClose := r.cursor < len(r.tracks)
	r.mu.Unlock()

	if needsTrackClose {
		if err := r.CloseTrack(); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if err := r.writer.CloseSession(); err != nil {
		return fmt.Errorf("record: close session: %w", err)
	}
	return nil
}

// Closed reports whether CloseSession has run.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// BuildDisc synthesizes a disc.Disc reflecting the recorder's current
// state, for READ DISC INFORMATION / READ TRACK INFORMATION to read
// from, per spec.md §4.J. Every track is backed by a NullFragment sized
// to the sectors written so far (or, once closed, its final length) —
// recorded sector bytes are never actually retained, only counted.
func (r *Recorder) BuildDisc() (*disc.Disc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tracks := make([]*disc.Track, 0, len(r.tracks))
	for _, ts := range r.tracks {
		length := ts.length
		if length == 0 {
			length = 1 // an unwritten trailing track still reports a placeholder extent
		}
		frag := disc.NewNullFragment(length, ts.Mode.UserDataSize())
		track, err := disc.NewTrack(ts.Number, ts.Mode, ts.Flags, []disc.Fragment{frag})
		if err != nil {
			return nil, fmt.Errorf("record: build track %d: %w", ts.Number, err)
		}
		track.ISRC = ts.ISRC
		track.Indices = ts.Indices
		tracks = append(tracks, track)
	}

	sess, err := disc.NewSession(disc.SessionCDROM, r.tracks[0].Number, 0, 0, tracks)
	if err != nil {
		return nil, fmt.Errorf("record: build session: %w", err)
	}
	d, err := disc.NewDisc(disc.MediumCD, []*disc.Session{sess})
	if err != nil {
		return nil, fmt.Errorf("record: build disc: %w", err)
	}
	return d, nil
}
