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

// Package audio implements the PLAY AUDIO state machine of spec.md §4.F:
// a cooperative per-device playback task that walks a Disc's sectors and
// pushes PCM frames to a sink. The loop structure (check state, check
// end, fetch sector, verify audio, push, advance) is grounded on
// original_source/cdemu-daemon/src/cdemud-audio.c's
// cdemud_audio_playback_thread (SPEC_FULL.md §6); BytesPerSector and
// SectorsPerSecond follow rabidaudio-audiocd's Redbook constants.
package audio

import (
	"errors"
	"sync"
	"time"

	"github.com/cdimaged/cdimaged/disc"
	"github.com/cdimaged/cdimaged/sector"
)

// BytesPerSector is the size of one CD-DA audio frame (2352 bytes),
// matching rabidaudio-audiocd.BytesPerSector.
const BytesPerSector = 2352

// SectorsPerSecond is the Redbook frame rate: 75 sectors/second.
const SectorsPerSecond = 75

// frameInterval is the pacing a null/sleep sink uses when it cannot
// provide its own timing, per spec.md §4.F.
const frameInterval = time.Second / SectorsPerSecond

// State is a PLAY AUDIO state, per spec.md §4.F.
type State int

const (
	NoStatus State = iota
	Playing
	Paused
	Completed
	Error
)

func (s State) String() string {
	switch s {
	case NoStatus:
		return "NoStatus"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	case Completed:
		return "Completed"
	case Error:
		return "Error"
	default:
		return "Unknown"
	}
}

// ErrInvalidAudioState is returned by start when play is already active,
// and by resume when it is called outside Paused, per spec.md §4.F.
var ErrInvalidAudioState = errors.New("audio: invalid state for requested operation")

// Sink receives one sector's worth of PCM audio at a time. A sink that
// cannot provide real playback timing (such as NullSink) reports
// RealTime() == false, so the engine paces itself at 1/75s per sector.
type Sink interface {
	Write(pcm []byte) error
	RealTime() bool
}

// NullSink discards audio data; used when no audio driver is configured.
type NullSink struct{}

func (NullSink) Write(pcm []byte) error { return nil }
func (NullSink) RealTime() bool         { return false }

// Engine runs the PLAY AUDIO cooperative task for one device, per
// spec.md §4.F.
type Engine struct {
	sink Sink

	mu      sync.Mutex
	state   State
	begin   int64
	end     int64
	current int64
	d       *disc.Disc
	done    chan struct{}
}

// New returns an Engine in NoStatus, writing to sink.
func New(sink Sink) *Engine {
	if sink == nil {
		sink = NullSink{}
	}
	return &Engine{sink: sink, state: NoStatus}
}

// Status returns the current state and, for Playing/Paused/Completed,
// the last sector position reached.
func (e *Engine) Status() (State, int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.current
}

// Start begins playback over [begin, end] on d. It is rejected with
// ErrInvalidAudioState if playback is already Playing or Paused, per
// spec.md §4.F's re-entry rule.
func (e *Engine) Start(begin, end int64, d *disc.Disc) error {
	e.mu.Lock()
	if e.state == Playing || e.state == Paused {
		e.mu.Unlock()
		return ErrInvalidAudioState
	}
	e.state = Playing
	e.begin = begin
	e.end = end
	e.current = begin
	e.d = d
	done := make(chan struct{})
	e.done = done
	e.mu.Unlock()

	go e.run(done)
	return nil
}

// Pause flips the state to Paused and waits for the task to observe it,
// retaining the disc reference, per spec.md §4.F.
func (e *Engine) Pause() error {
	e.mu.Lock()
	if e.state != Playing {
		e.mu.Unlock()
		return ErrInvalidAudioState
	}
	e.state = Paused
	done := e.done
	e.mu.Unlock()

	if done != nil {
		<-done
	}
	return nil
}

// Resume continues playback from Paused; it is only valid from Paused,
// per spec.md §4.F.
func (e *Engine) Resume() error {
	e.mu.Lock()
	if e.state != Paused {
		e.mu.Unlock()
		return ErrInvalidAudioState
	}
	e.state = Playing
	done := make(chan struct{})
	e.done = done
	e.mu.Unlock()

	go e.run(done)
	return nil
}

// Stop flips the state and waits for the task to observe it, then drops
// the disc reference, per spec.md §4.F.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state != Playing && e.state != Paused {
		e.state = NoStatus
		e.d = nil
		e.mu.Unlock()
		return
	}
	wasPlaying := e.state == Playing
	e.state = NoStatus
	done := e.done
	e.mu.Unlock()

	if wasPlaying && done != nil {
		<-done
	}

	e.mu.Lock()
	e.d = nil
	e.mu.Unlock()
}

// run is the cooperative playback task, one goroutine per active Start/
// Resume call, per spec.md §4.F's scheduling model.
func (e *Engine) run(done chan struct{}) {
	defer close(done)

	for {
		e.mu.Lock()
		state := e.state
		current := e.current
		end := e.end
		d := e.d
		e.mu.Unlock()

		if state != Playing {
			return
		}
		if current > end {
			e.mu.Lock()
			e.state = Completed
			e.mu.Unlock()
			return
		}

		sv, err := d.SectorAt(current)
		if err != nil || sv.Mode() != sector.ModeAudio {
			e.mu.Lock()
			e.state = Error
			e.mu.Unlock()
			return
		}

		pcm, err := sv.Synthesize(sector.FieldUserData, sector.SubchannelNone, sector.Options{})
		if err != nil {
			e.mu.Lock()
			e.state = Error
			e.mu.Unlock()
			return
		}

		if err := e.sink.Write(pcm); err != nil {
			e.mu.Lock()
			e.state = Error
			e.mu.Unlock()
			return
		}
		if !e.sink.RealTime() {
			time.Sleep(frameInterval)
		}

		e.mu.Lock()
		e.current++
		e.mu.Unlock()
	}
}
